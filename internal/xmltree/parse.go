// ABOUTME: Single-pass recursive-descent XML parser over an immutable buffer
// ABOUTME: Keeps an explicit open-element stack and reports ParseError with expected/found context

package xmltree

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const byteOrderMark = "\uFEFF"

// ParseError describes the token the parser expected and what it found instead.
type ParseError struct {
	Expected string
	Found    string
	Offset   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xml: expected %s, found %s at offset %d", e.Expected, e.Found, e.Offset)
}

type tagKind int

const (
	tagStart tagKind = iota
	tagEmpty
	tagEnd
	tagPI
)

type parser struct {
	data  string
	pos   int
	stack []*Element
	doc   *Document
}

// Parse builds a Document from raw XML text. A document without any element
// parses successfully with a nil Root.
func Parse(data string) (*Document, error) {
	p := &parser{
		data: strings.TrimPrefix(data, byteOrderMark),
		doc:  &Document{},
	}
	if err := p.prolog(); err != nil {
		return nil, err
	}
	if p.doc.Root == nil {
		return p.doc, nil
	}
	if err := p.content(); err != nil {
		return nil, err
	}
	if err := p.trailer(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// prolog consumes everything up to and including the root start tag.
func (p *parser) prolog() error {
	for {
		p.skipSpace()
		switch {
		case p.eof():
			return nil
		case p.hasPrefix("<!--"):
			c, err := p.comment()
			if err != nil {
				return err
			}
			p.doc.Nodes = append(p.doc.Nodes, c)
		case p.hasPrefix("<!"):
			n, err := p.declaration()
			if err != nil {
				return err
			}
			p.doc.Nodes = append(p.doc.Nodes, n)
		case p.hasPrefix("<?"):
			pi, _, err := p.element(nil)
			if err != nil {
				return err
			}
			if pi.Name == "xml" && p.doc.Decl == nil {
				p.doc.Decl = pi
			}
			p.doc.Nodes = append(p.doc.Nodes, pi)
		case p.hasPrefix("</"):
			return p.fail("root element")
		case p.hasPrefix("<"):
			root, kind, err := p.element(nil)
			if err != nil {
				return err
			}
			p.doc.Root = root
			p.doc.Nodes = append(p.doc.Nodes, root)
			if kind == tagStart {
				p.stack = append(p.stack, root)
			}
			return nil
		default:
			return p.fail("root element")
		}
	}
}

// content consumes the root's descendants until the root is closed.
func (p *parser) content() error {
	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		p.skipSpace()
		switch {
		case p.eof():
			return p.fail("</" + top.Name + ">")
		case p.hasPrefix("<!--"):
			c, err := p.comment()
			if err != nil {
				return err
			}
			top.Children = append(top.Children, c)
		case p.hasPrefix("<!"):
			n, err := p.declaration()
			if err != nil {
				return err
			}
			top.Children = append(top.Children, n)
		case p.hasPrefix("<"):
			start := p.pos
			el, kind, err := p.element(top)
			if err != nil {
				return err
			}
			switch kind {
			case tagEnd:
				if el.Name != top.Name {
					return &ParseError{Expected: "</" + top.Name + ">", Found: "</" + el.Name + ">", Offset: start}
				}
				p.stack = p.stack[:len(p.stack)-1]
			case tagStart:
				top.Children = append(top.Children, el)
				p.stack = append(p.stack, el)
			default:
				top.Children = append(top.Children, el)
			}
		default:
			end := strings.IndexByte(p.data[p.pos:], '<')
			if end < 0 {
				p.pos = len(p.data)
				return p.fail("</" + top.Name + ">")
			}
			top.Text = p.data[p.pos : p.pos+end]
			p.pos += end
		}
	}
	return nil
}

// trailer accepts only whitespace and comments after the root element.
func (p *parser) trailer() error {
	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}
		if !p.hasPrefix("<!--") {
			return p.fail("EOF or comment")
		}
		c, err := p.comment()
		if err != nil {
			return err
		}
		p.doc.Nodes = append(p.doc.Nodes, c)
	}
}

func (p *parser) comment() (*Comment, error) {
	body := p.pos + len("<!--")
	end := strings.Index(p.data[body:], "-->")
	if end < 0 {
		p.pos = len(p.data)
		return nil, p.fail("-->")
	}
	p.pos = body + end + len("-->")
	return &Comment{Value: p.data[body : body+end]}, nil
}

// declaration consumes <![CDATA[...]]> or any other <!...> block.
// Bracketed internal subsets such as DOCTYPE [ ... ] are skipped whole.
func (p *parser) declaration() (Node, error) {
	if p.hasPrefix("<![CDATA[") {
		body := p.pos + len("<![CDATA[")
		end := strings.Index(p.data[body:], "]]>")
		if end < 0 {
			p.pos = len(p.data)
			return nil, p.fail("]]>")
		}
		p.pos = body + end + len("]]>")
		return &CData{Value: p.data[body : body+end]}, nil
	}

	body := p.pos + len("<!")
	depth := 0
	for i := body; i < len(p.data); i++ {
		switch p.data[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '>':
			if depth == 0 {
				p.pos = i + 1
				return &Comment{Value: p.data[body:i], Directive: true}, nil
			}
		}
	}
	p.pos = len(p.data)
	return nil, p.fail(">")
}

// element parses one tag starting at '<'. Start and empty tags have their
// namespaces resolved against parent before returning.
func (p *parser) element(parent *Element) (*Element, tagKind, error) {
	p.pos++
	kind := tagStart
	switch {
	case p.hasPrefix("?"):
		kind = tagPI
		p.pos++
	case p.hasPrefix("/"):
		kind = tagEnd
		p.pos++
	}

	nameStart := p.pos
	for !p.eof() {
		c := p.data[p.pos]
		if isSpace(c) || c == '>' {
			break
		}
		if kind == tagStart && p.hasPrefix("/>") || kind == tagPI && p.hasPrefix("?>") {
			break
		}
		p.pos++
	}
	if p.eof() {
		return nil, kind, p.fail(">")
	}
	if p.pos == nameStart {
		return nil, kind, p.fail("tag name")
	}

	el := &Element{Name: p.data[nameStart:p.pos], PI: kind == tagPI, parent: parent}
	el.Prefix, el.LocalName = splitName(el.Name)

	kind, err := p.attributes(el, kind)
	if err != nil {
		return nil, kind, err
	}
	if kind != tagEnd {
		el.resolve()
	}
	return el, kind, nil
}

type attrState int

const (
	attrBetween attrState = iota
	attrName
	attrAfterName
	attrEquals
	attrValue
)

// attributes reads name=value pairs up to the closing > and returns the
// final tag kind, which becomes tagEmpty for a self-closing tag.
func (p *parser) attributes(el *Element, kind tagKind) (tagKind, error) {
	var name, value strings.Builder
	var quote byte
	state := attrBetween

	add := func() {
		el.Attributes = append(el.Attributes, newAttribute(name.String(), value.String()))
		name.Reset()
		value.Reset()
		quote = 0
		state = attrBetween
	}
	closing := func() bool {
		return p.hasPrefix(">") || p.hasPrefix("/>") || kind == tagPI && p.hasPrefix("?>")
	}

	for !p.eof() {
		c := p.data[p.pos]
		switch state {
		case attrValue:
			if quote != 0 {
				if c == quote {
					add()
				} else {
					value.WriteByte(c)
				}
				p.pos++
				continue
			}
			if isSpace(c) {
				add()
				p.pos++
				continue
			}
			if closing() {
				add()
				continue
			}
			value.WriteByte(c)
			p.pos++

		case attrEquals:
			switch {
			case isSpace(c):
				p.pos++
			case c == '"' || c == '\'':
				quote = c
				state = attrValue
				p.pos++
			case closing():
				add()
			default:
				state = attrValue
			}

		case attrName:
			switch {
			case c == '=':
				state = attrEquals
				p.pos++
			case isSpace(c):
				state = attrAfterName
				p.pos++
			case closing():
				add()
			default:
				name.WriteByte(c)
				p.pos++
			}

		case attrAfterName:
			switch {
			case isSpace(c):
				p.pos++
			case c == '=':
				state = attrEquals
				p.pos++
			default:
				add()
			}

		case attrBetween:
			switch {
			case isSpace(c):
				p.pos++
			case kind == tagPI && p.hasPrefix("?>"):
				p.pos += 2
				return kind, nil
			case c == '>':
				p.pos++
				return kind, nil
			case p.hasPrefix("/>"):
				if kind == tagEnd {
					return kind, p.fail(">")
				}
				p.pos += 2
				return tagEmpty, nil
			default:
				name.WriteByte(c)
				state = attrName
				p.pos++
			}
		}
	}
	return kind, p.fail(">")
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.data[p.pos:], s)
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.data[p.pos]
		if c < utf8.RuneSelf {
			if !isSpace(c) {
				return
			}
			p.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(p.data[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) fail(expected string) *ParseError {
	return &ParseError{Expected: expected, Found: p.context(), Offset: p.pos}
}

// context quotes a short window of the input at the cursor.
func (p *parser) context() string {
	if p.eof() {
		return "EOF"
	}
	rest := p.data[p.pos:]
	if len(rest) > 20 {
		cut := 20
		for cut > 0 && !utf8.RuneStart(rest[cut]) {
			cut--
		}
		return fmt.Sprintf("%q...", rest[:cut])
	}
	return fmt.Sprintf("%q", rest)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
