// ABOUTME: Node types for the parsed XML tree: elements, attributes, comments and CDATA
// ABOUTME: Provides namespace-aware child lookup and the recursive Contents() text rule

package xmltree

import (
	"strings"
)

// XMLNamespace is bound to the reserved "xml" prefix without a declaration.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// Node is one of *Element, *Attribute, *Comment or *CData.
type Node interface {
	// Contents returns the node's text value.
	Contents() string
	// String renders the node back to markup.
	String() string

	node()
}

// Document is the result of a parse.
type Document struct {
	// Nodes holds the top-level nodes in document order.
	Nodes []Node
	// Decl is the <?xml ...?> processing instruction, if one was present.
	Decl *Element
	// Root is nil when the document contained no element.
	Root *Element
}

// Element is a parsed tag with its attributes, children and text.
type Element struct {
	Name       string
	Prefix     string
	LocalName  string
	Namespace  string
	Attributes []*Attribute
	Children   []Node
	// Text is the last run of character data seen directly inside the element.
	Text string
	// PI marks a processing instruction such as <?xml ...?>.
	PI bool

	parent *Element
}

// Attribute is a name="value" pair on an element.
type Attribute struct {
	Name      string
	Prefix    string
	LocalName string
	Namespace string
	Value     string
}

// Comment holds a <!-- --> comment, or a <!...> declaration when Directive is set.
type Comment struct {
	Value     string
	Directive bool
}

// CData holds the body of a <![CDATA[ ]]> section.
type CData struct {
	Value string
}

func (*Element) node()   {}
func (*Attribute) node() {}
func (*Comment) node()   {}
func (*CData) node()     {}

func splitName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func newAttribute(name, value string) *Attribute {
	prefix, local := splitName(name)
	return &Attribute{Name: name, Prefix: prefix, LocalName: local, Value: value}
}

// Parent returns the enclosing element, or nil for top-level elements.
func (e *Element) Parent() *Element {
	if e == nil {
		return nil
	}
	return e.parent
}

// Contents returns the element's own text when it has any, otherwise the
// concatenated contents of its children, depth-first.
func (e *Element) Contents() string {
	if e == nil {
		return ""
	}
	if e.Text != "" {
		return e.Text
	}
	var b strings.Builder
	for _, child := range e.Children {
		b.WriteString(child.Contents())
	}
	return b.String()
}

// Is reports whether the element has the given local name and namespace.
func (e *Element) Is(localName, namespace string) bool {
	return e != nil && e.LocalName == localName && e.Namespace == namespace
}

// Attr returns the attribute with the given full name, or nil.
func (e *Element) Attr(name string) *Attribute {
	if e == nil {
		return nil
	}
	for _, a := range e.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttrValue returns the value of the named attribute, or "" when absent.
func (e *Element) AttrValue(name string) string {
	if a := e.Attr(name); a != nil {
		return a.Value
	}
	return ""
}

// Elements returns the element children in document order.
func (e *Element) Elements() []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, child := range e.Children {
		if el, ok := child.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// ChildrenByName returns the child elements with the given local name in any namespace.
func (e *Element) ChildrenByName(localName string) []*Element {
	var out []*Element
	for _, el := range e.Elements() {
		if el.LocalName == localName {
			out = append(out, el)
		}
	}
	return out
}

// ChildrenByNameNS returns the child elements matching both local name and namespace.
func (e *Element) ChildrenByNameNS(localName, namespace string) []*Element {
	var out []*Element
	for _, el := range e.Elements() {
		if el.Is(localName, namespace) {
			out = append(out, el)
		}
	}
	return out
}

// Child returns the only child with the given local name. It returns nil
// when there is no such child or when the name is ambiguous.
func (e *Element) Child(localName string) *Element {
	return only(e.ChildrenByName(localName))
}

// ChildNS is Child restricted to a namespace.
func (e *Element) ChildNS(localName, namespace string) *Element {
	return only(e.ChildrenByNameNS(localName, namespace))
}

func only(els []*Element) *Element {
	if len(els) != 1 {
		return nil
	}
	return els[0]
}

// lookupNamespace walks ancestor-or-self for the xmlns declaration bound to prefix.
func (e *Element) lookupNamespace(prefix string) string {
	attr := "xmlns"
	if prefix != "" {
		attr = "xmlns:" + prefix
	}
	for el := e; el != nil; el = el.parent {
		if a := el.Attr(attr); a != nil {
			return a.Value
		}
	}
	if prefix == "xml" {
		return XMLNamespace
	}
	return ""
}

// resolve fixes the namespaces of the element and its prefixed attributes.
// Unprefixed attributes stay in no namespace.
func (e *Element) resolve() {
	e.Namespace = e.lookupNamespace(e.Prefix)
	for _, a := range e.Attributes {
		if a.Prefix == "" || a.Prefix == "xmlns" {
			continue
		}
		a.Namespace = e.lookupNamespace(a.Prefix)
	}
}

func (e *Element) String() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteByte('<')
	if e.PI {
		b.WriteByte('?')
	}
	b.WriteString(e.Name)
	for _, a := range e.Attributes {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	if e.PI {
		b.WriteString("?>")
		return b.String()
	}
	if e.Text == "" && len(e.Children) == 0 {
		b.WriteString("/>")
		return b.String()
	}
	b.WriteByte('>')
	for _, child := range e.Children {
		b.WriteString(child.String())
	}
	b.WriteString(e.Text)
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteByte('>')
	return b.String()
}

func (a *Attribute) Contents() string { return a.Value }

func (a *Attribute) String() string {
	quote := `"`
	if strings.Contains(a.Value, `"`) {
		quote = "'"
	}
	return a.Name + "=" + quote + a.Value + quote
}

// Contents of a comment is its body; declarations contribute no text.
func (c *Comment) Contents() string {
	if c.Directive {
		return ""
	}
	return c.Value
}

func (c *Comment) String() string {
	if c.Directive {
		return "<!" + c.Value + ">"
	}
	return "<!--" + c.Value + "-->"
}

func (c *CData) Contents() string { return c.Value }

func (c *CData) String() string { return "<![CDATA[" + c.Value + "]]>" }
