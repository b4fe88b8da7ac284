// ABOUTME: Tests for the XML parser covering prolog handling, namespaces and malformed input
// ABOUTME: Verifies the Contents() rule, exact-one child lookup and ParseError reporting

package xmltree

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return doc
}

func TestParseSimpleDocument(t *testing.T) {
	doc := mustParse(t, `<?xml version="1.0" encoding="utf-8"?>
<!-- generated -->
<rss version="2.0"><channel><title>Example</title></channel></rss>`)

	if doc.Decl == nil || doc.Decl.Name != "xml" {
		t.Fatalf("expected xml declaration, got %v", doc.Decl)
	}
	if got := doc.Decl.AttrValue("encoding"); got != "utf-8" {
		t.Errorf("expected encoding utf-8, got %q", got)
	}
	if doc.Root == nil || doc.Root.Name != "rss" {
		t.Fatalf("expected rss root, got %v", doc.Root)
	}
	if got := doc.Root.AttrValue("version"); got != "2.0" {
		t.Errorf("expected version 2.0, got %q", got)
	}
	if len(doc.Nodes) != 3 {
		t.Errorf("expected 3 top-level nodes, got %d", len(doc.Nodes))
	}
	title := doc.Root.Child("channel").Child("title")
	if title.Contents() != "Example" {
		t.Errorf("expected title Example, got %q", title.Contents())
	}
}

func TestParseStripsByteOrderMark(t *testing.T) {
	doc := mustParse(t, "\uFEFF<feed/>")
	if doc.Root == nil || doc.Root.Name != "feed" {
		t.Fatalf("expected feed root, got %v", doc.Root)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "<!-- nothing here -->"} {
		doc, err := Parse(input)
		if err != nil {
			t.Errorf("input %q: unexpected error %v", input, err)
			continue
		}
		if doc.Root != nil {
			t.Errorf("input %q: expected no root, got %v", input, doc.Root)
		}
	}
}

func TestContentsRule(t *testing.T) {
	doc := mustParse(t, `<a><b>one</b><c><d>two</d><![CDATA[<three>]]></c></a>`)

	if got := doc.Root.Contents(); got != "onetwo<three>" {
		t.Errorf("expected concatenated contents, got %q", got)
	}

	doc = mustParse(t, `<p>first<b>bold</b>last</p>`)
	if got := doc.Root.Contents(); got != "last" {
		t.Errorf("expected last text run to win, got %q", got)
	}
}

func TestContentsOfTextOnlyElementMatchesRawText(t *testing.T) {
	cases := []string{"plain", "with &amp; entity", "multi word text"}
	for _, text := range cases {
		doc := mustParse(t, "<t>"+text+"</t>")
		if got := doc.Root.Contents(); got != text {
			t.Errorf("expected %q, got %q", text, got)
		}
	}
}

func TestNamespaceResolution(t *testing.T) {
	doc := mustParse(t, `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="http://example.com/"><title>T</title></channel>
  <item><title>One</title><dc:date>2024-01-01T00:00:00Z</dc:date></item>
  <inner xmlns="urn:other"><leaf/></inner>
</rdf:RDF>`)

	root := doc.Root
	if root.Prefix != "rdf" || root.LocalName != "RDF" {
		t.Errorf("expected rdf:RDF split, got prefix %q local %q", root.Prefix, root.LocalName)
	}
	if root.Namespace != "http://www.w3.org/1999/02/22-rdf-syntax-ns#" {
		t.Errorf("unexpected root namespace %q", root.Namespace)
	}

	channel := root.ChildNS("channel", "http://purl.org/rss/1.0/")
	if channel == nil {
		t.Fatal("expected channel in default namespace")
	}
	about := channel.Attr("rdf:about")
	if about == nil || about.Namespace != "http://www.w3.org/1999/02/22-rdf-syntax-ns#" {
		t.Errorf("expected rdf:about in rdf namespace, got %+v", about)
	}

	item := root.ChildNS("item", "http://purl.org/rss/1.0/")
	date := item.ChildNS("date", "http://purl.org/dc/elements/1.1/")
	if date == nil || date.Contents() != "2024-01-01T00:00:00Z" {
		t.Errorf("expected dc:date, got %v", date)
	}

	leaf := root.Child("inner").Child("leaf")
	if leaf.Namespace != "urn:other" {
		t.Errorf("expected nearest default namespace, got %q", leaf.Namespace)
	}
	if root.ChildNS("inner", "http://purl.org/rss/1.0/") != nil {
		t.Error("expected inner to be outside the rss namespace")
	}
}

func TestChildRequiresExactlyOneMatch(t *testing.T) {
	doc := mustParse(t, `<entry><link href="a"/><link href="b"/><title>x</title></entry>`)

	if doc.Root.Child("link") != nil {
		t.Error("expected nil for ambiguous child")
	}
	if len(doc.Root.ChildrenByName("link")) != 2 {
		t.Errorf("expected 2 links, got %d", len(doc.Root.ChildrenByName("link")))
	}
	if doc.Root.Child("missing") != nil {
		t.Error("expected nil for missing child")
	}
	var nilElement *Element
	if nilElement.Child("x") != nil || nilElement.Contents() != "" || nilElement.AttrValue("y") != "" {
		t.Error("expected nil element lookups to be empty")
	}
}

func TestAttributeForms(t *testing.T) {
	doc := mustParse(t, `<a one="1" two='it"s' three=bare four = "spaced" five="it's here" six/>`)

	want := map[string]string{
		"one":   "1",
		"two":   `it"s`,
		"three": "bare",
		"four":  "spaced",
		"five":  "it's here",
		"six":   "",
	}
	for name, value := range want {
		a := doc.Root.Attr(name)
		if a == nil {
			t.Errorf("missing attribute %s", name)
			continue
		}
		if a.Value != value {
			t.Errorf("attribute %s: expected %q, got %q", name, value, a.Value)
		}
	}
	if len(doc.Root.Children) != 0 {
		t.Errorf("expected self-closing root, got %d children", len(doc.Root.Children))
	}
}

func TestCommentsAndDeclarations(t *testing.T) {
	doc := mustParse(t, `<!DOCTYPE rss [ <!ENTITY x "y"> ]>
<rss><!-- note --><channel/></rss>
<!-- trailing -->`)

	first, ok := doc.Nodes[0].(*Comment)
	if !ok || !first.Directive || !strings.HasPrefix(first.Value, "DOCTYPE") {
		t.Errorf("expected DOCTYPE directive, got %#v", doc.Nodes[0])
	}
	comment, ok := doc.Root.Children[0].(*Comment)
	if !ok || comment.Value != " note " {
		t.Errorf("expected comment child, got %#v", doc.Root.Children[0])
	}
	last, ok := doc.Nodes[len(doc.Nodes)-1].(*Comment)
	if !ok || last.Value != " trailing " {
		t.Errorf("expected trailing comment, got %#v", doc.Nodes[len(doc.Nodes)-1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"mismatched end tag", `<a><b></a>`, "</b>"},
		{"unclosed root", `<a><b></b>`, "</a>"},
		{"unterminated comment", `<a><!-- oops</a>`, "-->"},
		{"unterminated cdata", `<a><![CDATA[x</a>`, "]]>"},
		{"unterminated tag", `<a href="x"`, ">"},
		{"trailing garbage", `<a/>junk`, "EOF or comment"},
		{"stray end tag", `</a>`, "root element"},
		{"text before root", `hello <a/>`, "root element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Expected != tt.expected {
				t.Errorf("expected Expected=%q, got %q (%v)", tt.expected, perr.Expected, err)
			}
		})
	}
}

func TestMismatchedEndTagReportsFound(t *testing.T) {
	_, err := Parse(`<channel><item></channel>`)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Found != "</channel>" || perr.Expected != "</item>" {
		t.Errorf("unexpected error %v", perr)
	}
	if !strings.Contains(err.Error(), "expected </item>") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestElementString(t *testing.T) {
	doc := mustParse(t, `<a x="1"><b>t</b><c/></a>`)
	if got := doc.Root.String(); got != `<a x="1"><b>t</b><c/></a>` {
		t.Errorf("unexpected rendering %q", got)
	}
}
