// ABOUTME: OPML reading and writing for moving feed subscriptions in and out of feedwatch
// ABOUTME: Folders map to announcement outputs: a feed inside folder "#news" announces to #news

package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harper/feedwatch/internal/models"
)

// Document represents an OPML document with a title and hierarchical outlines
type Document struct {
	Title    string
	Outlines []Outline
}

// Outline represents a node in the OPML tree structure.
// It is either a folder (with Children) or a feed (with XMLURL).
type Outline struct {
	Text     string
	Title    string
	Type     string
	XMLURL   string
	Children []Outline
}

// Feed is a single subscription with the folder it was found in.
type Feed struct {
	URL    string
	Title  string
	Folder string
}

type opmlXML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Title string `xml:"title"`
}

type bodyXML struct {
	Outlines []outlineXML `xml:"outline"`
}

type outlineXML struct {
	Text     string       `xml:"text,attr"`
	Title    string       `xml:"title,attr,omitempty"`
	Type     string       `xml:"type,attr,omitempty"`
	XMLURL   string       `xml:"xmlUrl,attr,omitempty"`
	Children []outlineXML `xml:"outline,omitempty"`
}

// Parse reads OPML data from an io.Reader and returns a Document
func Parse(r io.Reader) (*Document, error) {
	var opml opmlXML
	if err := xml.NewDecoder(r).Decode(&opml); err != nil {
		return nil, fmt.Errorf("failed to decode OPML: %w", err)
	}

	doc := &Document{
		Title:    opml.Head.Title,
		Outlines: make([]Outline, len(opml.Body.Outlines)),
	}
	for i, outline := range opml.Body.Outlines {
		doc.Outlines[i] = fromXML(outline)
	}
	return doc, nil
}

// ParseFile reads OPML data from a file and returns a Document
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// AllFeeds returns every feed in document order with its innermost folder.
func (d *Document) AllFeeds() []Feed {
	var feeds []Feed
	for _, outline := range d.Outlines {
		feeds = append(feeds, collectFeeds(outline, "")...)
	}
	return feeds
}

// FromFeeds builds a document listing feeds. Each feed is filed under a
// folder per output, or at the top level when it has none.
func FromFeeds(title string, feeds []*models.Feed) *Document {
	doc := &Document{Title: title}
	folders := map[string]int{}

	for _, feed := range feeds {
		outline := Outline{
			Text:   feed.Name,
			Title:  feed.DisplayName,
			Type:   "rss",
			XMLURL: feed.URL,
		}
		if len(feed.Outputs) == 0 {
			doc.Outlines = append(doc.Outlines, outline)
			continue
		}
		for _, dest := range feed.Outputs {
			i, ok := folders[dest]
			if !ok {
				i = len(doc.Outlines)
				folders[dest] = i
				doc.Outlines = append(doc.Outlines, Outline{Text: dest})
			}
			doc.Outlines[i].Children = append(doc.Outlines[i].Children, outline)
		}
	}
	return doc
}

// Write writes the OPML document to an io.Writer
func (d *Document) Write(w io.Writer) error {
	opml := opmlXML{
		Version: "2.0",
		Head:    headXML{Title: d.Title},
		Body:    bodyXML{Outlines: make([]outlineXML, len(d.Outlines))},
	}
	for i, outline := range d.Outlines {
		opml.Body.Outlines[i] = toXML(outline)
	}

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(opml); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// WriteFile writes the OPML document to a file
func (d *Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := d.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func fromXML(x outlineXML) Outline {
	o := Outline{
		Text:   x.Text,
		Title:  x.Title,
		Type:   x.Type,
		XMLURL: x.XMLURL,
	}
	for _, child := range x.Children {
		o.Children = append(o.Children, fromXML(child))
	}
	return o
}

func toXML(o Outline) outlineXML {
	x := outlineXML{
		Text:   o.Text,
		Title:  o.Title,
		Type:   o.Type,
		XMLURL: o.XMLURL,
	}
	for _, child := range o.Children {
		x.Children = append(x.Children, toXML(child))
	}
	return x
}

func collectFeeds(outline Outline, folder string) []Feed {
	var feeds []Feed

	if outline.XMLURL != "" {
		feeds = append(feeds, Feed{
			URL:    outline.XMLURL,
			Title:  outlineTitle(outline),
			Folder: folder,
		})
	}

	childFolder := folder
	if outline.XMLURL == "" && len(outline.Children) > 0 {
		childFolder = outline.Text
	}
	for _, child := range outline.Children {
		feeds = append(feeds, collectFeeds(child, childFolder)...)
	}
	return feeds
}

func outlineTitle(outline Outline) string {
	if outline.Title != "" {
		return outline.Title
	}
	return outline.Text
}
