// ABOUTME: Feed extraction for RSS 0.91/2.0, RDF (RSS 1.0) and Atom 1.0 element trees
// ABOUTME: Detects the dialect from the root element and normalizes items into models.Item

package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harper/feedwatch/internal/entities"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/xmltree"
)

// Namespaces recognized during extraction.
const (
	RDFNamespace        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RSS1Namespace       = "http://purl.org/rss/1.0/"
	AtomNamespace       = "http://www.w3.org/2005/Atom"
	DublinCoreNamespace = "http://purl.org/dc/elements/1.1/"
)

// Dialect names the schema a feed was extracted from.
type Dialect string

const (
	DialectRSS  Dialect = "rss"
	DialectRDF  Dialect = "rdf"
	DialectAtom Dialect = "atom"
)

// Feed is the normalized channel metadata and items of one document.
type Feed struct {
	Dialect     Dialect
	Title       string
	Link        string
	Description string
	Language    string
	TTL         int // advertised TTL in seconds, 0 when absent
	Items       []models.Item
}

// UnsupportedFeedError reports a document that is XML but not a feed we understand.
type UnsupportedFeedError struct {
	Kind  string // "RSS version", "namespace" or "feed type"
	Value string
}

func (e *UnsupportedFeedError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Kind, e.Value)
}

// Parse parses raw feed data and extracts it.
func Parse(data []byte) (*Feed, error) {
	doc, err := xmltree.Parse(string(data))
	if err != nil {
		return nil, err
	}
	return Extract(doc.Root)
}

// Extract detects the dialect of root and normalizes its channel and items.
func Extract(root *xmltree.Element) (*Feed, error) {
	if root == nil {
		return nil, &UnsupportedFeedError{Kind: "feed type", Value: "<empty document>"}
	}

	switch {
	case root.LocalName == "rss":
		return extractRSS(root)
	case root.LocalName == "RDF":
		if root.Namespace != RDFNamespace {
			return nil, &UnsupportedFeedError{Kind: "namespace", Value: orUnknown(root.Namespace)}
		}
		return extractRDF(root), nil
	case root.Is("feed", AtomNamespace):
		return extractAtom(root), nil
	default:
		return nil, &UnsupportedFeedError{Kind: "feed type", Value: root.Name}
	}
}

func extractRSS(root *xmltree.Element) (*Feed, error) {
	version := root.Attr("version")
	if version == nil {
		return nil, &UnsupportedFeedError{Kind: "RSS version", Value: "<unknown>"}
	}
	if !supportedRSSVersion(version.Value) {
		return nil, &UnsupportedFeedError{Kind: "RSS version", Value: version.Value}
	}

	channel := root.Child("channel")
	if channel == nil {
		return nil, &UnsupportedFeedError{Kind: "feed type", Value: "rss without a single channel"}
	}

	feed := &Feed{Dialect: DialectRSS}
	readChannel(feed, channel, func(name string) *xmltree.Element { return channel.Child(name) })

	for _, el := range channel.ChildrenByName("item") {
		item := rssItem(func(name string) *xmltree.Element { return el.Child(name) })
		item.GUID = strings.TrimSpace(el.Child("guid").Contents())
		item.Date = ParseRSSDate(el.Child("pubDate").Contents())
		feed.Items = append(feed.Items, item)
	}
	return feed, nil
}

func extractRDF(root *xmltree.Element) *Feed {
	feed := &Feed{Dialect: DialectRDF}
	if channel := root.ChildNS("channel", RSS1Namespace); channel != nil {
		readChannel(feed, channel, func(name string) *xmltree.Element { return channel.ChildNS(name, RSS1Namespace) })
	}

	for _, el := range root.ChildrenByNameNS("item", RSS1Namespace) {
		item := rssItem(func(name string) *xmltree.Element { return el.ChildNS(name, RSS1Namespace) })
		if pubDate := el.ChildNS("pubDate", RSS1Namespace); pubDate != nil {
			item.Date = ParseRSSDate(pubDate.Contents())
		} else {
			item.Date = ParseRSSDate(el.ChildNS("date", DublinCoreNamespace).Contents())
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

func extractAtom(root *xmltree.Element) *Feed {
	feed := &Feed{
		Dialect: DialectAtom,
		Title:   atomText(root.ChildNS("title", AtomNamespace)),
	}

	for _, el := range root.ChildrenByNameNS("entry", AtomNamespace) {
		content := el.ChildNS("content", AtomNamespace)
		if content == nil {
			content = el.ChildNS("summary", AtomNamespace)
		}
		feed.Items = append(feed.Items, models.Item{
			Date:        ParseAtomDate(el.ChildNS("updated", AtomNamespace).Contents()),
			Title:       atomText(el.ChildNS("title", AtomNamespace)),
			Link:        strings.TrimSpace(entities.Decode(atomLink(el).AttrValue("href"))),
			Description: atomText(content),
		})
	}
	return feed
}

// readChannel fills the channel-level fields using the dialect's child lookup.
func readChannel(feed *Feed, channel *xmltree.Element, child func(string) *xmltree.Element) {
	feed.Title = strings.TrimSpace(child("title").Contents())
	feed.Link = strings.TrimSpace(child("link").Contents())
	feed.Description = strings.TrimSpace(child("description").Contents())
	feed.Language = strings.TrimSpace(child("language").Contents())
	if ttl, err := strconv.Atoi(strings.TrimSpace(child("ttl").Contents())); err == nil && ttl > 0 {
		feed.TTL = min(ttl, models.MaxTTL)
	}
}

// rssItem maps the fields shared by RSS 2.0 and RDF items.
func rssItem(child func(string) *xmltree.Element) models.Item {
	return models.Item{
		Title:       entities.StripHTML(child("title").Contents()),
		Link:        strings.TrimSpace(entities.Decode(child("link").Contents())),
		Description: entities.StripHTML(child("description").Contents()),
	}
}

// atomText applies the Atom text construct rule: type="html" is stripped as
// markup, anything else is only entity-decoded.
func atomText(el *xmltree.Element) string {
	if el == nil {
		return ""
	}
	if el.AttrValue("type") == "html" {
		return entities.StripHTML(el.Contents())
	}
	return strings.TrimSpace(entities.Decode(el.Contents()))
}

// atomLink picks the entry's link: the only one, else the first alternate.
func atomLink(entry *xmltree.Element) *xmltree.Element {
	links := entry.ChildrenByNameNS("link", AtomNamespace)
	if len(links) == 1 {
		return links[0]
	}
	for _, link := range links {
		if rel := link.AttrValue("rel"); rel == "" || rel == "alternate" {
			return link
		}
	}
	return nil
}

// supportedRSSVersion compares numerically so "2", "2.0" and "2.00" all match.
func supportedRSSVersion(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	return f == 0.91 || f == 2.0
}

func orUnknown(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
