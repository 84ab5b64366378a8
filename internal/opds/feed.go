// Package opds synthesizes OPDS 1.2 catalog documents over the book library.
//
// Feeds are assembled fresh on every request and handed to the HTTP layer
// for XML serialization. Nothing here is cached or mutated after
// construction; entry order is insertion order, so callers sort before they
// append.
package opds

import (
	"encoding/xml"
	"time"

	"github.com/google/uuid"
)

// Atom namespace for feed documents.
const atomNamespace = "http://www.w3.org/2005/Atom"

// openSearchNamespace for the search description document.
const openSearchNamespace = "http://a9.com/-/spec/opensearch/1.1/"

// Media types used in catalog links.
const (
	NavigationType        = "application/atom+xml;profile=opds-catalog;kind=navigation"
	AcquisitionType       = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	AtomType              = "application/atom+xml"
	SearchDescriptionType = "application/opensearchdescription+xml"
)

// Link relations used in catalog links.
const (
	RelSelf        = "self"
	RelStart       = "start"
	RelUp          = "up"
	RelSearch      = "search"
	RelSubsection  = "subsection"
	RelImage       = "http://opds-spec.org/image"
	RelThumbnail   = "http://opds-spec.org/image/thumbnail"
	RelAcquisition = "http://opds-spec.org/acquisition"
)

// Feed is a navigation or acquisition document.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Xmlns   string   `xml:"xmlns,attr"`
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Updated string   `xml:"updated"`
	Author  *Author  `xml:"author,omitempty"`
	Links   []Link   `xml:"link"`
	Entries []Entry  `xml:"entry"`
}

// Entry is one item within a feed: a book, an author, or a static
// navigation node.
type Entry struct {
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Updated string   `xml:"updated"`
	Author  *Author  `xml:"author,omitempty"`
	Summary *Content `xml:"summary,omitempty"`
	Links   []Link   `xml:"link"`
}

// Author is feed or entry attribution.
type Author struct {
	Name string `xml:"name"`
	URI  string `xml:"uri,omitempty"`
}

// Content is text content with a type attribute.
type Content struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// Link relates a feed or entry to another resource. Acquisition links also
// carry the payload's byte length and modification time.
type Link struct {
	Rel     string `xml:"rel,attr"`
	Href    string `xml:"href,attr"`
	Type    string `xml:"type,attr,omitempty"`
	Title   string `xml:"title,attr,omitempty"`
	Length  int64  `xml:"length,attr,omitempty"`
	Updated string `xml:"mtime,attr,omitempty"`
}

// OpenSearchDescription describes the search endpoint's URL templates, one
// per supported response media type.
type OpenSearchDescription struct {
	XMLName        xml.Name    `xml:"OpenSearchDescription"`
	Xmlns          string      `xml:"xmlns,attr"`
	ShortName      string      `xml:"ShortName"`
	Description    string      `xml:"Description"`
	InputEncoding  string      `xml:"InputEncoding"`
	OutputEncoding string      `xml:"OutputEncoding"`
	URLs           []SearchURL `xml:"Url"`
}

// SearchURL is one search template: substituting {searchTerms} yields a
// resolvable query URL.
type SearchURL struct {
	Type     string `xml:"type,attr"`
	Template string `xml:"template,attr"`
}

// newFeed constructs a feed shell with a fresh request-scoped id.
func newFeed(title string) *Feed {
	return &Feed{
		Xmlns:   atomNamespace,
		ID:      uuid.NewString(),
		Title:   title,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Author:  &Author{Name: catalogAuthor},
	}
}

// AddLink appends a relation link, preserving insertion order.
func (f *Feed) AddLink(rel, href, mediaType string) {
	f.Links = append(f.Links, Link{Rel: rel, Href: href, Type: mediaType})
}

// AddEntry appends an entry, preserving insertion order.
func (f *Feed) AddEntry(e Entry) {
	f.Entries = append(f.Entries, e)
}
