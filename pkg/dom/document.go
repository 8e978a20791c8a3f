// Package dom wraps a parsed HTML snapshot of a chat page.
//
// A Document is immutable: every scan of the live page works on a fresh
// snapshot, and regions handed out by a Document are only valid for it.
package dom

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Document is a parsed snapshot of a page together with the address it was
// taken from.
type Document struct {
	URL string
	doc *goquery.Document
}

func Parse(r io.Reader, address string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse html snapshot")
	}
	return &Document{URL: address, doc: doc}, nil
}

func ParseString(html string, address string) (*Document, error) {
	return Parse(strings.NewReader(html), address)
}

// Selection returns the whole document as a selection.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Root is the region turns are searched in: the first main element, or the
// body when the page has none. It is empty when neither exists yet.
func (d *Document) Root() *goquery.Selection {
	if main := d.doc.Find("main").First(); main.Length() > 0 {
		return main
	}
	return d.doc.Find("body").First()
}

// Host returns the lowercased host of the document address, or "" when the
// address can't be parsed.
func (d *Document) Host() string {
	return HostOf(d.URL)
}

// CanonicalURL returns the address the page declares for itself, preferring
// <link rel="canonical"> over the og:url meta tag.
func (d *Document) CanonicalURL() string {
	if href, ok := d.doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	if content, ok := d.doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	return ""
}

func HostOf(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Split turns a multi-node selection into one selection per node, in
// document order.
func Split(s *goquery.Selection) []*goquery.Selection {
	if s == nil || s.Length() == 0 {
		return nil
	}
	out := make([]*goquery.Selection, 0, s.Length())
	s.Each(func(_ int, n *goquery.Selection) {
		out = append(out, n)
	})
	return out
}

// Attr returns the attribute value of the first node, "" when missing.
func Attr(s *goquery.Selection, name string) string {
	if s == nil {
		return ""
	}
	return s.AttrOr(name, "")
}

// TagName returns the lowercased element name of the first node.
func TagName(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	return strings.ToLower(goquery.NodeName(s))
}
