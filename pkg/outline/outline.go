// Package outline turns the located turns of a page into the entries of
// the navigation panel.
package outline

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/annotations"
	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
)

// PreviewUnits is the length of the text preview in default labels.
const PreviewUnits = 60

const emptyPreview = "(empty)"

// AnnotationReader is the read side of annotations.Registry.
type AnnotationReader interface {
	Get(key identity.Key) annotations.Annotation
}

type Entry struct {
	Region *goquery.Selection
	// Ordinal is the 1-based position of the turn among all turns, filtered
	// or not.
	Ordinal  int
	Key      identity.Key
	Role     layout.Role
	Label    string
	Favorite bool
}

type Outline struct {
	URL       string
	Signature identity.Signature
	Entries   []Entry
	// Total counts every located turn, including filtered ones.
	Total         int
	OnlyFavorites bool
}

type Options struct {
	OnlyFavorites bool
}

// Panel receives every accepted rebuild.
type Panel interface {
	Render(o *Outline)
}

type PanelFunc func(o *Outline)

func (f PanelFunc) Render(o *Outline) { f(o) }

// DefaultLabel is "<ordinal>. <first 60 units of text>".
func DefaultLabel(ordinal int, text string) string {
	preview := emptyPreview
	if text != "" {
		preview = layout.Prefix(text, PreviewUnits)
	}
	return fmt.Sprintf("%d. %s", ordinal, preview)
}

// Build derives keys for regions and assembles the outline.
func Build(s layout.Strategy, doc *dom.Document, regions []*goquery.Selection, notes AnnotationReader, opts Options) *Outline {
	return BuildFromKeys(s, doc, regions, identity.DeriveKeys(s, regions), notes, opts)
}

// BuildFromKeys assembles the outline from keys already derived for
// regions, in the same order.
func BuildFromKeys(
	s layout.Strategy,
	doc *dom.Document,
	regions []*goquery.Selection,
	keys []identity.Key,
	notes AnnotationReader,
	opts Options,
) *Outline {
	o := &Outline{
		Signature:     identity.SignatureOfKeys(keys),
		Total:         len(regions),
		OnlyFavorites: opts.OnlyFavorites,
	}
	if doc != nil {
		o.URL = doc.URL
	}

	for i, region := range regions {
		key := keys[i]
		a := notes.Get(key)
		if opts.OnlyFavorites && !a.IsFavorite() {
			continue
		}

		label := a.DisplayName()
		if label == "" {
			label = DefaultLabel(i+1, s.Extract(region))
		}

		o.Entries = append(o.Entries, Entry{
			Region:   region,
			Ordinal:  i + 1,
			Key:      key,
			Role:     s.Classify(region),
			Label:    label,
			Favorite: a.IsFavorite(),
		})
	}
	return o
}

// EmptyMessage is what the panel shows instead of entries, "" when there
// are entries.
func (o *Outline) EmptyMessage() string {
	switch {
	case len(o.Entries) > 0:
		return ""
	case o.OnlyFavorites:
		return "No favorites yet (toggle the filter to see all turns)"
	default:
		return "No messages found (refresh, or wait for the page to load)"
	}
}

// Find returns the entry of key.
func (o *Outline) Find(key identity.Key) (Entry, bool) {
	for _, e := range o.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Locate re-scans doc and returns the region currently carrying key along
// with its 0-based index.
func Locate(s layout.Strategy, doc *dom.Document, key identity.Key) (*goquery.Selection, int, bool) {
	for i, region := range s.Locate(doc) {
		if identity.DeriveKey(s, region, i) == key {
			return region, i, true
		}
	}
	return nil, -1, false
}
