// Package export turns the favorite turns of a page into a portable
// document that can be pasted back into a chat.
package export

import (
	"strings"

	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
	"github.com/go-go-golems/chatnav/pkg/outline"
)

// Item is one exported turn.
type Item struct {
	Ordinal int          `json:"ordinal"`
	Key     identity.Key `json:"key"`
	Role    layout.Role  `json:"role"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
}

// CollectFavorites scans doc and returns its favorite turns in page order.
// The title is the custom name, or "<ordinal>. <preview>" when there is
// none.
func CollectFavorites(s layout.Strategy, doc *dom.Document, notes outline.AnnotationReader) ([]Item, error) {
	regions := s.Locate(doc)
	keys := identity.DeriveKeys(s, regions)

	var items []Item
	for i, region := range regions {
		a := notes.Get(keys[i])
		if !a.IsFavorite() {
			continue
		}
		content := s.Extract(region)
		title := a.DisplayName()
		if title == "" {
			title = outline.DefaultLabel(i+1, content)
		}
		items = append(items, Item{
			Ordinal: i + 1,
			Key:     keys[i],
			Role:    s.Classify(region),
			Title:   title,
			Content: strings.ReplaceAll(content, "\r\n", "\n"),
		})
	}

	if len(items) == 0 {
		return nil, ErrNothingToExport
	}
	return items, nil
}
