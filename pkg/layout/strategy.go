// Package layout knows how the supported chat pages mark up their
// conversations: where turns are, who spoke them and what they say.
package layout

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// Strategy is the capability set of one layout family.
type Strategy interface {
	// Name identifies the family in logs and configuration.
	Name() string
	// Locate returns the turn regions of doc in document order, or nil
	// when the page shows no recognizable turn yet.
	Locate(doc *dom.Document) []*goquery.Selection
	Classify(region *goquery.Selection) Role
	// Extract returns the normalized text of a turn, "" when the turn has
	// no content yet.
	Extract(region *goquery.Selection) string
	// ObserveTarget is the element whose subtree mutation observers
	// should watch.
	ObserveTarget(doc *dom.Document) *goquery.Selection
}

var ErrUnknownLayout = errors.New("unknown layout")

const geminiHost = "gemini.google.com"

// ForURL picks the layout family for a page address.
func ForURL(address string) Strategy {
	if strings.Contains(dom.HostOf(address), geminiHost) {
		return NewGemini()
	}
	return NewChatGPT()
}

// ForName resolves a configured layout name. "auto" and "" defer to ForURL.
func ForName(name string, address string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return ForURL(address), nil
	case GeminiName:
		return NewGemini(), nil
	case ChatGPTName:
		return NewChatGPT(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownLayout, "%q", name)
	}
}

// locatorStep is one turn-finding attempt of a family, tried in priority
// order.
type locatorStep struct {
	name string
	find func(root *goquery.Selection) []*goquery.Selection
	// keep filters what find returned; nil keeps everything
	keep func(region *goquery.Selection) bool
}

// runSteps returns the result of the first step whose selector matches.
// Later steps are not evaluated, even when keep drops every match: they are
// looser and misfire on pages the earlier ones handle.
func runSteps(family string, root *goquery.Selection, steps []locatorStep) []*goquery.Selection {
	if root == nil || root.Length() == 0 {
		return nil
	}
	for _, step := range steps {
		found := step.find(root)
		if len(found) == 0 {
			continue
		}
		if step.keep != nil {
			kept := found[:0:0]
			for _, r := range found {
				if step.keep(r) {
					kept = append(kept, r)
				}
			}
			found = kept
		}
		log.Trace().
			Str("layout", family).
			Str("step", step.name).
			Int("turns", len(found)).
			Msg("located turns")
		return found
	}
	return nil
}

func hasText(s Strategy) func(region *goquery.Selection) bool {
	return func(region *goquery.Selection) bool {
		return s.Extract(region) != ""
	}
}
