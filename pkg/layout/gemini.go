package layout

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

const GeminiName = "gemini"

// Gemini handles pages built from user-query / model-response custom
// elements.
type Gemini struct {
	steps []locatorStep
}

var _ Strategy = (*Gemini)(nil)

func NewGemini() *Gemini {
	return &Gemini{
		steps: []locatorStep{
			{name: "custom-elements", find: findAll("user-query, model-response")},
			{name: "test-id", find: findAll(`[data-test-id="user-query"], [data-test-id="model-response"]`)},
			{name: "class", find: findAll(".user-query, .model-response")},
		},
	}
}

func (g *Gemini) Name() string { return GeminiName }

func (g *Gemini) Locate(doc *dom.Document) []*goquery.Selection {
	return runSteps(GeminiName, doc.Root(), g.steps)
}

func (g *Gemini) Classify(region *goquery.Selection) Role {
	if region == nil || region.Length() == 0 {
		return RoleUnknown
	}
	tag := dom.TagName(region)
	testID := dom.Attr(region, "data-test-id")
	switch {
	case tag == "user-query" || testID == "user-query":
		return RoleUser
	case tag == "model-response" || testID == "model-response":
		return RoleAssistant
	case region.Find("user-query").Length() > 0:
		return RoleUser
	case region.Find("model-response").Length() > 0:
		return RoleAssistant
	}
	return RoleUnknown
}

func (g *Gemini) Extract(region *goquery.Selection) string {
	return TextOf(region, ".message-content")
}

func (g *Gemini) ObserveTarget(doc *dom.Document) *goquery.Selection {
	return doc.Root()
}

func findAll(selector string) func(root *goquery.Selection) []*goquery.Selection {
	return func(root *goquery.Selection) []*goquery.Selection {
		return dom.Split(root.Find(selector))
	}
}
