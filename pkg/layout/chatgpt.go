package layout

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

const ChatGPTName = "chatgpt"

const (
	turnSelector = `[data-testid^="conversation-turn"]`
	roleAttr     = "data-message-author-role"
	roleSelector = "[" + roleAttr + "]"
)

// ChatGPT handles pages that mark turns with data-testid and speaker roles
// with data-message-author-role.
type ChatGPT struct {
	steps []locatorStep
}

var _ Strategy = (*ChatGPT)(nil)

func NewChatGPT() *ChatGPT {
	c := &ChatGPT{}
	c.steps = []locatorStep{
		{name: "turn-container", find: findAll(turnSelector), keep: hasText(c)},
		{name: "author-role", find: func(root *goquery.Selection) []*goquery.Selection {
			return outermost(root.Find(roleSelector), roleSelector)
		}, keep: hasText(c)},
		{name: "article", find: findAll("article"), keep: hasText(c)},
	}
	return c
}

func (c *ChatGPT) Name() string { return ChatGPTName }

func (c *ChatGPT) Locate(doc *dom.Document) []*goquery.Selection {
	return runSteps(ChatGPTName, doc.Root(), c.steps)
}

func (c *ChatGPT) Classify(region *goquery.Selection) Role {
	if region == nil || region.Length() == 0 {
		return RoleUnknown
	}
	if v := dom.Attr(region, roleAttr); v != "" {
		return ParseRole(v)
	}
	return ParseRole(dom.Attr(region.Find(roleSelector).First(), roleAttr))
}

func (c *ChatGPT) Extract(region *goquery.Selection) string {
	return TextOf(region, ".markdown", ".prose")
}

// ObserveTarget watches the container of the turn list when there is one,
// so sidebar churn doesn't wake the loop.
func (c *ChatGPT) ObserveTarget(doc *dom.Document) *goquery.Selection {
	root := doc.Root()
	if parent := root.Find(turnSelector).First().Parent(); parent.Length() > 0 {
		return parent
	}
	return root
}

// outermost drops every node that has an ancestor matching selector, so a
// labeled wrapper and its labeled child count as one turn.
func outermost(s *goquery.Selection, selector string) []*goquery.Selection {
	var out []*goquery.Selection
	for _, n := range dom.Split(s) {
		if n.Parent().Closest(selector).Length() == 0 {
			out = append(out, n)
		}
	}
	return out
}
