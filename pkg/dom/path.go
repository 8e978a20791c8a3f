package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CSSPath builds a selector that addresses the first node of s from the
// document root, e.g. "html > body:nth-child(2) > main:nth-child(1)".
// Live sources use it to point their mutation observer at the same element.
func CSSPath(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}

	var parts []string
	for n := s.Get(0); n != nil && n.Type == html.ElementNode; n = n.Parent {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			parts = append(parts, n.Data)
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", n.Data, elementIndex(n)))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// elementIndex is the 1-based position of n among its element siblings.
func elementIndex(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}
