package layout

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// speakerPrefixes are accessibility labels chat UIs prepend to turns. They
// are stripped in order, each at most once.
var speakerPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(你说|我说|你说过|我说过)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^(you said|you wrote)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^(chatgpt said|assistant|gemini said)\s*[:：]\s*`),
}

// NormalizeSpaces collapses every whitespace run into a single space and
// trims both ends.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace follows the JavaScript \s class, which is what chat pages are
// authored against: unicode.IsSpace plus BOM, minus NEL.
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r)
}

func StripSpeakerPrefixes(s string) string {
	for _, re := range speakerPrefixes {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// TextOf returns the normalized text of region, read from the first
// descendant matching one of contentSelectors, or from region itself when
// none matches.
func TextOf(region *goquery.Selection, contentSelectors ...string) string {
	if region == nil || region.Length() == 0 {
		return ""
	}
	content := region
	for _, sel := range contentSelectors {
		if found := region.Find(sel).First(); found.Length() > 0 {
			content = found
			break
		}
	}
	return StripSpeakerPrefixes(NormalizeSpaces(dom.InnerText(content)))
}

// Prefix returns the first n UTF-16 code units of s, the unit browsers
// measure string lengths in. A surrogate pair cut in half decodes to U+FFFD.
func Prefix(s string, n int) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= n {
		return s
	}
	return string(utf16.Decode(units[:n]))
}
