package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string, address string) *Document {
	t.Helper()
	d, err := ParseString(html, address)
	require.NoError(t, err)
	return d
}

func TestRoot_PrefersMainOverBody(t *testing.T) {
	d := mustParse(t, `<html><body><div>outside</div><main id="m"><p>in</p></main></body></html>`, "")
	require.Equal(t, "m", Attr(d.Root(), "id"))

	d = mustParse(t, `<html><body id="b"><div>only body</div></body></html>`, "")
	require.Equal(t, "b", Attr(d.Root(), "id"))
}

func TestHost(t *testing.T) {
	d := mustParse(t, `<p></p>`, "https://Gemini.Google.com/app/abc")
	require.Equal(t, "gemini.google.com", d.Host())
	require.Equal(t, "", HostOf("::not a url"))
}

func TestCanonicalURL(t *testing.T) {
	d := mustParse(t, `<html><head><meta property="og:url" content="https://b/"><link rel="canonical" href=" https://a/c/1 "></head><body></body></html>`, "")
	require.Equal(t, "https://a/c/1", d.CanonicalURL())

	d = mustParse(t, `<html><head><meta property="og:url" content="https://b/"></head><body></body></html>`, "")
	require.Equal(t, "https://b/", d.CanonicalURL())

	d = mustParse(t, `<html><body></body></html>`, "")
	require.Equal(t, "", d.CanonicalURL())
}

func TestInnerText_BlocksAndSkippedNodes(t *testing.T) {
	d := mustParse(t, `<div id="x"><p>one</p><p>two<br>three</p><script>var a;</script><span hidden>nope</span><style>p{}</style>four</div>`, "")
	text := InnerText(d.Find("#x"))
	require.Equal(t, []string{"one", "two", "three", "four"}, strings.Fields(text))
	require.Equal(t, "", InnerText(d.Find("#missing")))
}

func TestCSSPath_ResolvesToSameNode(t *testing.T) {
	d := mustParse(t, `<html><body><nav></nav><main><div></div><div><section id="target"></section></div></main></body></html>`, "")
	target := d.Find("#target")
	path := CSSPath(target)
	require.Equal(t, "html > body:nth-child(2) > main:nth-child(2) > div:nth-child(2) > section:nth-child(1)", path)

	again := d.Find(path)
	require.Equal(t, 1, again.Length())
	require.Equal(t, "target", Attr(again, "id"))
}

func TestSplit(t *testing.T) {
	d := mustParse(t, `<ul><li>a</li><li>b</li><li>c</li></ul>`, "")
	parts := Split(d.Find("li"))
	require.Len(t, parts, 3)
	require.Equal(t, "b", parts[1].Text())
	require.Nil(t, Split(d.Find("article")))
	require.Equal(t, "li", TagName(parts[0]))
}
