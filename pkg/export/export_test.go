package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatnav/pkg/annotations"
	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
)

const page = `<main>
	<div data-message-author-role="user" data-message-id="u1"><div class="markdown">How do I print in Go?</div></div>
	<div data-message-author-role="assistant" data-message-id="a1"><div class="markdown">Use fmt.Println. A tilde fence looks like ~~~ in Markdown.</div></div>
	<div data-message-author-role="user" data-message-id="u2"><div class="markdown">Thanks</div></div>
</main>`

func setup(t *testing.T) (layout.Strategy, *dom.Document, *annotations.Registry) {
	t.Helper()
	doc, err := dom.ParseString(page, "https://chatgpt.com/c/42")
	require.NoError(t, err)
	return layout.NewChatGPT(), doc, annotations.NewRegistry(annotations.NewMemoryStore())
}

func TestCollectFavorites_NoneIsAnError(t *testing.T) {
	s, doc, notes := setup(t)
	_, err := CollectFavorites(s, doc, notes)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestCollectFavorites(t *testing.T) {
	ctx := context.Background()
	s, doc, notes := setup(t)
	_, err := notes.ToggleFavorite(ctx, identity.Key("known:a1|r:assistant"))
	require.NoError(t, err)
	_, err = notes.ToggleFavorite(ctx, identity.Key("known:u1|r:user"))
	require.NoError(t, err)
	_, err = notes.Rename(ctx, identity.Key("known:u1|r:user"), "  The question ")
	require.NoError(t, err)

	items, err := CollectFavorites(s, doc, notes)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].Ordinal)
	assert.Equal(t, "The question", items[0].Title)
	assert.Equal(t, layout.RoleUser, items[0].Role)
	assert.Equal(t, "How do I print in Go?", items[0].Content)

	assert.Equal(t, 2, items[1].Ordinal)
	assert.Equal(t, layout.RoleAssistant, items[1].Role)
	assert.True(t, strings.HasPrefix(items[1].Title, "2. Use fmt.Println."))
	assert.Equal(t, identity.Key("known:a1|r:assistant"), items[1].Key)
}

func TestRenderMarkdown(t *testing.T) {
	items := []Item{
		{Ordinal: 1, Key: "known:u1|r:user", Role: layout.RoleUser, Title: "Question", Content: "line one\r\nline two"},
		{Ordinal: 3, Key: "h:abc|r:unknown|i:2", Role: layout.RoleUnknown, Title: "3. fenced", Content: "a ~~~ b"},
	}
	at := time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	md, err := RenderMarkdown(items, Meta{ExportedAt: at, Page: "https://chatgpt.com/c/42"})
	require.NoError(t, err)

	assert.Contains(t, md, "- ExportedAt: 2024-05-06T07:08:09.123Z\n")
	assert.Contains(t, md, "- Page: https://chatgpt.com/c/42\n")
	assert.Contains(t, md, "- Count: 2\n")
	assert.Contains(t, md, "---\n## 1. [User] Question\n- Key: `known:u1|r:user`\n\n~~~text\nline one\nline two\n~~~\n")
	assert.Contains(t, md, "## 3. [Unknown] 3. fenced\n- Key: `h:abc|r:unknown|i:2`\n\n```text\na ~~~ b\n```\n")
	assert.NotContains(t, md, "\r")
	assert.True(t, strings.HasSuffix(md, "```\n"))
}

func TestRenderMarkdown_NoItems(t *testing.T) {
	md, err := RenderMarkdown(nil, Meta{ExportedAt: time.Unix(0, 0), Page: "p"})
	require.NoError(t, err)
	assert.Contains(t, md, "- Count: 0\n")
	assert.NotContains(t, md, "---")
}

func TestRenderHTML(t *testing.T) {
	items := []Item{{Ordinal: 1, Key: "k", Role: layout.RoleAssistant, Title: "Answer", Content: "<b>not bold</b>"}}
	out, err := RenderHTML(items, Meta{ExportedAt: time.Unix(0, 0), Page: "https://chatgpt.com/c/1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<h2>1. [Assistant] Answer</h2>")
	assert.Contains(t, out, "&lt;b&gt;not bold&lt;/b&gt;")
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "chatgpt_favorites_20240102_030405.md", Filename(at, FormatMarkdown))
	assert.Equal(t, "chatgpt_favorites_20240102_030405.html", Filename(at, FormatHTML))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	f, err = ParseFormat("HTML")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)
	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	items := []Item{{Ordinal: 1, Key: "k", Role: layout.RoleUser, Title: "T", Content: "c"}}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := WriteFile(dir, items, Meta{ExportedAt: at, Page: "p"}, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chatgpt_favorites_20240102_030405.md"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "## 1. [User] T")

	_, err = WriteFile(dir, nil, Meta{}, FormatMarkdown)
	assert.ErrorIs(t, err, ErrNothingToExport)
}
