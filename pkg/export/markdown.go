package export

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const (
	// FilenamePrefix starts every exported file name.
	FilenamePrefix  = "chatgpt_favorites_"
	timestampLayout = "20060102_150405"
	isoLayout       = "2006-01-02T15:04:05.000Z"
)

// Meta describes the export itself.
type Meta struct {
	ExportedAt time.Time
	Page       string
}

const markdownTemplate = `# ChatGPT favorites export
- ExportedAt: {{ .ExportedAt }}
- Page: {{ .Page }}
- Count: {{ len .Items }}

> The messages starred in this conversation, exported verbatim so they can be pasted back into a chat.

{{ range .Items -}}
---
## {{ .Ordinal }}. [{{ .Role.Label }}] {{ .Title }}
- Key: ` + "`{{ .Key }}`" + `

{{ fenceOpen .Content }}
{{ .Content | replace "\r\n" "\n" }}
{{ fenceClose .Content }}

{{ end -}}
`

var markdownTmpl = template.Must(
	template.New("export").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"fenceOpen": func(content string) string {
				open, _ := fenceFor(content)
				return open
			},
			"fenceClose": func(content string) string {
				_, end := fenceFor(content)
				return end
			},
		}).
		Parse(markdownTemplate))

// RenderMarkdown lays items out as a Markdown document: a header with the
// export metadata, then one section per item with its content fenced
// verbatim.
func RenderMarkdown(items []Item, meta Meta) (string, error) {
	data := struct {
		ExportedAt string
		Page       string
		Items      []Item
	}{
		ExportedAt: meta.ExportedAt.UTC().Format(isoLayout),
		Page:       meta.Page,
		Items:      items,
	}

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render export as markdown")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// fenceFor uses a tilde fence unless the content contains one.
func fenceFor(content string) (string, string) {
	if strings.Contains(content, "~~~") {
		return "```text", "```"
	}
	return "~~~text", "~~~"
}

// Filename is the file name of an export made at t, in t's location.
func Filename(t time.Time, format Format) string {
	return FilenamePrefix + t.Format(timestampLayout) + "." + format.Extension()
}
