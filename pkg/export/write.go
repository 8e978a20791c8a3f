package export

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

func (f Format) Extension() string {
	if f == FormatHTML {
		return "html"
	}
	return "md"
}

// Render produces the export document in format.
func Render(items []Item, meta Meta, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return RenderMarkdown(items, meta)
	case FormatHTML:
		return RenderHTML(items, meta)
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// WriteFile renders items into dir under a timestamped file name and
// returns the path written.
func WriteFile(dir string, items []Item, meta Meta, format Format) (string, error) {
	if len(items) == 0 {
		return "", ErrNothingToExport
	}
	if meta.ExportedAt.IsZero() {
		meta.ExportedAt = time.Now()
	}
	doc, err := Render(items, meta, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create export directory %s", dir)
	}
	path := filepath.Join(dir, Filename(meta.ExportedAt, format))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", errors.Wrapf(err, "write export %s", path)
	}
	log.Debug().Str("path", path).Int("items", len(items)).Msg("wrote export")
	return path, nil
}
