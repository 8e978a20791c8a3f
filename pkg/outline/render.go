package outline

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// Row is the serializable view of an Entry.
type Row struct {
	Ordinal  int    `json:"ordinal"`
	Key      string `json:"key"`
	Role     string `json:"role"`
	Label    string `json:"label"`
	Favorite bool   `json:"favorite"`
	Selector string `json:"selector,omitempty"`
}

func (o *Outline) Rows() []Row {
	rows := make([]Row, 0, len(o.Entries))
	for _, e := range o.Entries {
		rows = append(rows, Row{
			Ordinal:  e.Ordinal,
			Key:      e.Key.String(),
			Role:     string(e.Role),
			Label:    e.Label,
			Favorite: e.Favorite,
			Selector: dom.CSSPath(e.Region),
		})
	}
	return rows
}

// WriteText renders the outline the way the panel lays it out: a title with
// the turn count, then one line per entry.
func WriteText(w io.Writer, o *Outline) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation outline (%d)\n", o.Total)
	if msg := o.EmptyMessage(); msg != "" {
		fmt.Fprintf(&b, "  %s\n", msg)
	}
	for _, e := range o.Entries {
		star := "☆"
		if e.Favorite {
			star = "★"
		}
		fmt.Fprintf(&b, "  [%s] %s %s  (%s)\n", e.Role.Badge(), star, e.Label, e.Key)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriterPanel prints every rebuild to W.
type WriterPanel struct {
	W io.Writer
}

func (p *WriterPanel) Render(o *Outline) {
	if err := WriteText(p.W, o); err != nil {
		log.Warn().Err(err).Msg("could not render outline")
	}
}
