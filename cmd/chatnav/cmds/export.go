package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/export"
)

type ExportSettings struct {
	Page   string `glazed.parameter:"page"`
	Format string `glazed.parameter:"format"`
	Dir    string `glazed.parameter:"dir"`
	Stdout bool   `glazed.parameter:"stdout"`
	Raw    bool   `glazed.parameter:"raw"`
}

type ExportCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*ExportCommand)(nil)

func NewExportCommand() (*ExportCommand, error) {
	return &ExportCommand{
		CommandDescription: cmds.NewCommandDescription(
			"export",
			cmds.WithShort("Export the favorite turns of a page"),
			cmds.WithLong("Writes the favorite turns of a page, in page order, to chatgpt_favorites_<timestamp>.md (or .html) and prints the path."),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"page",
					parameters.ParameterTypeString,
					parameters.WithHelp("HTML file or URL of the chat page"),
				),
			),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"format",
					parameters.ParameterTypeString,
					parameters.WithHelp("Export format (md, html)"),
					parameters.WithDefault("md"),
				),
				parameters.NewParameterDefinition(
					"dir",
					parameters.ParameterTypeString,
					parameters.WithHelp("Directory to write the export to"),
					parameters.WithDefault("."),
				),
				parameters.NewParameterDefinition(
					"stdout",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Print the export instead of writing a file"),
					parameters.WithDefault(false),
				),
				parameters.NewParameterDefinition(
					"raw",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Print Markdown unstyled even on a terminal"),
					parameters.WithDefault(false),
				),
			),
		),
	}, nil
}

func (c *ExportCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &ExportSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize export settings")
	}
	return runExport(ctx, s, w)
}

func runExport(ctx context.Context, s *ExportSettings, w io.Writer) error {
	format, err := export.ParseFormat(s.Format)
	if err != nil {
		return err
	}

	p, err := openPage(ctx, s.Page)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
	}()

	items, err := export.CollectFavorites(p.strategy, p.doc, p.notes)
	if errors.Is(err, export.ErrNothingToExport) {
		_, err = fmt.Fprintln(w, "No favorite turns on this page, star some with `chatnav star` first.")
		return err
	}
	if err != nil {
		return err
	}

	meta := export.Meta{ExportedAt: time.Now(), Page: p.doc.URL}
	if s.Stdout {
		doc, err := export.Render(items, meta, format)
		if err != nil {
			return err
		}
		if format == export.FormatMarkdown && !s.Raw && w == os.Stdout && isatty.IsTerminal(os.Stdout.Fd()) {
			doc, err = glamour.Render(doc, "dark")
			if err != nil {
				return err
			}
		}
		_, err = fmt.Fprint(w, doc)
		return err
	}

	path, err := export.WriteFile(s.Dir, items, meta, format)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("count", len(items)).Msg("exported favorites")
	_, err = fmt.Fprintln(w, path)
	return err
}
