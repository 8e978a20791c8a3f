package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatnav/pkg/annotations"
)

func matchFlag() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"match",
		parameters.ParameterTypeString,
		parameters.WithHelp("Only keys matching this glob pattern"),
		parameters.WithDefault(""),
	)
}

type AnnotationsListSettings struct {
	Match string `glazed.parameter:"match"`
}

type AnnotationsDumpCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*AnnotationsDumpCommand)(nil)

func NewAnnotationsDumpCommand() (*AnnotationsDumpCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &AnnotationsDumpCommand{
		CommandDescription: cmds.NewCommandDescription(
			"dump",
			cmds.WithShort("Print every stored annotation"),
			cmds.WithFlags(matchFlag()),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *AnnotationsDumpCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &AnnotationsListSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize dump settings")
	}
	return runAnnotationsList(ctx, s, false, gp)
}

type AnnotationsFavoritesCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*AnnotationsFavoritesCommand)(nil)

func NewAnnotationsFavoritesCommand() (*AnnotationsFavoritesCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &AnnotationsFavoritesCommand{
		CommandDescription: cmds.NewCommandDescription(
			"favorites",
			cmds.WithShort("List the favorite turns of every page"),
			cmds.WithFlags(matchFlag()),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *AnnotationsFavoritesCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &AnnotationsListSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize favorites settings")
	}
	return runAnnotationsList(ctx, s, true, gp)
}

func runAnnotationsList(ctx context.Context, s *AnnotationsListSettings, onlyFavorites bool, gp rowProcessor) error {
	notes, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = notes.Close()
	}()

	keys, err := notes.Match(s.Match)
	if err != nil {
		return err
	}
	for _, key := range keys {
		a := notes.Get(key)
		if onlyFavorites && !a.IsFavorite() {
			continue
		}
		row := types.NewRow(
			types.MRP("key", key.String()),
			types.MRP("name", a.DisplayName()),
			types.MRP("favorite", a.IsFavorite()),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type AnnotationsImportSettings struct {
	File string `glazed.parameter:"file"`
}

type AnnotationsImportCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*AnnotationsImportCommand)(nil)

func NewAnnotationsImportCommand() (*AnnotationsImportCommand, error) {
	return &AnnotationsImportCommand{
		CommandDescription: cmds.NewCommandDescription(
			"import",
			cmds.WithShort("Merge names and favorites from an annotation JSON document"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"file",
					parameters.ParameterTypeString,
					parameters.WithHelp("JSON document to import, - for stdin"),
					parameters.WithRequired(true),
				),
			),
		),
	}, nil
}

func (c *AnnotationsImportCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &AnnotationsImportSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize import settings")
	}
	return runAnnotationsImport(ctx, s, os.Stdin, w)
}

func runAnnotationsImport(ctx context.Context, s *AnnotationsImportSettings, stdin io.Reader, w io.Writer) error {
	r := stdin
	if s.File != "-" {
		f, err := os.Open(s.File)
		if err != nil {
			return errors.Wrapf(err, "open %s", s.File)
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	state, err := annotations.ParseImport(b)
	if err != nil {
		return err
	}

	notes, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = notes.Close()
	}()

	n, err := notes.Import(ctx, state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "imported %d annotations\n", n)
	return err
}
