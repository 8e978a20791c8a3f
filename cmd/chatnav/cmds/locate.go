package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/layout"
	"github.com/go-go-golems/chatnav/pkg/outline"
)

type LocateSettings struct {
	Page string `glazed.parameter:"page"`
	Turn string `glazed.parameter:"turn"`
}

type LocateCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*LocateCommand)(nil)

func NewLocateCommand() (*LocateCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &LocateCommand{
		CommandDescription: cmds.NewCommandDescription(
			"locate",
			cmds.WithShort("Find the element of a turn on the current page"),
			pageAndTurnArguments(),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *LocateCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &LocateSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize locate settings")
	}
	return runLocate(ctx, s, gp)
}

func runLocate(ctx context.Context, s *LocateSettings, gp rowProcessor) error {
	p, err := openPage(ctx, s.Page)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
	}()

	key, err := p.resolveKey(s.Turn)
	if err != nil {
		return err
	}
	region, idx, ok := outline.Locate(p.strategy, p.doc, key)
	if !ok {
		return errors.Errorf("no turn with key %s on this page", key)
	}

	return gp.AddRow(ctx, types.NewRow(
		types.MRP("ordinal", idx+1),
		types.MRP("key", key.String()),
		types.MRP("role", string(p.strategy.Classify(region))),
		types.MRP("selector", dom.CSSPath(region)),
		types.MRP("preview", layout.Prefix(p.strategy.Extract(region), outline.PreviewUnits)),
	))
}
