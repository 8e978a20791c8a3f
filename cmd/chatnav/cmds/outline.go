package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type OutlineSettings struct {
	Page         string `glazed.parameter:"page"`
	WithSelector bool   `glazed.parameter:"with-selector"`
	WithPage     bool   `glazed.parameter:"with-page"`
}

type OutlineCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*OutlineCommand)(nil)

func NewOutlineCommand() (*OutlineCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &OutlineCommand{
		CommandDescription: cmds.NewCommandDescription(
			"outline",
			cmds.WithShort("Print the outline of a chat page"),
			cmds.WithLong("Scans a chat page once and prints one row per conversation turn, with its key, role, label and favorite flag."),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"page",
					parameters.ParameterTypeString,
					parameters.WithHelp("HTML file or URL of the chat page"),
				),
			),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"with-selector",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Add the CSS path of each turn"),
					parameters.WithDefault(false),
				),
				parameters.NewParameterDefinition(
					"with-page",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Add the page address, layout and signature to each row"),
					parameters.WithDefault(false),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *OutlineCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &OutlineSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize outline settings")
	}
	return runOutline(ctx, s, gp)
}

func runOutline(ctx context.Context, s *OutlineSettings, gp rowProcessor) error {
	p, err := openPage(ctx, s.Page)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
	}()

	o := p.outline(viper.GetBool("only-favorites"))
	if len(o.Entries) == 0 {
		log.Info().Str("url", o.URL).Int("total", o.Total).Msg(o.EmptyMessage())
		return nil
	}

	for _, row := range o.Rows() {
		fields := []types.MapRowPair{
			types.MRP("ordinal", row.Ordinal),
			types.MRP("role", row.Role),
			types.MRP("favorite", row.Favorite),
			types.MRP("label", row.Label),
			types.MRP("key", row.Key),
		}
		if s.WithSelector {
			fields = append(fields, types.MRP("selector", row.Selector))
		}
		if s.WithPage {
			fields = append(fields,
				types.MRP("url", o.URL),
				types.MRP("layout", p.strategy.Name()),
				types.MRP("signature", o.Signature.String()),
			)
		}
		if err := gp.AddRow(ctx, types.NewRow(fields...)); err != nil {
			return err
		}
	}
	return nil
}
