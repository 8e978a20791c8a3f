package cmds

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/chatnav/pkg/annotations"
)

func pageAndTurnArguments() cmds.CommandDescriptionOption {
	return cmds.WithArguments(
		parameters.NewParameterDefinition(
			"page",
			parameters.ParameterTypeString,
			parameters.WithHelp("HTML file or URL of the chat page"),
			parameters.WithRequired(true),
		),
		parameters.NewParameterDefinition(
			"turn",
			parameters.ParameterTypeString,
			parameters.WithHelp("Key of the turn, or its 1-based position in the outline"),
			parameters.WithRequired(true),
		),
	)
}

type StarSettings struct {
	Page string `glazed.parameter:"page"`
	Turn string `glazed.parameter:"turn"`
}

type StarCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*StarCommand)(nil)

func NewStarCommand() (*StarCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &StarCommand{
		CommandDescription: cmds.NewCommandDescription(
			"star",
			cmds.WithShort("Toggle the favorite flag of a turn"),
			pageAndTurnArguments(),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *StarCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &StarSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize star settings")
	}
	return runStar(ctx, s, gp)
}

func runStar(ctx context.Context, s *StarSettings, gp rowProcessor) error {
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
	a, err := p.notes.ToggleFavorite(ctx, key)
	if err != nil {
		return err
	}
	e, _ := p.outline(false).Find(key)
	return gp.AddRow(ctx, types.NewRow(
		types.MRP("ordinal", e.Ordinal),
		types.MRP("favorite", a.IsFavorite()),
		types.MRP("label", e.Label),
		types.MRP("key", key.String()),
	))
}

type RenameSettings struct {
	Page        string   `glazed.parameter:"page"`
	Turn        string   `glazed.parameter:"turn"`
	Name        []string `glazed.parameter:"name"`
	Interactive bool     `glazed.parameter:"interactive"`
}

type RenameCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*RenameCommand)(nil)

func NewRenameCommand() (*RenameCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &RenameCommand{
		CommandDescription: cmds.NewCommandDescription(
			"rename",
			cmds.WithShort("Set the custom name of a turn, no name restores the default label"),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"page",
					parameters.ParameterTypeString,
					parameters.WithHelp("HTML file or URL of the chat page"),
					parameters.WithRequired(true),
				),
				parameters.NewParameterDefinition(
					"turn",
					parameters.ParameterTypeString,
					parameters.WithHelp("Key of the turn, or its 1-based position in the outline"),
					parameters.WithRequired(true),
				),
				parameters.NewParameterDefinition(
					"name",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("New name, joined with spaces"),
				),
			),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"interactive",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Prompt for the name on the terminal when none is given"),
					parameters.WithDefault(false),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *RenameCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &RenameSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "could not initialize rename settings")
	}
	return runRename(ctx, s, gp)
}

func runRename(ctx context.Context, s *RenameSettings, gp rowProcessor) error {
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

	name := strings.Join(s.Name, " ")
	if s.Interactive && len(s.Name) == 0 {
		name, err = askName(p.notes.Get(key).DisplayName())
		if err != nil {
			return err
		}
	}

	a, err := p.notes.Rename(ctx, key, name)
	if err != nil {
		return err
	}

	e, _ := p.outline(false).Find(key)
	return gp.AddRow(ctx, types.NewRow(
		types.MRP("ordinal", e.Ordinal),
		types.MRP("name", a.DisplayName()),
		types.MRP("label", e.Label),
		types.MRP("key", key.String()),
	))
}

// askName prompts for a turn name, showing the current one.
func askName(current string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("--interactive needs a terminal on stdin")
	}
	ui := &input.UI{
		Writer: os.Stderr,
		Reader: os.Stdin,
	}
	query := "Name (empty restores the default label)"
	if current != "" {
		query = fmt.Sprintf("Name, currently %q (empty restores the default label)", current)
	}
	return ui.Ask(query, &input.Options{
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			if utf16Len(strings.TrimSpace(answer)) > annotations.MaxNameLength {
				return fmt.Errorf("names are limited to %d characters", annotations.MaxNameLength)
			}
			return nil
		},
	})
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
