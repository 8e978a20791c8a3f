package cmds

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/invopop/jsonschema"

	"github.com/go-go-golems/chatnav/pkg/events"
)

type SchemaCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*SchemaCommand)(nil)

func NewSchemaCommand() (*SchemaCommand, error) {
	return &SchemaCommand{
		CommandDescription: cmds.NewCommandDescription(
			"schema",
			cmds.WithShort("Print the JSON schemas of the events printed by watch --print-events"),
		),
	}, nil
}

func (c *SchemaCommand) RunIntoWriter(_ context.Context, _ *layers.ParsedLayers, w io.Writer) error {
	return writeEventSchemas(w)
}

func writeEventSchemas(w io.Writer) error {
	r := &jsonschema.Reflector{DoNotReference: true}
	schemas := map[string]*jsonschema.Schema{
		string(events.EventTypeOutlineRebuilt):    r.Reflect(&events.OutlineRebuilt{}),
		string(events.EventTypeAnnotationChanged): r.Reflect(&events.AnnotationChanged{}),
		string(events.EventTypeObserverAttached):  r.Reflect(&events.ObserverAttached{}),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(schemas)
}
