package annotations

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// stateSchema checks the fields this package reads. Unknown fields are
// allowed at every level.
const stateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "items": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "fav": {"type": "boolean"}
        }
      }
    }
  }
}`

var stateSchemaLoader = gojsonschema.NewStringLoader(stateSchema)

// ValidatePayload checks that b is an annotation document with well-typed
// known fields. Decoding is more lenient; validation is for imports.
func ValidatePayload(b []byte) error {
	result, err := gojsonschema.Validate(stateSchemaLoader, gojsonschema.NewBytesLoader(b))
	if err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.Wrap(ErrInvalidPayload, strings.Join(msgs, "; "))
}

// ParseImport validates and decodes an annotation document.
func ParseImport(b []byte) (*State, error) {
	if err := ValidatePayload(b); err != nil {
		return nil, err
	}
	return DecodeState(b)
}
