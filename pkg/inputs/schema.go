package inputs

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// BuildSchema derives a JSON Schema document from a target's declared
// input fields: one property per field, required unless the field's type
// is optional. This is the schema xeipuuv/gojsonschema validates a run's
// raw inputs against before the analyzer is asked to coerce them, giving a
// cheap first-pass rejection of structurally-wrong JSON (spec.md §4.11).
func BuildSchema(fields []wdltype.StructField) map[string]any {
	properties := make(map[string]any, len(fields))

	var required []string

	for _, f := range fields {
		properties[f.Name] = schemaForType(f.Type)

		if !f.Type.Optional {
			required = append(required, f.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func schemaForType(t wdltype.Type) map[string]any {
	switch t.Kind {
	case wdltype.KindBoolean:
		return map[string]any{"type": jsonTypes("boolean", t.Optional)}
	case wdltype.KindInt:
		return map[string]any{"type": jsonTypes("integer", t.Optional)}
	case wdltype.KindFloat:
		return map[string]any{"type": jsonTypes("number", t.Optional)}
	case wdltype.KindString, wdltype.KindFile, wdltype.KindDirectory:
		return map[string]any{"type": jsonTypes("string", t.Optional)}
	case wdltype.KindArray:
		schema := map[string]any{
			"type":  jsonTypes("array", t.Optional),
			"items": schemaForType(*t.Elem),
		}

		if t.NonEmpty {
			schema["minItems"] = 1
		}

		return schema
	case wdltype.KindMap:
		return map[string]any{
			"type":                 jsonTypes("object", t.Optional),
			"additionalProperties": schemaForType(*t.Elem),
		}
	case wdltype.KindPair:
		return map[string]any{
			"type":     jsonTypes("object", t.Optional),
			"required": []string{"left", "right"},
			"properties": map[string]any{
				"left":  schemaForType(*t.Elem),
				"right": schemaForType(*t.PairSecond),
			},
		}
	default:
		// Struct/Object and any other kind: field types live in a
		// per-document Registry this package doesn't carry, so any JSON
		// object is accepted without checking its fields; non-object
		// values are rejected.
		return map[string]any{"type": jsonTypes("object", t.Optional)}
	}
}

func jsonTypes(primary string, optional bool) any {
	if !optional {
		return primary
	}

	return []string{primary, "null"}
}

// Validate runs raw against the schema derived from fields and returns a
// single combined error describing every violation, or nil if raw is
// structurally valid.
func Validate(raw map[string]any, fields []wdltype.StructField) error {
	schemaLoader := gojsonschema.NewGoLoader(BuildSchema(fields))
	docLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("inputs: schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		messages = append(messages, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("inputs: invalid inputs: %s", strings.Join(messages, "; "))
}
