// Package inputs loads a run's bound inputs from a JSON or YAML file,
// validates them against a target's declared input types (spec.md §4.11's
// Submit validation step), and converts the validated raw values into
// value.Value bindings the evaluator can coerce further.
package inputs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Format is the raw input file's serialization.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// DetectFormat picks a Format from path's extension, defaulting to JSON for
// anything that isn't recognizably YAML.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}

	return FormatJSON
}

// LoadFile reads path and parses it per DetectFormat.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied run input file.
	if err != nil {
		return nil, fmt.Errorf("inputs: read %q: %w", path, err)
	}

	return Parse(data, DetectFormat(path))
}

// Parse decodes data as format, repairing near-miss JSON (trailing commas,
// unquoted keys from hand-edited files) via kaptinlin/jsonrepair before
// falling through to a strict-parse error, grounded on cklxx-elephant.ai's
// use of the same library to recover malformed LLM-authored tool-call JSON.
func Parse(data []byte, format Format) (map[string]any, error) {
	if format == FormatYAML {
		var out map[string]any

		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("inputs: parse yaml: %w", err)
		}

		return out, nil
	}

	out, err := decodeJSONNumbers(data)
	if err == nil {
		return out, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return nil, fmt.Errorf("inputs: parse json: %w (repair also failed: %w)", err, repairErr)
	}

	out, err = decodeJSONNumbers([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("inputs: parse repaired json: %w", err)
	}

	return out, nil
}

// decodeJSONNumbers decodes with UseNumber so integer-typed inputs survive
// round-tripping without forcibly widening to float64, matching the
// teacher's own json.Decoder.UseNumber() idiom in cmd/uast/validate.go.
func decodeJSONNumbers(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out map[string]any

	if err := dec.Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}

// fieldsByName indexes fields for ToValues/schema-building lookups.
func fieldsByName(fields []wdltype.StructField) map[string]wdltype.Type {
	out := make(map[string]wdltype.Type, len(fields))

	for _, f := range fields {
		out[f.Name] = f.Type
	}

	return out
}
