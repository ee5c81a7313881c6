package inputs

import (
	"encoding/json"
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// ToValues converts raw (already schema-validated) JSON/YAML data into
// value.Value bindings for every field raw has an entry for. Fields raw
// omits are left unbound; the evaluator's own input-declaration defaults
// (if any) apply downstream.
func ToValues(raw map[string]any, fields []wdltype.StructField) (map[string]value.Value, error) {
	byName := fieldsByName(fields)
	out := make(map[string]value.Value, len(raw))

	for name, v := range raw {
		t, ok := byName[name]
		if !ok {
			continue
		}

		converted, err := fromAny(v, t)
		if err != nil {
			return nil, fmt.Errorf("inputs: field %q: %w", name, err)
		}

		out[name] = converted
	}

	return out, nil
}

func fromAny(v any, t wdltype.Type) (value.Value, error) {
	if v == nil {
		if t.Optional {
			return value.None(), nil
		}

		return value.Value{}, fmt.Errorf("got null for required type %s", t)
	}

	switch t.Kind {
	case wdltype.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return value.Value{}, fmt.Errorf("expected boolean, got %T", v)
		}

		return value.Bool(b), nil

	case wdltype.KindInt:
		i, err := asInt64(v)
		if err != nil {
			return value.Value{}, err
		}

		return value.Int(i), nil

	case wdltype.KindFloat:
		f, err := asFloat64(v)
		if err != nil {
			return value.Value{}, err
		}

		return value.Float(f), nil

	case wdltype.KindString:
		s, ok := v.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected string, got %T", v)
		}

		return value.Str(s), nil

	case wdltype.KindFile:
		s, ok := v.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected file path string, got %T", v)
		}

		return value.FileVal(s), nil

	case wdltype.KindDirectory:
		s, ok := v.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected directory path string, got %T", v)
		}

		return value.DirVal(s), nil

	case wdltype.KindArray:
		items, ok := v.([]any)
		if !ok {
			return value.Value{}, fmt.Errorf("expected array, got %T", v)
		}

		elems := make([]value.Value, len(items))

		for i, item := range items {
			elem, err := fromAny(item, *t.Elem)
			if err != nil {
				return value.Value{}, fmt.Errorf("index %d: %w", i, err)
			}

			elems[i] = elem
		}

		return value.Array(*t.Elem, elems), nil

	case wdltype.KindMap:
		m, ok := v.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("expected object, got %T", v)
		}

		keys := make([]value.Value, 0, len(m))
		vals := make([]value.Value, 0, len(m))

		for k, raw := range m {
			val, err := fromAny(raw, *t.Elem)
			if err != nil {
				return value.Value{}, fmt.Errorf("key %q: %w", k, err)
			}

			keys = append(keys, value.Str(k))
			vals = append(vals, val)
		}

		return value.MapVal(*t.Key, *t.Elem, keys, vals), nil

	case wdltype.KindPair:
		m, ok := v.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("expected {left, right} object, got %T", v)
		}

		left, err := fromAny(m["left"], *t.Elem)
		if err != nil {
			return value.Value{}, fmt.Errorf("left: %w", err)
		}

		right, err := fromAny(m["right"], *t.PairSecond)
		if err != nil {
			return value.Value{}, fmt.Errorf("right: %w", err)
		}

		return value.Pair(left, right), nil

	case wdltype.KindStruct, wdltype.KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("expected object, got %T", v)
		}

		names := make([]string, 0, len(m))
		vals := make([]value.Value, 0, len(m))

		for k, raw := range m {
			names = append(names, k)
			vals = append(vals, bestEffortFromAny(raw))
		}

		if t.Kind == wdltype.KindStruct {
			return value.Struct(t.Name, names, vals), nil
		}

		return value.ObjectVal(names, vals), nil

	default:
		return value.Value{}, fmt.Errorf("unsupported input type %s", t)
	}
}

// bestEffortFromAny converts an untyped nested field (of a Struct/Object
// whose per-field types live in a document Registry this package doesn't
// carry) using the JSON value's own shape rather than a declared WDL type.
func bestEffortFromAny(v any) value.Value {
	switch typed := v.(type) {
	case nil:
		return value.None()
	case bool:
		return value.Bool(typed)
	case string:
		return value.Str(typed)
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return value.Int(i)
		}

		f, _ := typed.Float64()

		return value.Float(f)
	case float64:
		return value.Float(typed)
	case []any:
		elems := make([]value.Value, len(typed))
		for i, e := range typed {
			elems[i] = bestEffortFromAny(e)
		}

		return value.Array(wdltype.String(), elems)
	case map[string]any:
		names := make([]string, 0, len(typed))
		vals := make([]value.Value, 0, len(typed))

		for k, e := range typed {
			names = append(names, k)
			vals = append(vals, bestEffortFromAny(e))
		}

		return value.ObjectVal(names, vals)
	default:
		return value.Str(fmt.Sprintf("%v", typed))
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
