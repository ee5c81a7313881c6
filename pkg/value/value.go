// Package value implements runtime Value: the evaluator's result type,
// carrying a wdltype.Type tag alongside every value so coercion and
// equality can be checked without re-deriving types from shape (spec.md
// §3 "Value").
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Value is a tagged runtime value. Only one of the payload fields is
// meaningful, selected by Type.Kind. Arrays/maps/pairs/structs are shared
// between Values; no method of Value mutates a payload in place.
type Value struct {
	Type wdltype.Type

	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string // also backs File/Directory
	elems     []Value
	pairL     *Value
	pairR     *Value
	fields    map[string]Value // also backs Map[String,_] and Object
	mapKeys   []Value          // preserves Map insertion order; mapVals parallel
	mapVals   []Value
}

// None is the single bottom value.
func None() Value { return Value{Type: wdltype.None()} }

// Bool builds a Boolean value.
func Bool(b bool) Value { return Value{Type: wdltype.Boolean(), boolVal: b} }

// Int builds an Int value.
func Int(i int64) Value { return Value{Type: wdltype.Int(), intVal: i} }

// Float builds a Float value.
func Float(f float64) Value { return Value{Type: wdltype.Float(), floatVal: f} }

// Str builds a String value.
func Str(s string) Value { return Value{Type: wdltype.String(), stringVal: s} }

// FileVal builds a File value from a path.
func FileVal(path string) Value { return Value{Type: wdltype.File(), stringVal: path} }

// DirVal builds a Directory value from a path.
func DirVal(path string) Value { return Value{Type: wdltype.Directory(), stringVal: path} }

// Array builds an Array value of the given element type.
func Array(elemType wdltype.Type, elems []Value) Value {
	return Value{Type: wdltype.Array(elemType, len(elems) > 0), elems: elems}
}

// Pair builds a Pair value.
func Pair(left, right Value) Value {
	l, r := left, right

	return Value{Type: wdltype.Pair(left.Type, right.Type), pairL: &l, pairR: &r}
}

// MapVal builds a Map value, preserving the given key order.
func MapVal(keyType, valType wdltype.Type, keys, vals []Value) Value {
	return Value{Type: wdltype.Map(keyType, valType), mapKeys: keys, mapVals: vals}
}

// Struct builds a named struct value from ordered field name/value pairs.
func Struct(structName string, fieldNames []string, fieldVals []Value) Value {
	fields := make(map[string]Value, len(fieldNames))
	for i, n := range fieldNames {
		fields[n] = fieldVals[i]
	}

	return Value{Type: wdltype.StructRef(structName), fields: fields}
}

// ObjectVal builds an untyped Object value.
func ObjectVal(fieldNames []string, fieldVals []Value) Value {
	fields := make(map[string]Value, len(fieldNames))
	for i, n := range fieldNames {
		fields[n] = fieldVals[i]
	}

	return Value{Type: wdltype.Object(), fields: fields}
}

// AsBool returns the Boolean payload.
func (v Value) AsBool() bool { return v.boolVal }

// AsInt returns the Int payload.
func (v Value) AsInt() int64 { return v.intVal }

// AsFloat returns the Float payload.
func (v Value) AsFloat() float64 { return v.floatVal }

// AsString returns the String/File/Directory payload.
func (v Value) AsString() string { return v.stringVal }

// AsArray returns the Array payload.
func (v Value) AsArray() []Value { return v.elems }

// AsPair returns the Pair payload.
func (v Value) AsPair() (Value, Value) { return *v.pairL, *v.pairR }

// AsField returns a struct/object field by name.
func (v Value) AsField(name string) (Value, bool) {
	f, ok := v.fields[name]

	return f, ok
}

// Fields returns the struct/object's field names in map-iteration order;
// callers needing a stable order should sort the result.
func (v Value) Fields() []string {
	names := make([]string, 0, len(v.fields))
	for n := range v.fields {
		names = append(names, n)
	}

	return names
}

// MapEntries returns the Map payload's keys and values, preserving
// insertion order.
func (v Value) MapEntries() ([]Value, []Value) { return v.mapKeys, v.mapVals }

// MapGet looks up a key by structural equality, returning ok=false on miss.
func (v Value) MapGet(key Value) (Value, bool) {
	for i, k := range v.mapKeys {
		if Equal(k, key) {
			return v.mapVals[i], true
		}
	}

	return Value{}, false
}

// Equal reports structural equality per spec.md §4.5: "arrays/maps/pairs
// compare elementwise."
func Equal(a, b Value) bool {
	if a.Type.Kind == wdltype.KindNone || b.Type.Kind == wdltype.KindNone {
		return a.Type.Kind == b.Type.Kind
	}

	switch a.Type.Kind {
	case wdltype.KindBoolean:
		return a.boolVal == b.boolVal
	case wdltype.KindInt:
		if b.Type.Kind == wdltype.KindFloat {
			return float64(a.intVal) == b.floatVal
		}

		return a.intVal == b.intVal
	case wdltype.KindFloat:
		if b.Type.Kind == wdltype.KindInt {
			return a.floatVal == float64(b.intVal)
		}

		return a.floatVal == b.floatVal
	case wdltype.KindString, wdltype.KindFile, wdltype.KindDirectory:
		return a.stringVal == b.stringVal
	case wdltype.KindArray:
		if len(a.elems) != len(b.elems) {
			return false
		}

		for i := range a.elems {
			if !Equal(a.elems[i], b.elems[i]) {
				return false
			}
		}

		return true
	case wdltype.KindPair:
		return Equal(*a.pairL, *b.pairL) && Equal(*a.pairR, *b.pairR)
	case wdltype.KindMap:
		if len(a.mapKeys) != len(b.mapKeys) {
			return false
		}

		for i, k := range a.mapKeys {
			bv, ok := b.MapGet(k)
			if !ok || !Equal(a.mapVals[i], bv) {
				return false
			}
		}

		return true
	case wdltype.KindStruct, wdltype.KindObject:
		if len(a.fields) != len(b.fields) {
			return false
		}

		for name, av := range a.fields {
			bv, ok := b.fields[name]
			if !ok || !Equal(av, bv) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// String renders v for diagnostics, stdlib string coercion, and logging.
func (v Value) String() string {
	switch v.Type.Kind {
	case wdltype.KindNone:
		return ""
	case wdltype.KindBoolean:
		return fmt.Sprintf("%t", v.boolVal)
	case wdltype.KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case wdltype.KindFloat:
		return fmt.Sprintf("%g", v.floatVal)
	case wdltype.KindString, wdltype.KindFile, wdltype.KindDirectory:
		return v.stringVal
	case wdltype.KindArray:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case wdltype.KindPair:
		return fmt.Sprintf("(%s, %s)", v.pairL, v.pairR)
	case wdltype.KindMap:
		parts := make([]string, len(v.mapKeys))
		for i, k := range v.mapKeys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.mapVals[i])
		}

		return "{" + strings.Join(parts, ", ") + "}"
	case wdltype.KindStruct, wdltype.KindObject:
		names := v.Fields()
		sort.Strings(names)

		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s: %s", n, v.fields[n])
		}

		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}
