package stdlib

import (
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// collectionBuiltins implements the array/map/pair built-ins: select_first,
// select_all, defined, length, range, zip, cross, flatten, as_pairs,
// as_map, keys, unzip.
func collectionBuiltins() []Function {
	return []Function{
		selectFirstFn(),
		selectAllFn(),
		definedFn(),
		lengthFn(),
		rangeFn(),
		zipFn(),
		crossFn(),
		flattenFn(),
		asPairsFn(),
		asMapFn(),
		keysFn(),
		unzipFn(),
	}
}

func selectFirstFn() Function {
	return Function{
		Name: "select_first",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{TypeVar: "A", Project: ProjectElemRequired},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			arr, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			for _, e := range arr.AsArray() {
				if e.Type.Kind != wdltype.KindNone {
					return e, nil
				}
			}

			return value.Value{}, fmt.Errorf("select_first: all elements are None")
		},
	}
}

func selectAllFn() Function {
	return Function{
		Name: "select_all",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{TypeVar: "A", Project: ProjectArrayOfElemRequired},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			arr, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			elemType := arr.Type.Elem.Required()

			var out []value.Value

			for _, e := range arr.AsArray() {
				if e.Type.Kind != wdltype.KindNone {
					out = append(out, e)
				}
			}

			return value.Array(elemType, out), nil
		},
	}
}

func definedFn() Function {
	return Function{
		Name: "defined",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{Concrete: wdltype.Boolean()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			return value.Bool(a.Type.Kind != wdltype.KindNone), nil
		},
	}
}

func lengthFn() Function {
	return Function{
		Name: "length",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{Concrete: wdltype.Int()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			switch a.Type.Kind {
			case wdltype.KindArray:
				return value.Int(int64(len(a.AsArray()))), nil
			case wdltype.KindMap:
				keys, _ := a.MapEntries()

				return value.Int(int64(len(keys))), nil
			default:
				return value.Value{}, fmt.Errorf("length: not an Array or Map")
			}
		},
	}
}

func rangeFn() Function {
	return Function{
		Name: "range",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.Int()}},
			Return: Return{Concrete: wdltype.Array(wdltype.Int(), false)},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			n, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			count := n.AsInt()
			if count < 0 {
				return value.Value{}, fmt.Errorf("range: negative count %d", count)
			}

			out := make([]value.Value, count)
			for i := int64(0); i < count; i++ {
				out[i] = value.Int(i)
			}

			return value.Array(wdltype.Int(), out), nil
		},
	}
}

func zipFn() Function {
	return Function{
		Name: "zip",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}, {TypeVar: "B"}},
			DynamicReturn: func(args []wdltype.Type) (wdltype.Type, error) {
				if len(args) != 2 || args[0].Elem == nil || args[1].Elem == nil {
					return wdltype.Type{}, fmt.Errorf("zip requires two arrays")
				}

				return wdltype.Array(wdltype.Pair(*args[0].Elem, *args[1].Elem), false), nil
			},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			b, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			ae, be := a.AsArray(), b.AsArray()
			if len(ae) != len(be) {
				return value.Value{}, fmt.Errorf("zip: array length mismatch (%d vs %d)", len(ae), len(be))
			}

			out := make([]value.Value, len(ae))
			for i := range ae {
				out[i] = value.Pair(ae[i], be[i])
			}

			return value.Array(wdltype.Pair(*a.Type.Elem, *b.Type.Elem), out), nil
		},
	}
}

func crossFn() Function {
	return Function{
		Name: "cross",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}, {TypeVar: "B"}},
			DynamicReturn: func(args []wdltype.Type) (wdltype.Type, error) {
				if len(args) != 2 || args[0].Elem == nil || args[1].Elem == nil {
					return wdltype.Type{}, fmt.Errorf("cross requires two arrays")
				}

				return wdltype.Array(wdltype.Pair(*args[0].Elem, *args[1].Elem), false), nil
			},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			b, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			var out []value.Value

			for _, ea := range a.AsArray() {
				for _, eb := range b.AsArray() {
					out = append(out, value.Pair(ea, eb))
				}
			}

			return value.Array(wdltype.Pair(*a.Type.Elem, *b.Type.Elem), out), nil
		},
	}
}

func flattenFn() Function {
	return Function{
		Name: "flatten",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{TypeVar: "A", Project: ProjectElem},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			var out []value.Value

			for _, inner := range a.AsArray() {
				out = append(out, inner.AsArray()...)
			}

			return value.Array(*a.Type.Elem.Elem, out), nil
		},
	}
}

func asPairsFn() Function {
	return Function{
		Name: "as_pairs",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			DynamicReturn: func(args []wdltype.Type) (wdltype.Type, error) {
				if len(args) != 1 || args[0].Kind != wdltype.KindMap {
					return wdltype.Type{}, fmt.Errorf("as_pairs requires a Map")
				}

				return wdltype.Array(wdltype.Pair(*args[0].Key, *args[0].Elem), false), nil
			},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			m, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			keys, vals := m.MapEntries()
			out := make([]value.Value, len(keys))

			for i := range keys {
				out[i] = value.Pair(keys[i], vals[i])
			}

			return value.Array(wdltype.Pair(*m.Type.Key, *m.Type.Elem), out), nil
		},
	}
}

func asMapFn() Function {
	return Function{
		Name: "as_map",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			DynamicReturn: func(args []wdltype.Type) (wdltype.Type, error) {
				if len(args) != 1 || args[0].Elem == nil || args[0].Elem.Kind != wdltype.KindPair {
					return wdltype.Type{}, fmt.Errorf("as_map requires an Array[Pair[K, V]]")
				}

				return wdltype.Map(*args[0].Elem.Elem, *args[0].Elem.PairSecond), nil
			},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			pairElem := *a.Type.Elem

			var keys, vals []value.Value

			for _, p := range a.AsArray() {
				k, v := p.AsPair()
				keys = append(keys, k)
				vals = append(vals, v)
			}

			return value.MapVal(*pairElem.Elem, *pairElem.PairSecond, keys, vals), nil
		},
	}
}

func keysFn() Function {
	return Function{
		Name: "keys",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{TypeVar: "A", Project: ProjectKey},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			m, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			keys, _ := m.MapEntries()

			return value.Array(*m.Type.Key, keys), nil
		},
	}
}

func unzipFn() Function {
	return Function{
		Name: "unzip",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			DynamicReturn: func(args []wdltype.Type) (wdltype.Type, error) {
				if len(args) != 1 || args[0].Elem == nil || args[0].Elem.Kind != wdltype.KindPair {
					return wdltype.Type{}, fmt.Errorf("unzip requires an Array[Pair[X, Y]]")
				}

				pair := *args[0].Elem

				return wdltype.Pair(wdltype.Array(*pair.Elem, false), wdltype.Array(*pair.PairSecond, false)), nil
			},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			pairElem := *a.Type.Elem

			var lefts, rights []value.Value

			for _, p := range a.AsArray() {
				l, r := p.AsPair()
				lefts = append(lefts, l)
				rights = append(rights, r)
			}

			return value.Pair(
				value.Array(*pairElem.Elem, lefts),
				value.Array(*pairElem.PairSecond, rights),
			), nil
		},
	}
}
