package value

import (
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Coerce converts v to target, following wdltype.Coerces' matrix. Callers
// must have already confirmed wdltype.Coerces(v.Type, target) or be prepared
// for an error return (Coerce does not re-derive assignability from scratch
// for compound types, only enough to build the converted payload).
func Coerce(v Value, target wdltype.Type) (Value, error) {
	if v.Type.Kind == wdltype.KindNone {
		if !target.Optional {
			return Value{}, fmt.Errorf("cannot coerce None to non-optional %s", target)
		}

		return v, nil
	}

	converted, err := coerceBase(v, target)
	if err != nil {
		return Value{}, err
	}

	converted.Type = target

	return converted, nil
}

func coerceBase(v Value, target wdltype.Type) (Value, error) {
	if v.Type.Kind == target.Kind {
		return coerceSameKind(v, target)
	}

	switch {
	case v.Type.Kind == wdltype.KindInt && target.Kind == wdltype.KindFloat:
		return Float(float64(v.intVal)), nil
	case v.Type.Kind == wdltype.KindString && (target.Kind == wdltype.KindFile || target.Kind == wdltype.KindDirectory):
		return Value{stringVal: v.stringVal}, nil
	case (v.Type.Kind == wdltype.KindFile || v.Type.Kind == wdltype.KindDirectory) && target.Kind == wdltype.KindString:
		return Value{stringVal: v.stringVal}, nil
	case v.Type.Kind == wdltype.KindStruct && target.Kind == wdltype.KindObject:
		return Value{fields: v.fields}, nil
	default:
		return Value{}, fmt.Errorf("cannot coerce %s to %s", v.Type, target)
	}
}

func coerceSameKind(v Value, target wdltype.Type) (Value, error) {
	switch v.Type.Kind {
	case wdltype.KindArray:
		elems := make([]Value, len(v.elems))

		for i, e := range v.elems {
			ce, err := Coerce(e, *target.Elem)
			if err != nil {
				return Value{}, err
			}

			elems[i] = ce
		}

		return Value{elems: elems}, nil
	case wdltype.KindMap:
		vals := make([]Value, len(v.mapVals))

		for i, mv := range v.mapVals {
			cv, err := Coerce(mv, *target.Elem)
			if err != nil {
				return Value{}, err
			}

			vals[i] = cv
		}

		return Value{mapKeys: v.mapKeys, mapVals: vals}, nil
	case wdltype.KindPair:
		left, err := Coerce(*v.pairL, *target.Elem)
		if err != nil {
			return Value{}, err
		}

		right, err := Coerce(*v.pairR, *target.PairSecond)
		if err != nil {
			return Value{}, err
		}

		return Value{pairL: &left, pairR: &right}, nil
	default:
		return v, nil
	}
}
