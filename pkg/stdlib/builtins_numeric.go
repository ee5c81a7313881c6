package stdlib

import (
	"math"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// numericBuiltins implements floor, ceil, round, min, max.
func numericBuiltins() []Function {
	return []Function{
		roundingFn("floor", math.Floor),
		roundingFn("ceil", math.Ceil),
		roundingFn("round", math.Round),
		minMaxFn("min", false),
		minMaxFn("max", true),
	}
}

func roundingFn(name string, op func(float64) float64) Function {
	return Function{
		Name: name,
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.Float()}},
			Return: Return{Concrete: wdltype.Int()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			return value.Int(int64(op(a.AsFloat()))), nil
		},
	}
}

func minMaxFn(name string, wantMax bool) Function {
	pick := func(a, b float64) float64 {
		if wantMax {
			if a > b {
				return a
			}

			return b
		}

		if a < b {
			return a
		}

		return b
	}

	return Function{
		Name: name,
		Pure: true,
		Signatures: []Signature{
			{
				Params: []Param{{Concrete: wdltype.Int()}, {Concrete: wdltype.Int()}},
				Return: Return{Concrete: wdltype.Int()},
			},
			{
				Params: []Param{{Concrete: wdltype.Float()}, {Concrete: wdltype.Float()}},
				Return: Return{Concrete: wdltype.Float()},
			},
		},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			b, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			if a.Type.Kind == wdltype.KindInt && b.Type.Kind == wdltype.KindInt {
				result := pick(float64(a.AsInt()), float64(b.AsInt()))

				return value.Int(int64(result)), nil
			}

			return value.Float(pick(a.AsFloat(), b.AsFloat())), nil
		},
	}
}
