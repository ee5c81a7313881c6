package stdlib

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// stringBuiltins implements sub, basename, sep, prefix, suffix, quote,
// squote.
func stringBuiltins() []Function {
	return []Function{
		subFn(),
		basenameFn(),
		sepFn(),
		affixFn("prefix", true),
		affixFn("suffix", false),
		quoteFn("quote", `"`),
		quoteFn("squote", `'`),
	}
}

func subFn() Function {
	return Function{
		Name: "sub",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.String()}, {Concrete: wdltype.String()}, {Concrete: wdltype.String()}},
			Return: Return{Concrete: wdltype.String()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			input, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			pattern, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			replacement, err := requireArg(cc, 2)
			if err != nil {
				return value.Value{}, err
			}

			re, err := regexp.Compile(pattern.AsString())
			if err != nil {
				return value.Value{}, err
			}

			return value.Str(re.ReplaceAllString(input.AsString(), replacement.AsString())), nil
		},
	}
}

func basenameFn() Function {
	strip := func(s, suffix string) string {
		base := filepath.Base(s)

		return strings.TrimSuffix(base, suffix)
	}

	return Function{
		Name: "basename",
		Pure: true,
		Signatures: []Signature{
			{
				Params: []Param{{Concrete: wdltype.String()}},
				Return: Return{Concrete: wdltype.String()},
			},
			{
				Params: []Param{{Concrete: wdltype.String()}, {Concrete: wdltype.String()}},
				Return: Return{Concrete: wdltype.String()},
			},
		},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			suffix := ""
			if len(cc.Args) > 1 {
				suffix = cc.Args[1].AsString()
			}

			return value.Str(strip(a.AsString(), suffix)), nil
		},
	}
}

func sepFn() Function {
	return Function{
		Name: "sep",
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.String()}, {Concrete: wdltype.Array(wdltype.String(), false)}},
			Return: Return{Concrete: wdltype.String()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			separator, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			arr, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			parts := make([]string, len(arr.AsArray()))
			for i, e := range arr.AsArray() {
				parts[i] = e.AsString()
			}

			return value.Str(strings.Join(parts, separator.AsString())), nil
		},
	}
}

func affixFn(name string, isPrefix bool) Function {
	return Function{
		Name: name,
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.String()}, {TypeVar: "A"}},
			Return: Return{Concrete: wdltype.Array(wdltype.String(), false)},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			affixVal, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			arr, err := requireArg(cc, 1)
			if err != nil {
				return value.Value{}, err
			}

			affix := affixVal.AsString()
			out := make([]value.Value, len(arr.AsArray()))

			for i, e := range arr.AsArray() {
				if isPrefix {
					out[i] = value.Str(affix + e.String())
				} else {
					out[i] = value.Str(e.String() + affix)
				}
			}

			return value.Array(wdltype.String(), out), nil
		},
	}
}

func quoteFn(name, quoteChar string) Function {
	return Function{
		Name: name,
		Pure: true,
		Signatures: []Signature{{
			Params: []Param{{TypeVar: "A"}},
			Return: Return{Concrete: wdltype.Array(wdltype.String(), false)},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			arr, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			out := make([]value.Value, len(arr.AsArray()))
			for i, e := range arr.AsArray() {
				out[i] = value.Str(quoteChar + e.String() + quoteChar)
			}

			return value.Array(wdltype.String(), out), nil
		},
	}
}
