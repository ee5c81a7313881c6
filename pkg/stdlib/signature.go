// Package stdlib implements the WDL standard library descriptor table: a
// fixed set of built-in functions, each with one or more typed signatures,
// a purity flag, and a callback invoked once overload resolution has picked
// a matching signature (spec.md §4.4).
package stdlib

import (
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Constraint restricts which concrete Kinds a TypeVar may bind to.
type Constraint int

const (
	// ConstraintAny accepts any type.
	ConstraintAny Constraint = iota
	// ConstraintPrimitive accepts only the six primitive kinds.
	ConstraintPrimitive
)

// Param is one formal parameter: either a concrete Type (TypeVar == "") or a
// reference to a type variable bound during overload resolution.
type Param struct {
	TypeVar    string
	Constraint Constraint
	Concrete   wdltype.Type
	Optional   bool
}

// Return describes a signature's result type, which may reference a bound
// TypeVar (e.g. "returns Array[X] given X bound from the first argument") or
// be wrapped in Elem/KeyOf/ValOf to project a compound type var's component.
type Return struct {
	TypeVar  string
	Project  Projection
	Concrete wdltype.Type
}

// Projection extracts a component type from a bound TypeVar's concrete type,
// e.g. the element type of an Array[X] argument.
type Projection int

const (
	ProjectNone Projection = iota
	ProjectElem
	ProjectKey
	ProjectArrayOf
	ProjectOptionalOf
	// ProjectElemRequired projects a bound Array[X?] var's element type with
	// its optional bit stripped (e.g. select_first).
	ProjectElemRequired
	// ProjectArrayOfElemRequired projects Array[X] from a bound Array[X?]
	// var, stripping the element's optional bit (e.g. select_all).
	ProjectArrayOfElemRequired
)

// Signature is one typed overload of a Function.
type Signature struct {
	Params   []Param
	Variadic bool
	Return   Return

	// DynamicReturn, when set, computes the return type directly from the
	// actual argument types instead of Return's single-TypeVar projection.
	// Used for signatures whose result shape combines more than one bound
	// type variable (e.g. zip's Array[Pair[X, Y]] from two array arguments).
	DynamicReturn func(args []wdltype.Type) (wdltype.Type, error)
}

// substitution maps TypeVar names to the concrete Type they resolved to
// during a single overload-match attempt.
type substitution map[string]wdltype.Type

// match attempts to bind sig's type variables against args' types,
// returning the substitution on success. Params are matched positionally;
// Variadic means the final Param type repeats for any extra positional args.
func (sig Signature) match(args []wdltype.Type) (substitution, bool) {
	if sig.Variadic {
		if len(args) < len(sig.Params)-1 {
			return nil, false
		}
	} else if len(args) != len(sig.Params) {
		return nil, false
	}

	sub := substitution{}

	for i, arg := range args {
		p := sig.Params[minInt(i, len(sig.Params)-1)]
		if !p.accepts(arg, sub) {
			return nil, false
		}
	}

	return sub, true
}

func (p Param) accepts(arg wdltype.Type, sub substitution) bool {
	if p.TypeVar == "" {
		return wdltype.Coerces(arg, p.Concrete)
	}

	if p.Constraint == ConstraintPrimitive && !arg.IsPrimitive() && arg.Kind != wdltype.KindNone {
		return false
	}

	if bound, ok := sub[p.TypeVar]; ok {
		unified, ok := wdltype.Unify(bound, arg)
		if !ok {
			return false
		}

		sub[p.TypeVar] = unified

		return true
	}

	sub[p.TypeVar] = arg

	return true
}

func (r Return) resolve(sub substitution) (wdltype.Type, error) {
	if r.TypeVar == "" {
		return r.Concrete, nil
	}

	bound, ok := sub[r.TypeVar]
	if !ok {
		return wdltype.Type{}, fmt.Errorf("unbound type variable %q in return position", r.TypeVar)
	}

	switch r.Project {
	case ProjectElem:
		if bound.Elem == nil {
			return wdltype.Type{}, fmt.Errorf("type variable %q not a compound type", r.TypeVar)
		}

		return *bound.Elem, nil
	case ProjectKey:
		if bound.Key == nil {
			return wdltype.Type{}, fmt.Errorf("type variable %q has no key type", r.TypeVar)
		}

		return *bound.Key, nil
	case ProjectArrayOf:
		return wdltype.Array(bound, false), nil
	case ProjectOptionalOf:
		return bound.Opt(), nil
	case ProjectElemRequired:
		if bound.Elem == nil {
			return wdltype.Type{}, fmt.Errorf("type variable %q not a compound type", r.TypeVar)
		}

		return bound.Elem.Required(), nil
	case ProjectArrayOfElemRequired:
		if bound.Elem == nil {
			return wdltype.Type{}, fmt.Errorf("type variable %q not a compound type", r.TypeVar)
		}

		return wdltype.Array(bound.Elem.Required(), false), nil
	default:
		return bound, nil
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
