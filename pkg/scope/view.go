package scope

import (
	"strings"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// ArrayView wraps the Bindings visible at the outside of a scatter body: a
// declaration of type T inside the body becomes Array[T] outside it, one
// element per scatter iteration (spec.md §4.6 "demotes the scatter body
// into an array-typed view").
type ArrayView struct {
	// iterationScopes is one child Scope per scatter iteration, each a
	// child of the scope the scatter statement lives in.
	iterationScopes []*Scope
}

// NewArrayView wraps a completed set of per-iteration scopes.
func NewArrayView(iterationScopes []*Scope) *ArrayView {
	return &ArrayView{iterationScopes: iterationScopes}
}

// Lookup looks up name in every iteration scope and, if bound in all of
// them, returns the array-typed aggregate Binding. If the name was never
// declared inside the scatter body, ok is false.
func (v *ArrayView) Lookup(name string) (*Binding, bool) {
	if len(v.iterationScopes) == 0 {
		return nil, false
	}

	first, ok := v.iterationScopes[0].table[name]
	if !ok {
		return nil, false
	}

	elems := make([]value.Value, 0, len(v.iterationScopes))
	allBound := true

	for _, iter := range v.iterationScopes {
		b, ok := iter.table[name]
		if !ok {
			return nil, false
		}

		if !b.Bound {
			allBound = false

			continue
		}

		elems = append(elems, b.Value)
	}

	arrType := wdltype.Array(first.Type, false)
	b := &Binding{Name: name, Type: arrType}

	if allBound {
		b.Value = value.Array(first.Type, elems)
		b.Bound = true
	}

	return b, true
}

// OptionalView wraps the Bindings visible at the outside of a conditional
// body: a declaration of type T inside the body becomes T? outside it,
// bound to None when the condition was false (spec.md §4.6).
type OptionalView struct {
	body      *Scope
	condition bool
}

// NewOptionalView wraps a conditional body scope with its evaluated
// condition.
func NewOptionalView(body *Scope, condition bool) *OptionalView {
	return &OptionalView{body: body, condition: condition}
}

// Lookup looks up name inside the conditional body and returns its
// optional-typed view.
func (v *OptionalView) Lookup(name string) (*Binding, bool) {
	inner, ok := v.body.table[name]
	if !ok {
		return nil, false
	}

	optType := inner.Type.Opt()
	b := &Binding{Name: name, Type: optType}

	switch {
	case !v.condition:
		b.Value = value.None()
		b.Bound = true
	case inner.Bound:
		b.Value = inner.Value
		b.Bound = true
	}

	return b, true
}

// QualifiedLookup resolves a dotted name against s: `call_name.output_name`
// for call outputs, or `alias.symbol` for an imported document's exported
// symbol. imports maps an import alias to the root Scope of the imported
// document.
func QualifiedLookup(s *Scope, imports map[string]*Scope, dotted string) (*Binding, bool) {
	alias, rest, found := strings.Cut(dotted, ".")
	if !found {
		return s.Lookup(dotted)
	}

	if imported, ok := imports[alias]; ok {
		return imported.Lookup(rest)
	}

	if callScope, ok := s.Lookup(alias); ok && callScope.Type.Kind == wdltype.KindObject {
		field, ok := callScope.Value.AsField(rest)
		if !ok {
			return nil, false
		}

		return &Binding{Name: dotted, Type: field.Type, Value: field, Bound: true}, true
	}

	return nil, false
}
