// Package scope implements WDL name/scope resolution: a tree of ordered
// name tables with parent links, one per document/workflow/task/scatter/
// conditional body (spec.md §4.6).
package scope

import (
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Binding is one named entry in a Scope: its declared type and, once
// evaluated, its runtime Value.
type Binding struct {
	Name  string
	Type  wdltype.Type
	Value value.Value
	Bound bool
}

// Scope is an ordered name table with a parent link. Lookups climb the
// parent chain; a name found closer to the leaf shadows the same name
// declared by an ancestor.
type Scope struct {
	parent *Scope
	order  []string
	table  map[string]*Binding
}

// Root returns a new scope with no parent (a document root).
func Root() *Scope {
	return &Scope{table: make(map[string]*Binding)}
}

// Child returns a new scope whose parent is s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, table: make(map[string]*Binding)}
}

// Declare adds name with its static type to s. Declaring a name already
// present in s itself (not an ancestor) is a caller error surfaced as a
// Diagnostic by the resolver, not by Scope.
func (s *Scope) Declare(name string, t wdltype.Type) *Binding {
	b := &Binding{Name: name, Type: t}
	s.table[name] = b
	s.order = append(s.order, name)

	return b
}

// Bind sets the runtime value for an already-declared name in s (not an
// ancestor — private declarations are bound in the scope that declared
// them).
func (s *Scope) Bind(name string, v value.Value) error {
	b, ok := s.table[name]
	if !ok {
		return fmt.Errorf("scope: %q not declared in this scope", name)
	}

	b.Value = v
	b.Bound = true

	return nil
}

// Lookup climbs the parent chain looking for name, returning the nearest
// Binding.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.table[name]; ok {
			return b, true
		}
	}

	return nil, false
}

// LocalNames returns the names declared directly in s, in declaration order.
func (s *Scope) LocalNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// Parent returns s's parent scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}
