package wdltype

import "fmt"

// StructField is one ordered, named field of a struct definition.
type StructField struct {
	Name string
	Type Type
}

// Struct is a named, ordered collection of typed fields.
type Struct struct {
	Name   string
	Fields []StructField
}

// FieldType returns the type of the named field and whether it exists.
func (s *Struct) FieldType(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}

	return Type{}, false
}

// EnumVariant is one ordered variant of an enum, carrying its inferred or
// explicitly given primitive value.
type EnumVariant struct {
	Name  string
	Value any
}

// Enum is a named primitive-backed enumeration: its Inner type is inferred
// as String if every variant is string-like, otherwise must be explicit.
type Enum struct {
	Name     string
	Inner    Type
	Variants []EnumVariant
}

// Registry holds the struct/enum tables for a single document, keyed by
// name (spec.md §4.3 item 4). Structs and enums are resolved against the
// same Registry that produced the document's Document value, never shared
// across documents — each document's imports carry their own aliased
// Registry views (see pkg/docgraph).
type Registry struct {
	structs map[string]*Struct
	enums   map[string]*Enum
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{structs: make(map[string]*Struct), enums: make(map[string]*Enum)}
}

// DefineStruct registers s, overwriting any prior definition of the same
// name (redefinition diagnostics are the caller's responsibility).
func (r *Registry) DefineStruct(s *Struct) {
	r.structs[s.Name] = s
}

// DefineEnum registers e.
func (r *Registry) DefineEnum(e *Enum) {
	r.enums[e.Name] = e
}

// Struct looks up a struct by name.
func (r *Registry) Struct(name string) (*Struct, bool) {
	s, ok := r.structs[name]

	return s, ok
}

// Enum looks up an enum by name.
func (r *Registry) Enum(name string) (*Enum, bool) {
	e, ok := r.enums[name]

	return e, ok
}

// Resolve replaces a KindStruct/KindEnum Name reference with itself after
// confirming the name exists in r, returning an error the caller turns into
// a Diagnostic at the reference's span.
func (r *Registry) Resolve(t Type) (Type, error) {
	switch t.Kind {
	case KindStruct:
		if _, ok := r.structs[t.Name]; !ok {
			return Type{}, fmt.Errorf("undefined struct %q", t.Name)
		}
	case KindEnum:
		if _, ok := r.enums[t.Name]; !ok {
			return Type{}, fmt.Errorf("undefined enum %q", t.Name)
		}
	}

	return t, nil
}

// StructLiteralFields checks that a struct literal's provided field names
// match s's declared fields exactly (spec.md §4.3 edge case: "extra or
// missing fields are errors").
func StructLiteralFields(s *Struct, provided []string) error {
	want := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		want[f.Name] = true
	}

	have := make(map[string]bool, len(provided))

	for _, name := range provided {
		have[name] = true

		if !want[name] {
			return fmt.Errorf("struct %q has no field %q", s.Name, name)
		}
	}

	for _, f := range s.Fields {
		if !have[f.Name] {
			return fmt.Errorf("struct %q literal missing field %q", s.Name, f.Name)
		}
	}

	return nil
}
