// Package wdltype implements the WDL type system: type construction,
// coercibility, common-supertype unification, and the per-document
// struct/enum tables those operations resolve named references against
// (spec.md §4.3).
package wdltype

import "fmt"

// Kind tags a Type's variant.
type Kind int

const (
	KindBoolean Kind = iota
	KindInt
	KindFloat
	KindString
	KindFile
	KindDirectory
	KindArray
	KindMap
	KindPair
	KindObject
	KindStruct
	KindEnum
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindFile:
		return "File"
	case KindDirectory:
		return "Directory"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindPair:
		return "Pair"
	case KindObject:
		return "Object"
	case KindStruct:
		return "Struct"
	case KindEnum:
		return "Enum"
	case KindNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Type is a tagged variant over the primitive/compound/named-reference types
// in spec.md §3. Zero value is invalid; use the constructors below.
type Type struct {
	Kind     Kind
	Optional bool

	// NonEmpty applies only to KindArray: `Array[T]+`.
	NonEmpty bool

	// Elem is the element type for KindArray, the value type for KindMap (key
	// type is Key), and the first element for KindPair (second is PairSecond).
	Elem       *Type
	Key        *Type
	PairSecond *Type

	// Name identifies a KindStruct or KindEnum by name, resolved against a
	// document's Registry.
	Name string
}

// Primitive constructors.
func Boolean() Type   { return Type{Kind: KindBoolean} }
func Int() Type       { return Type{Kind: KindInt} }
func Float() Type     { return Type{Kind: KindFloat} }
func String() Type    { return Type{Kind: KindString} }
func File() Type      { return Type{Kind: KindFile} }
func Directory() Type { return Type{Kind: KindDirectory} }
func Object() Type    { return Type{Kind: KindObject} }
func None() Type      { return Type{Kind: KindNone} }

// Array builds `Array[elem]`, optionally non-empty.
func Array(elem Type, nonEmpty bool) Type {
	e := elem

	return Type{Kind: KindArray, Elem: &e, NonEmpty: nonEmpty}
}

// Map builds `Map[key, value]`.
func Map(key, value Type) Type {
	k, v := key, value

	return Type{Kind: KindMap, Key: &k, Elem: &v}
}

// Pair builds `Pair[left, right]`.
func Pair(left, right Type) Type {
	l, r := left, right

	return Type{Kind: KindPair, Elem: &l, PairSecond: &r}
}

// StructRef builds an unresolved named reference to a struct; resolve field
// types via a Registry.
func StructRef(name string) Type { return Type{Kind: KindStruct, Name: name} }

// EnumRef builds an unresolved named reference to an enum.
func EnumRef(name string) Type { return Type{Kind: KindEnum, Name: name} }

// Opt returns a copy of t marked optional.
func (t Type) Opt() Type {
	t.Optional = true

	return t
}

// Required returns a copy of t marked non-optional.
func (t Type) Required() Type {
	t.Optional = false

	return t
}

// IsPrimitive reports whether t is one of the six primitive kinds.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindBoolean, KindInt, KindFloat, KindString, KindFile, KindDirectory:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	base := t.baseString()
	if t.Optional {
		return base + "?"
	}

	return base
}

func (t Type) baseString() string {
	switch t.Kind {
	case KindArray:
		suffix := ""
		if t.NonEmpty {
			suffix = "+"
		}

		return fmt.Sprintf("Array[%s]%s", t.Elem, suffix)
	case KindMap:
		return fmt.Sprintf("Map[%s, %s]", t.Key, t.Elem)
	case KindPair:
		return fmt.Sprintf("Pair[%s, %s]", t.Elem, t.PairSecond)
	case KindStruct, KindEnum:
		return t.Name
	default:
		return t.Kind.String()
	}
}

// Equal reports structural equality, ignoring Optional/NonEmpty bits (use
// Coerces for assignability, which does consider them).
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}

	switch t.Kind {
	case KindArray:
		return t.Elem.Equal(*other.Elem)
	case KindMap:
		return t.Key.Equal(*other.Key) && t.Elem.Equal(*other.Elem)
	case KindPair:
		return t.Elem.Equal(*other.Elem) && t.PairSecond.Equal(*other.PairSecond)
	case KindStruct, KindEnum:
		return t.Name == other.Name
	default:
		return true
	}
}
