package wdltype

// Coerces implements the coercibility matrix in spec.md §3/§4.3. Optionality
// and non-emptiness are independent bits checked last, after the underlying
// shapes are shown compatible.
func Coerces(from, to Type) bool {
	if from.Kind == KindNone {
		return to.Optional
	}

	if !coercesBase(from, to) {
		return false
	}

	if from.Optional && !to.Optional {
		return false
	}

	if from.Kind == KindArray && !from.NonEmpty && to.NonEmpty {
		return false
	}

	return true
}

// coercesBase checks shape compatibility, ignoring the Optional/NonEmpty
// bits (handled by the caller).
func coercesBase(from, to Type) bool {
	if from.Kind == to.Kind {
		return coercesSameKind(from, to)
	}

	switch {
	case from.Kind == KindInt && to.Kind == KindFloat:
		return true
	case from.Kind == KindString && to.Kind == KindFile:
		return true
	case from.Kind == KindFile && to.Kind == KindString:
		return true
	case from.Kind == KindString && to.Kind == KindDirectory:
		return true
	case from.Kind == KindDirectory && to.Kind == KindString:
		return true
	case from.Kind == KindStruct && to.Kind == KindObject:
		return true
	default:
		return false
	}
}

func coercesSameKind(from, to Type) bool {
	switch from.Kind {
	case KindArray:
		return Coerces(*from.Elem, *to.Elem)
	case KindMap:
		return Coerces(*from.Key, *to.Key) && Coerces(*from.Elem, *to.Elem)
	case KindPair:
		return Coerces(*from.Elem, *to.Elem) && Coerces(*from.PairSecond, *to.PairSecond)
	case KindStruct, KindEnum:
		return from.Name == to.Name
	default:
		return true
	}
}

// Unify computes the common supertype of a and b for conditional branches
// and array literals, reporting ok=false when no common type exists.
func Unify(a, b Type) (Type, bool) {
	if a.Kind == KindNone {
		return b.Opt(), true
	}

	if b.Kind == KindNone {
		return a.Opt(), true
	}

	result, ok := unifyBase(a, b)
	if !ok {
		return Type{}, false
	}

	result.Optional = a.Optional || b.Optional
	if result.Kind == KindArray {
		result.NonEmpty = a.NonEmpty && b.NonEmpty
	}

	return result, true
}

func unifyBase(a, b Type) (Type, bool) {
	if a.Kind == b.Kind {
		return unifySameKind(a, b)
	}

	switch {
	case a.Kind == KindInt && b.Kind == KindFloat:
		return Float(), true
	case a.Kind == KindFloat && b.Kind == KindInt:
		return Float(), true
	case a.Kind == KindStruct && b.Kind == KindObject, a.Kind == KindObject && b.Kind == KindStruct:
		return Object(), true
	default:
		return Type{}, false
	}
}

func unifySameKind(a, b Type) (Type, bool) {
	switch a.Kind {
	case KindArray:
		elem, ok := Unify(*a.Elem, *b.Elem)
		if !ok {
			return Type{}, false
		}

		return Array(elem, false), true
	case KindMap:
		key, ok := Unify(*a.Key, *b.Key)
		if !ok {
			return Type{}, false
		}

		val, ok := Unify(*a.Elem, *b.Elem)
		if !ok {
			return Type{}, false
		}

		return Map(key, val), true
	case KindPair:
		left, ok := Unify(*a.Elem, *b.Elem)
		if !ok {
			return Type{}, false
		}

		right, ok := Unify(*a.PairSecond, *b.PairSecond)
		if !ok {
			return Type{}, false
		}

		return Pair(left, right), true
	case KindStruct, KindEnum:
		if a.Name != b.Name {
			return Type{}, false
		}

		return a, true
	default:
		return a, true
	}
}
