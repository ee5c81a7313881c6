package stdlib

import (
	"context"
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// CallContext carries everything a built-in's callback needs: the already
// coerced-per-signature arguments, the working directory for filesystem
// functions (read_*/write_*/glob), and the evaluator caller's
// context.Context. None of the built-ins in this package consult Ctx.
type CallContext struct {
	Ctx     context.Context //nolint:containedctx // threaded through a synchronous callback tree, not stored.
	Args    []value.Value
	WorkDir string
}

// Callback is a built-in function's implementation, invoked once overload
// resolution has selected and coerced arguments against one Signature.
type Callback func(CallContext) (value.Value, error)

// Function is one named standard library entry: one or more Signatures, a
// purity flag (false for filesystem-touching built-ins), and the callback
// shared by all of its signatures.
type Function struct {
	Name       string
	Signatures []Signature
	Pure       bool
	Call       Callback
}

// Resolve performs overload resolution: the first Signature whose
// positional argument types all coerce, and whose return type resolves,
// wins. The no-match diagnostic names the function only, not the
// signatures tried (spec.md §4.4).
func (f Function) Resolve(argTypes []wdltype.Type) (Signature, substitution, wdltype.Type, *diag.Diagnostic) {
	for _, sig := range f.Signatures {
		sub, ok := sig.match(argTypes)
		if !ok {
			continue
		}

		var (
			ret wdltype.Type
			err error
		)

		if sig.DynamicReturn != nil {
			ret, err = sig.DynamicReturn(argTypes)
		} else {
			ret, err = sig.Return.resolve(sub)
		}

		if err != nil {
			continue
		}

		return sig, sub, ret, nil
	}

	d := diag.Errorf("no overload of %q accepts the given argument types", f.Name)

	return Signature{}, nil, wdltype.Type{}, &d
}

// Invoke resolves an overload for the types of cc.Args and, on success,
// coerces each argument to its resolved parameter type and runs f.Call.
func (f Function) Invoke(cc CallContext) (value.Value, *diag.Diagnostic) {
	argTypes := make([]wdltype.Type, len(cc.Args))
	for i, a := range cc.Args {
		argTypes[i] = a.Type
	}

	sig, sub, _, errDiag := f.Resolve(argTypes)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	coerced := make([]value.Value, len(cc.Args))

	for i, a := range cc.Args {
		p := sig.Params[minInt(i, len(sig.Params)-1)]

		target := p.Concrete
		if p.TypeVar != "" {
			target = sub[p.TypeVar]
		}

		cv, err := value.Coerce(a, target)
		if err != nil {
			d := diag.Errorf("%s: argument %d: %v", f.Name, i, err)

			return value.Value{}, &d
		}

		coerced[i] = cv
	}

	cc.Args = coerced

	result, err := f.Call(cc)
	if err != nil {
		d := diag.Errorf("%s: %v", f.Name, err)

		return value.Value{}, &d
	}

	return result, nil
}

func requireArg(cc CallContext, i int) (value.Value, error) {
	if i >= len(cc.Args) {
		return value.Value{}, fmt.Errorf("missing argument %d", i)
	}

	return cc.Args[i], nil
}
