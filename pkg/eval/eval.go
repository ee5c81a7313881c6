// Package eval implements the WDL expression evaluator: a strict, pure (at
// the language level) recursive evaluation of a syntax.Node against a
// scope.Scope, producing a value.Value or a diag.Diagnostic (spec.md §4.5).
package eval

import (
	"context"
	"strconv"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/stdlib"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// Evaluator evaluates expression nodes against a scope. It is stateless and
// safe for concurrent use; all mutable state (the scope, the current
// document's URI for diagnostics, the task working directory for stdlib
// I/O) is passed per call.
type Evaluator struct {
	Builtins *stdlib.Registry
}

// New returns an Evaluator backed by the given built-in function registry,
// or stdlib.Global() if registry is nil.
func New(registry *stdlib.Registry) *Evaluator {
	if registry == nil {
		registry = stdlib.Global()
	}

	return &Evaluator{Builtins: registry}
}

// Env carries the per-call context an evaluation needs beyond the node
// itself: the lexical scope, the document URI (for diagnostic spans), the
// imported-document scopes (for alias.symbol lookups), and the task working
// directory (for filesystem built-ins).
type Env struct {
	Ctx     context.Context //nolint:containedctx // threaded synchronously, not stored.
	Scope   *scope.Scope
	Imports map[string]*scope.Scope
	URI     string
	WorkDir string
}

// Eval evaluates n against env, returning either a Value or a Diagnostic —
// never both, and never neither.
func (e *Evaluator) Eval(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if n == nil {
		d := diag.Error("internal error: nil expression node")

		return value.Value{}, &d
	}

	switch n.Kind {
	case syntax.KindLiteralInt:
		i, err := strconv.ParseInt(n.Token, 10, 64)
		if err != nil {
			return e.fail(n, env, "invalid integer literal %q: %v", n.Token, err)
		}

		return value.Int(i), nil
	case syntax.KindLiteralFloat:
		f, err := strconv.ParseFloat(n.Token, 64)
		if err != nil {
			return e.fail(n, env, "invalid float literal %q: %v", n.Token, err)
		}

		return value.Float(f), nil
	case syntax.KindLiteralBool:
		return value.Bool(n.Token == "true"), nil
	case syntax.KindLiteralString:
		return value.Str(n.Token), nil
	case syntax.KindLiteralNone:
		return value.None(), nil
	case syntax.KindIdentifier:
		return e.evalIdentifier(n, env)
	case syntax.KindMemberAccess:
		return e.evalMemberAccess(n, env)
	case syntax.KindIndexExpr:
		return e.evalIndex(n, env)
	case syntax.KindArrayLiteral:
		return e.evalArrayLiteral(n, env)
	case syntax.KindPairLiteral:
		return e.evalPairLiteral(n, env)
	case syntax.KindBinaryExpr:
		return e.evalBinary(n, env)
	case syntax.KindUnaryExpr:
		return e.evalUnary(n, env)
	case syntax.KindIfExpr:
		return e.evalIf(n, env)
	case syntax.KindCallExpr:
		return e.evalCall(n, env)
	case syntax.KindDeclaration:
		if len(n.Children) == 0 {
			d := diag.Error("declaration has no initializer").At(env.URI, n.Span)

			return value.Value{}, &d
		}

		return e.Eval(n.Children[0], env)
	default:
		return e.fail(n, env, "cannot evaluate node of kind %s", n.Kind)
	}
}

func (e *Evaluator) fail(n *syntax.Node, env Env, format string, args ...any) (value.Value, *diag.Diagnostic) {
	d := diag.Errorf(format, args...).At(env.URI, n.Span)

	return value.Value{}, &d
}

func (e *Evaluator) evalIdentifier(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	b, ok := scope.QualifiedLookup(env.Scope, env.Imports, n.Token)
	if !ok {
		return e.fail(n, env, "undefined name %q", n.Token)
	}

	if !b.Bound {
		return e.fail(n, env, "%q referenced before it is bound", n.Token)
	}

	return b.Value, nil
}

func (e *Evaluator) evalMemberAccess(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 1 {
		return e.fail(n, env, "malformed member access")
	}

	base, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	field, ok := base.AsField(n.Token)
	if !ok {
		return e.fail(n, env, "no field %q", n.Token)
	}

	return field, nil
}

func (e *Evaluator) evalIndex(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 2 {
		return e.fail(n, env, "malformed index expression")
	}

	base, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	idx, errDiag := e.Eval(n.Children[1], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	switch base.Type.Kind {
	case wdltype.KindArray:
		arr := base.AsArray()
		i := idx.AsInt()

		if i < 0 || i >= int64(len(arr)) {
			return e.fail(n, env, "index %d out of bounds (length %d)", i, len(arr))
		}

		return arr[i], nil
	case wdltype.KindMap:
		v, ok := base.MapGet(idx)
		if !ok {
			if base.Type.Elem.Optional {
				return value.None(), nil
			}

			return e.fail(n, env, "map key %s not found", idx)
		}

		return v, nil
	default:
		return e.fail(n, env, "cannot index a value of type %s", base.Type)
	}
}

func (e *Evaluator) evalArrayLiteral(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	elems := make([]value.Value, 0, len(n.Children))

	var elemType wdltype.Type

	for i, c := range n.Children {
		v, errDiag := e.Eval(c, env)
		if errDiag != nil {
			return value.Value{}, errDiag
		}

		if i == 0 {
			elemType = v.Type
		} else {
			unified, ok := wdltype.Unify(elemType, v.Type)
			if !ok {
				return e.fail(n, env, "array literal element %d has incompatible type %s", i, v.Type)
			}

			elemType = unified
		}

		elems = append(elems, v)
	}

	if len(n.Children) == 0 {
		elemType = wdltype.None()
	}

	return value.Array(elemType, elems), nil
}

func (e *Evaluator) evalPairLiteral(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 2 {
		return e.fail(n, env, "malformed pair literal")
	}

	l, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	r, errDiag := e.Eval(n.Children[1], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	return value.Pair(l, r), nil
}

func (e *Evaluator) evalIf(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 3 {
		return e.fail(n, env, "malformed if/then/else expression")
	}

	cond, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	if cond.AsBool() {
		return e.Eval(n.Children[1], env)
	}

	return e.Eval(n.Children[2], env)
}

func (e *Evaluator) evalCall(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	fn, ok := e.Builtins.Lookup(n.Token)
	if !ok {
		return e.fail(n, env, "undefined function %q", n.Token)
	}

	args := make([]value.Value, len(n.Children))

	for i, c := range n.Children {
		v, errDiag := e.Eval(c, env)
		if errDiag != nil {
			return value.Value{}, errDiag
		}

		args[i] = v
	}

	result, errDiag := fn.Invoke(stdlib.CallContext{Ctx: env.Ctx, Args: args, WorkDir: env.WorkDir})
	if errDiag != nil {
		errDiag.URI = env.URI
		errDiag.PrimarySpan = n.Span

		return value.Value{}, errDiag
	}

	return result, nil
}

// EvalPlaceholder evaluates a `~{expr}`/`${expr}` string interpolation
// expression and coerces the result to String, per spec.md §4.5: "None
// coerces to empty string within a placeholder."
func (e *Evaluator) EvalPlaceholder(n *syntax.Node, env Env) (string, *diag.Diagnostic) {
	v, errDiag := e.Eval(n, env)
	if errDiag != nil {
		return "", errDiag
	}

	if v.Type.Kind == wdltype.KindNone {
		return "", nil
	}

	return v.String(), nil
}

// InterpolateString evaluates a KindStringInterpart chain of literal text
// and placeholder children, concatenating the result.
func (e *Evaluator) InterpolateString(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	var sb strings.Builder

	for _, c := range n.Children {
		if c.Kind == syntax.KindPlaceholder {
			if len(c.Children) != 1 {
				return e.fail(n, env, "malformed placeholder")
			}

			text, errDiag := e.EvalPlaceholder(c.Children[0], env)
			if errDiag != nil {
				return value.Value{}, errDiag
			}

			sb.WriteString(text)

			continue
		}

		sb.WriteString(c.Token)
	}

	return value.Str(sb.String()), nil
}
