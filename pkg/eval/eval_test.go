package eval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/eval"
	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/span"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

func lit(kind syntax.Kind, token string) *syntax.Node {
	return syntax.NewBuilder().WithKind(kind).WithToken(token).WithSpan(span.Zero).Build()
}

func binary(op string, left, right *syntax.Node) *syntax.Node {
	return syntax.NewBuilder().WithKind(syntax.KindBinaryExpr).WithToken(op).WithSpan(span.Zero).
		WithChildren(left, right).Build()
}

func newEnv() eval.Env {
	return eval.Env{Ctx: context.Background(), Scope: scope.Root(), URI: "test.wdl"}
}

func TestEvalArithmeticPromotesIntToFloat(t *testing.T) {
	e := eval.New(nil)

	n := binary("+", lit(syntax.KindLiteralInt, "1"), lit(syntax.KindLiteralFloat, "2.5"))

	v, errDiag := e.Eval(n, newEnv())
	require.Nil(t, errDiag)
	assert.Equal(t, wdltype.KindFloat, v.Type.Kind)
	assert.InDelta(t, 3.5, v.AsFloat(), 0)
}

func TestEvalIntegerDivisionByZeroFails(t *testing.T) {
	e := eval.New(nil)

	n := binary("/", lit(syntax.KindLiteralInt, "1"), lit(syntax.KindLiteralInt, "0"))

	_, errDiag := e.Eval(n, newEnv())
	assert.NotNil(t, errDiag)
}

func TestEvalFloatDivisionByZeroProducesInf(t *testing.T) {
	e := eval.New(nil)

	n := binary("/", lit(syntax.KindLiteralFloat, "1.0"), lit(syntax.KindLiteralFloat, "0.0"))

	v, errDiag := e.Eval(n, newEnv())
	require.Nil(t, errDiag)
	assert.True(t, v.AsFloat() > 1e300)
}

func TestEvalStringConcatenation(t *testing.T) {
	e := eval.New(nil)

	n := binary("+", lit(syntax.KindLiteralString, "foo"), lit(syntax.KindLiteralString, "bar"))

	v, errDiag := e.Eval(n, newEnv())
	require.Nil(t, errDiag)
	assert.Equal(t, "foobar", v.AsString())
}

func TestEvalIndexOutOfBounds(t *testing.T) {
	e := eval.New(nil)

	arr := syntax.NewBuilder().WithKind(syntax.KindArrayLiteral).WithSpan(span.Zero).
		WithChildren(lit(syntax.KindLiteralInt, "1")).Build()
	idx := syntax.NewBuilder().WithKind(syntax.KindIndexExpr).WithSpan(span.Zero).
		WithChildren(arr, lit(syntax.KindLiteralInt, "5")).Build()

	_, errDiag := e.Eval(idx, newEnv())
	assert.NotNil(t, errDiag)
}

func TestEvalIdentifierLookup(t *testing.T) {
	e := eval.New(nil)

	s := scope.Root()
	s.Declare("x", wdltype.Int())
	require.NoError(t, s.Bind("x", value.Int(42)))

	env := newEnv()
	env.Scope = s

	v, errDiag := e.Eval(lit(syntax.KindIdentifier, "x"), env)
	require.Nil(t, errDiag)
	assert.Equal(t, int64(42), v.AsInt())
}

func TestEvalIfShortCircuits(t *testing.T) {
	e := eval.New(nil)

	ifNode := syntax.NewBuilder().WithKind(syntax.KindIfExpr).WithSpan(span.Zero).WithChildren(
		lit(syntax.KindLiteralBool, "true"),
		lit(syntax.KindLiteralInt, "1"),
		lit(syntax.KindIdentifier, "undefined_name"),
	).Build()

	v, errDiag := e.Eval(ifNode, newEnv())
	require.Nil(t, errDiag)
	assert.Equal(t, int64(1), v.AsInt())
}

func TestEvalCallStdlib(t *testing.T) {
	e := eval.New(nil)

	arr := syntax.NewBuilder().WithKind(syntax.KindArrayLiteral).WithSpan(span.Zero).WithChildren(
		lit(syntax.KindLiteralInt, "1"), lit(syntax.KindLiteralInt, "2"),
	).Build()

	call := syntax.NewBuilder().WithKind(syntax.KindCallExpr).WithToken("length").WithSpan(span.Zero).
		WithChildren(arr).Build()

	v, errDiag := e.Eval(call, newEnv())
	require.Nil(t, errDiag)
	assert.Equal(t, int64(2), v.AsInt())
}
