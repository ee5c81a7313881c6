package eval

import (
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"

	"github.com/wdlrun/wdlrun/pkg/diag"
)

// evalBinary implements the operator semantics summarized in spec.md §4.5:
// arithmetic promotes Int to Float on mixed operands; String `+` is
// concatenation with String/File/Directory on either side; equality is
// structural; division by zero on integers fails, on floats produces the
// IEEE result.
func (e *Evaluator) evalBinary(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 2 {
		return e.fail(n, env, "malformed binary expression")
	}

	left, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	right, errDiag := e.Eval(n.Children[1], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	switch n.Token {
	case "+":
		return e.evalAdd(n, env, left, right)
	case "-", "*", "/", "%":
		return e.evalArith(n, env, left, right)
	case "==":
		return value.Bool(value.Equal(left, right)), nil
	case "!=":
		return value.Bool(!value.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return e.evalCompare(n, env, left, right)
	case "&&":
		return value.Bool(left.AsBool() && right.AsBool()), nil
	case "||":
		return value.Bool(left.AsBool() || right.AsBool()), nil
	default:
		return e.fail(n, env, "unknown binary operator %q", n.Token)
	}
}

func isStringLike(k wdltype.Kind) bool {
	return k == wdltype.KindString || k == wdltype.KindFile || k == wdltype.KindDirectory
}

func (e *Evaluator) evalAdd(n *syntax.Node, env Env, left, right value.Value) (value.Value, *diag.Diagnostic) {
	if isStringLike(left.Type.Kind) && isStringLike(right.Type.Kind) {
		return value.Str(left.AsString() + right.AsString()), nil
	}

	if isStringLike(left.Type.Kind) || isStringLike(right.Type.Kind) {
		return e.fail(n, env, "%q is not defined between %s and %s", n.Token, left.Type, right.Type)
	}

	return e.evalArith(n, env, left, right)
}

func (e *Evaluator) evalArith(n *syntax.Node, env Env, left, right value.Value) (value.Value, *diag.Diagnostic) {
	if left.Type.Kind == wdltype.KindInt && right.Type.Kind == wdltype.KindInt {
		l, r := left.AsInt(), right.AsInt()

		switch n.Token {
		case "+":
			return value.Int(l + r), nil
		case "-":
			return value.Int(l - r), nil
		case "*":
			return value.Int(l * r), nil
		case "/":
			if r == 0 {
				return e.fail(n, env, "integer division by zero")
			}

			return value.Int(l / r), nil
		case "%":
			if r == 0 {
				return e.fail(n, env, "integer modulo by zero")
			}

			return value.Int(l % r), nil
		}
	}

	l, r := toFloat(left), toFloat(right)

	switch n.Token {
	case "+":
		return value.Float(l + r), nil
	case "-":
		return value.Float(l - r), nil
	case "*":
		return value.Float(l * r), nil
	case "/":
		return value.Float(l / r), nil
	default:
		return e.fail(n, env, "operator %q not defined for Float", n.Token)
	}
}

func (e *Evaluator) evalCompare(n *syntax.Node, env Env, left, right value.Value) (value.Value, *diag.Diagnostic) {
	l, r := toFloat(left), toFloat(right)

	switch n.Token {
	case "<":
		return value.Bool(l < r), nil
	case "<=":
		return value.Bool(l <= r), nil
	case ">":
		return value.Bool(l > r), nil
	case ">=":
		return value.Bool(l >= r), nil
	default:
		return e.fail(n, env, "unknown comparison operator %q", n.Token)
	}
}

func toFloat(v value.Value) float64 {
	if v.Type.Kind == wdltype.KindInt {
		return float64(v.AsInt())
	}

	return v.AsFloat()
}

func (e *Evaluator) evalUnary(n *syntax.Node, env Env) (value.Value, *diag.Diagnostic) {
	if len(n.Children) != 1 {
		return e.fail(n, env, "malformed unary expression")
	}

	operand, errDiag := e.Eval(n.Children[0], env)
	if errDiag != nil {
		return value.Value{}, errDiag
	}

	switch n.Token {
	case "-":
		if operand.Type.Kind == wdltype.KindInt {
			return value.Int(-operand.AsInt()), nil
		}

		return value.Float(-operand.AsFloat()), nil
	case "!":
		return value.Bool(!operand.AsBool()), nil
	default:
		return e.fail(n, env, "unknown unary operator %q", n.Token)
	}
}
