// Package wdlexec expands a workflow body into a static dependency graph
// (Phase A) and then drives it to completion against a backend.Backend
// (Phase B), per spec.md §4.8's two-phase evaluator.
package wdlexec

import (
	"strings"

	"github.com/wdlrun/wdlrun/pkg/syntax"
)

// NodeKind is the statement shape a workflow-body Node represents.
type NodeKind int

const (
	NodeDeclaration NodeKind = iota
	NodeCall
	NodeScatter
	NodeConditional
)

func (k NodeKind) String() string {
	switch k {
	case NodeDeclaration:
		return "Declaration"
	case NodeCall:
		return "Call"
	case NodeScatter:
		return "Scatter"
	case NodeConditional:
		return "Conditional"
	default:
		return "Unknown"
	}
}

// Node is one statement in a workflow body, expanded statically. Scatter
// and Conditional nodes carry their nested body as child Nodes; the
// dynamic executor (Phase B) is what actually iterates/conditions them.
type Node struct {
	ID     string
	Kind   NodeKind
	Name   string // declared name, call alias, or scatter iteration variable
	Syntax *syntax.Node

	// Call-specific.
	CallTarget string // task or workflow name being called, resolved against the document

	// Scatter-specific.
	IterVar        string
	CollectionExpr string

	// Conditional-specific.
	ConditionExpr string

	Body []*Node // nested statements for Scatter/Conditional

	DependsOn []string // names this node's expressions reference
}

// outputNames returns the names this node binds into its enclosing scope:
// the declaration name, the call's alias (or target name), or — for
// Scatter/Conditional — every name its body binds (the view mechanism in
// pkg/scope aggregates/optionalizes these for the outer scope).
func (n *Node) outputNames() []string {
	switch n.Kind {
	case NodeDeclaration, NodeCall:
		return []string{n.Name}
	case NodeScatter, NodeConditional:
		var names []string

		for _, child := range n.Body {
			names = append(names, child.outputNames()...)
		}

		return names
	default:
		return nil
	}
}

// callParts splits a reduced-grammar call token ("pkg.task as alias") into
// its target and alias. The mock parser captures a call statement as a
// single-line token; a conformant grammar would carry call inputs as a
// structured block instead of leaving them unparsed.
func callParts(token string) (target, alias string) {
	target = token
	if idx := strings.Index(token, " as "); idx >= 0 {
		target = strings.TrimSpace(token[:idx])
		alias = strings.TrimSpace(token[idx+len(" as "):])
	}

	if alias == "" {
		if dot := strings.LastIndex(target, "."); dot >= 0 {
			alias = target[dot+1:]
		} else {
			alias = target
		}
	}

	return target, alias
}

// scatterParts extracts "x" and "items" from a scatter header's raw text,
// e.g. "scatter (x in items) {".
func scatterParts(header string) (iterVar, collection string) {
	open := strings.Index(header, "(")
	shut := strings.LastIndex(header, ")")

	if open < 0 || shut < 0 || shut <= open {
		return "", ""
	}

	inner := header[open+1 : shut]

	parts := strings.SplitN(inner, " in ", 2)
	if len(parts) != 2 {
		return "", ""
	}

	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// conditionalParts extracts "flag" from an if header's raw text, e.g.
// "if (flag) {".
func conditionalParts(header string) string {
	open := strings.Index(header, "(")
	shut := strings.LastIndex(header, ")")

	if open < 0 || shut < 0 || shut <= open {
		return ""
	}

	return strings.TrimSpace(header[open+1 : shut])
}

// referencedNames returns every bare identifier word appearing in expr,
// a best-effort scan good enough to build dependency edges from the
// reduced grammar's unparsed call/scatter/conditional text.
func referencedNames(expr string) []string {
	var (
		out     []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}

	for _, r := range expr {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			current.WriteRune(r)
		default:
			flush()
		}
	}

	flush()

	return out
}
