package syntax

import (
	"strconv"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/span"
)

// DefaultMockParser is a reduced, line-oriented stand-in for a real WDL grammar. It
// understands just enough surface syntax — version declarations, imports,
// struct/task/workflow headers, and simple `key = expr` declarations — to let
// docgraph and wdlexec tests exercise a real Parser without depending on an
// external grammar. It is not a conformant WDL parser: anything it doesn't
// recognize becomes a PrivateDecl leaf carrying the raw line as Token.
//
//nolint:gochecknoglobals // stateless, safe for concurrent Parse calls.
var DefaultMockParser Parser = ParseFunc(parseMock)

func parseMock(uri string, source []byte) (*Node, []diag.Diagnostic) {
	text := string(source)
	lines := strings.Split(text, "\n")

	doc := NewBuilder().WithKind(KindDocument).WithSpan(span.Span{Start: 0, End: uint32(len(source))}).Build()

	var diags []diag.Diagnostic

	offset := uint32(0)

	var (
		stack     []*Node
		kindStack []Kind
	)

	appendChild := func(n *Node) {
		if len(stack) == 0 {
			doc.Children = append(doc.Children, n)
			return
		}

		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	for _, raw := range lines {
		lineLen := uint32(len(raw)) + 1
		start := offset
		end := start + uint32(len(raw))
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			// blank line, no node
		case len(kindStack) > 0 && kindStack[len(kindStack)-1] == KindCommandSection &&
			trimmed != "}" && trimmed != ">>>":
			appendChild(NewBuilder().WithKind(KindPrivateDecl).WithToken(trimmed).WithSpan(span.Span{Start: start, End: end}).Build())
		case strings.HasPrefix(trimmed, "#"):
			// comment — no syntax node, not kept in the tree
		case strings.HasPrefix(trimmed, "version "):
			tok := strings.TrimSpace(strings.TrimPrefix(trimmed, "version"))
			appendChild(NewBuilder().WithKind(KindVersion).WithToken(tok).WithSpan(span.Span{Start: start, End: end}).Build())
		case strings.HasPrefix(trimmed, "import "):
			tok := strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "import")), "\"")
			appendChild(NewBuilder().WithKind(KindImport).WithToken(tok).WithSpan(span.Span{Start: start, End: end}).Build())
		case strings.HasPrefix(trimmed, "struct "):
			name := headerName(trimmed, "struct")
			n := NewBuilder().WithKind(KindStructDef).WithToken(name).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindStructDef)
		case strings.HasPrefix(trimmed, "task "):
			name := headerName(trimmed, "task")
			n := NewBuilder().WithKind(KindTaskDef).WithToken(name).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindTaskDef)
		case strings.HasPrefix(trimmed, "workflow "):
			name := headerName(trimmed, "workflow")
			n := NewBuilder().WithKind(KindWorkflowDef).WithToken(name).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindWorkflowDef)
		case trimmed == "input {":
			n := NewBuilder().WithKind(KindInputSection).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindInputSection)
		case trimmed == "output {":
			n := NewBuilder().WithKind(KindOutputSection).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindOutputSection)
		case trimmed == "runtime {":
			n := NewBuilder().WithKind(KindRuntimeSection).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindRuntimeSection)
		case trimmed == "command {" || trimmed == "command <<<":
			n := NewBuilder().WithKind(KindCommandSection).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindCommandSection)
		case strings.HasPrefix(trimmed, "scatter "):
			n := NewBuilder().WithKind(KindScatter).WithToken(trimmed).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindScatter)
		case strings.HasPrefix(trimmed, "if "):
			n := NewBuilder().WithKind(KindConditional).WithToken(trimmed).WithSpan(span.Span{Start: start, End: end}).Build()
			appendChild(n)
			stack = append(stack, n)
			kindStack = append(kindStack, KindConditional)
		case strings.HasPrefix(trimmed, "call "):
			tok := strings.TrimSpace(strings.TrimPrefix(trimmed, "call"))
			appendChild(NewBuilder().WithKind(KindCallStatement).WithToken(tok).WithSpan(span.Span{Start: start, End: end}).Build())
		case trimmed == "}" || trimmed == ">>>":
			if len(stack) == 0 {
				diags = append(diags, diag.Error("unmatched closing brace").At(uri, span.Span{Start: start, End: end}))
				break
			}

			stack = stack[:len(stack)-1]
			kindStack = kindStack[:len(kindStack)-1]
		default:
			if name, val, ok := strings.Cut(trimmed, "="); ok && !strings.Contains(name, "(") {
				decl := NewBuilder().WithKind(KindDeclaration).WithToken(strings.TrimSpace(name)).
					WithSpan(span.Span{Start: start, End: end}).
					WithChildren(literalNode(strings.TrimSpace(val), start, end)).
					Build()
				appendChild(decl)
			} else {
				appendChild(NewBuilder().WithKind(KindPrivateDecl).WithToken(trimmed).WithSpan(span.Span{Start: start, End: end}).Build())
			}
		}

		offset += lineLen
	}

	if len(stack) != 0 {
		diags = append(diags, diag.Error("unterminated block").At(uri, span.Span{Start: offset, End: offset}))
	}

	return doc, diags
}

func headerName(trimmed, keyword string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, keyword))
	rest = strings.TrimSuffix(rest, "{")

	return strings.TrimSpace(rest)
}

func literalNode(val string, start, end uint32) *Node {
	sp := span.Span{Start: start, End: end}

	switch {
	case val == "true" || val == "false":
		return NewBuilder().WithKind(KindLiteralBool).WithToken(val).WithSpan(sp).Build()
	case val == "None":
		return NewBuilder().WithKind(KindLiteralNone).WithSpan(sp).Build()
	case strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\""):
		return NewBuilder().WithKind(KindLiteralString).WithToken(strings.Trim(val, "\"")).WithSpan(sp).Build()
	default:
		if _, err := strconv.ParseInt(val, 10, 64); err == nil {
			return NewBuilder().WithKind(KindLiteralInt).WithToken(val).WithSpan(sp).Build()
		}

		if _, err := strconv.ParseFloat(val, 64); err == nil {
			return NewBuilder().WithKind(KindLiteralFloat).WithToken(val).WithSpan(sp).Build()
		}

		return NewBuilder().WithKind(KindIdentifier).WithToken(val).WithSpan(sp).Build()
	}
}
