// Package syntax provides the immutable syntax tree the analysis core
// consumes from an external parser: a red-green-style tree of typed nodes
// and tokens over a flat source string, with stable byte spans.
//
// The core never produces this tree from WDL grammar rules — that is the
// external parser's job (see Parser). It only walks, queries, and attaches
// diagnostics to what the parser hands back.
package syntax

import (
	"sync"

	"github.com/wdlrun/wdlrun/pkg/span"
)

// Kind identifies the syntactic category of a Node. Kinds are WDL-specific
// (unlike the teacher's language-agnostic UAST Type tags) because the core
// owns WDL semantics even though it does not own WDL grammar.
type Kind string

// Node kinds covering the WDL 1.x surface the evaluator and type checker
// need to recognize. Whitespace and comments have no kind and are not kept
// in the tree.
const (
	KindDocument        Kind = "Document"
	KindVersion         Kind = "Version"
	KindImport          Kind = "Import"
	KindStructDef       Kind = "StructDef"
	KindEnumDef         Kind = "EnumDef"
	KindTaskDef         Kind = "TaskDef"
	KindWorkflowDef     Kind = "WorkflowDef"
	KindInputSection    Kind = "InputSection"
	KindOutputSection   Kind = "OutputSection"
	KindPrivateDecl     Kind = "PrivateDecl"
	KindCommandSection  Kind = "CommandSection"
	KindRuntimeSection  Kind = "RuntimeSection"
	KindRequirements    Kind = "RequirementsSection"
	KindHints           Kind = "HintsSection"
	KindCallStatement   Kind = "CallStatement"
	KindScatter         Kind = "Scatter"
	KindConditional     Kind = "Conditional"
	KindDeclaration     Kind = "Declaration"
	KindTypeExpr        Kind = "TypeExpr"
	KindIdentifier      Kind = "Identifier"
	KindMemberAccess    Kind = "MemberAccess"
	KindIndexExpr       Kind = "IndexExpr"
	KindCallExpr        Kind = "CallExpr"
	KindIfExpr          Kind = "IfExpr"
	KindBinaryExpr      Kind = "BinaryExpr"
	KindUnaryExpr       Kind = "UnaryExpr"
	KindLiteralInt      Kind = "LiteralInt"
	KindLiteralFloat    Kind = "LiteralFloat"
	KindLiteralBool     Kind = "LiteralBool"
	KindLiteralString   Kind = "LiteralString"
	KindLiteralNone     Kind = "LiteralNone"
	KindArrayLiteral    Kind = "ArrayLiteral"
	KindMapLiteral      Kind = "MapLiteral"
	KindPairLiteral     Kind = "PairLiteral"
	KindObjectLiteral   Kind = "ObjectLiteral"
	KindStructLiteral   Kind = "StructLiteral"
	KindPlaceholder     Kind = "Placeholder"
	KindStringInterpart Kind = "StringInterpart"
)

// Node is the canonical syntax tree node. Children are ordered; leaf nodes
// carry Token text. Nodes are cheaply clonable references: cloning copies
// the pointer, never the subtree, so spans stay stable (invariant (b) in
// spec.md §3).
type Node struct {
	Kind     Kind
	Token    string
	Span     span.Span
	Children []*Node
}

// nodePool reduces allocation overhead for the high node counts of a
// realistic WDL document tree, mirroring the teacher's pkg/uast node pool.
//
//nolint:gochecknoglobals // shared pool for node allocation performance.
var nodePool = sync.Pool{
	New: func() any { return &Node{} },
}

// Builder provides a fluent interface for assembling Node instances, used
// by the reference DefaultMockParser and by synthetic-node injection (e.g. desugared
// scatter bodies) inside the evaluator.
type Builder struct {
	node *Node
}

// NewBuilder returns a Builder backed by a pooled Node.
func NewBuilder() *Builder {
	n, ok := nodePool.Get().(*Node)
	if !ok {
		n = &Node{}
	}

	*n = Node{}

	return &Builder{node: n}
}

// WithKind sets the node kind.
func (b *Builder) WithKind(k Kind) *Builder {
	b.node.Kind = k

	return b
}

// WithToken sets the leaf token text.
func (b *Builder) WithToken(tok string) *Builder {
	b.node.Token = tok

	return b
}

// WithSpan sets the node's source span.
func (b *Builder) WithSpan(s span.Span) *Builder {
	b.node.Span = s

	return b
}

// WithChildren appends children in order.
func (b *Builder) WithChildren(children ...*Node) *Builder {
	b.node.Children = append(b.node.Children, children...)

	return b
}

// Build returns the assembled Node.
func (b *Builder) Build() *Node {
	return b.node
}

// Release returns a detached node (no children retained by the caller) to
// the pool. Callers must not use n after Release.
func Release(n *Node) {
	if n == nil {
		return
	}

	n.Children = nil
	n.Token = ""
	nodePool.Put(n)
}

// children returns the node's direct children; nil for a leaf.
func (n *Node) children() []*Node {
	return n.Children
}

// FirstToken returns the left-most leaf token span beneath n, or n's own
// span if n is itself a leaf.
func (n *Node) FirstToken() span.Span {
	if len(n.Children) == 0 {
		return n.Span
	}

	return n.Children[0].FirstToken()
}

// TextRange returns n's own span. Present for parity with the teacher's
// `text_range()` accessor named in spec.md §4.2.
func (n *Node) TextRange() span.Span {
	return n.Span
}

// Walk performs a synchronous pre-/post-order traversal of the subtree
// rooted at n, invoking the Visitor's Enter before descending into children
// and Exit after. Visitors hold no references outliving the walk (spec.md
// §4.2): Walk never retains n or any descendant beyond the call.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}

	v.Enter(n)

	for _, child := range n.Children {
		Walk(child, v)
	}

	v.Exit(n)
}

// Visitor is the capability set the analyzer composes to produce
// diagnostics from a tree walk (spec.md §4.2, §9 "Diagnostics through
// visitors"). Implementations with no work to do for Enter/Exit embed
// NopVisitor.
type Visitor interface {
	Enter(n *Node)
	Exit(n *Node)
}

// NopVisitor is an embeddable Visitor whose Enter/Exit do nothing, so
// concrete visitors only implement the hook they care about.
type NopVisitor struct{}

// Enter is a no-op.
func (NopVisitor) Enter(*Node) {}

// Exit is a no-op.
func (NopVisitor) Exit(*Node) {}

// VisitorFuncs adapts two plain functions into a Visitor.
type VisitorFuncs struct {
	EnterFunc func(n *Node)
	ExitFunc  func(n *Node)
}

// Enter calls EnterFunc if set.
func (f VisitorFuncs) Enter(n *Node) {
	if f.EnterFunc != nil {
		f.EnterFunc(n)
	}
}

// Exit calls ExitFunc if set.
func (f VisitorFuncs) Exit(n *Node) {
	if f.ExitFunc != nil {
		f.ExitFunc(n)
	}
}

// ComposeVisitors iterates a list of visitors at each Enter/Exit, matching
// the design note in spec.md §9 ("the analyzer composes visitors by
// iterating a list").
type ComposeVisitors []Visitor

// Enter invokes every visitor's Enter in order.
func (c ComposeVisitors) Enter(n *Node) {
	for _, v := range c {
		v.Enter(n)
	}
}

// Exit invokes every visitor's Exit in order.
func (c ComposeVisitors) Exit(n *Node) {
	for _, v := range c {
		v.Exit(n)
	}
}
