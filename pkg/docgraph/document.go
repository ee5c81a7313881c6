// Package docgraph implements the document graph and analyzer: a
// process-global mutable table of WDL documents keyed by URI, the import
// graph between them, and the incremental parse/type-check pipeline that
// keeps analysis results current as documents are added, removed, and
// edited (spec.md §4.7). It is grounded on the teacher's coordinator/runner
// actor shape, generalized from git-history pipelines to document analysis.
package docgraph

import (
	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/span"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// State is a document's position in the per-mutation state machine
// described in spec.md §4.7.
type State int

const (
	StateUnfetched State = iota
	StateFetched
	StateParsed
	StateAnalyzed
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnfetched:
		return "Unfetched"
	case StateFetched:
		return "Fetched"
	case StateParsed:
		return "Parsed"
	case StateAnalyzed:
		return "Analyzed"
	case StateStale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// ImportEdge is one `import "uri" as alias` resolved against its
// originating document.
type ImportEdge struct {
	Alias string
	URI   string
	Span  span.Span
}

// TaskDef is an analyzed task's signature surface: enough to build a call
// node in the workflow DAG without re-walking the syntax tree.
type TaskDef struct {
	Name    string
	Inputs  []wdltype.StructField
	Outputs []wdltype.StructField
	Node    *syntax.Node
}

// WorkflowDef mirrors TaskDef for a document's single workflow.
type WorkflowDef struct {
	Name    string
	Inputs  []wdltype.StructField
	Outputs []wdltype.StructField
	Node    *syntax.Node
}

// Document is the analyzed snapshot spec.md §3 describes: `{ uri, version,
// imports, structs, enums, tasks, workflow?, diagnostics }`. Once built, a
// Document is immutable; NotifyChange produces a new Document rather than
// mutating this one, so readers holding an old snapshot never observe a
// torn state.
type Document struct {
	URI         string
	Version     string
	Source      []byte
	Tree        *syntax.Node
	State       State
	Imports     []ImportEdge
	Registry    *wdltype.Registry
	Tasks       map[string]*TaskDef
	Workflow    *WorkflowDef
	Diagnostics []diag.Diagnostic
}

// HasErrors reports whether the document's diagnostics include an error.
func (d *Document) HasErrors() bool {
	return diag.HasErrors(d.Diagnostics)
}
