package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
)

// diagnosticView is the JSON shape of one diagnostic in a tool response,
// trimmed to the fields a client needs to render or act on it.
type diagnosticView struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	URI      string `json:"uri"`
	RuleID   string `json:"rule_id,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// analyzeDocumentView is the JSON shape of analyze_document's result.
type analyzeDocumentView struct {
	URI         string           `json:"uri"`
	HasErrors   bool             `json:"has_errors"`
	Diagnostics []diagnosticView `json:"diagnostics"`
	Tasks       []string         `json:"tasks"`
	Workflow    string           `json:"workflow,omitempty"`
}

func handleAnalyzeDocument(
	ctx context.Context, s *Server, _ *mcpsdk.CallToolRequest, input AnalyzeDocumentInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.URI == "" {
		return errorResult(ErrEmptyURI)
	}

	if input.Add {
		if err := s.analyzer.AddDocument(ctx, input.URI); err != nil {
			return errorResult(fmt.Errorf("add document: %w", err))
		}
	}

	results := s.analyzer.Analyze(input.URI)
	if len(results) == 0 {
		return errorResult(fmt.Errorf("analyze_document: %q not found; pass add=true to register it first", input.URI))
	}

	views := make([]analyzeDocumentView, 0, len(results))
	for _, r := range results {
		views = append(views, toAnalyzeDocumentView(r))
	}

	if len(views) == 1 {
		return jsonResult(views[0])
	}

	return jsonResult(views)
}

func toAnalyzeDocumentView(r docgraph.Result) analyzeDocumentView {
	view := analyzeDocumentView{
		URI:         r.URI,
		Diagnostics: make([]diagnosticView, 0, len(r.Diagnostics)),
	}

	for _, d := range r.Diagnostics {
		view.Diagnostics = append(view.Diagnostics, toDiagnosticView(d))
		if d.Severity == diag.SeverityError {
			view.HasErrors = true
		}
	}

	if r.Document != nil {
		for name := range r.Document.Tasks {
			view.Tasks = append(view.Tasks, name)
		}

		if r.Document.Workflow != nil {
			view.Workflow = r.Document.Workflow.Name
		}
	}

	return view
}

func toDiagnosticView(d diag.Diagnostic) diagnosticView {
	return diagnosticView{
		Severity: d.Severity.String(),
		Message:  d.Message,
		URI:      d.URI,
		RuleID:   d.RuleID,
		Fix:      d.Fix,
	}
}
