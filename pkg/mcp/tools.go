package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants, matching the names clients invoke.
const (
	ToolNameAnalyzeDocument = "analyze_document"
	ToolNameSubmitRun       = "submit_run"
	ToolNameGetStatus       = "get_status"
	ToolNameListRuns        = "list_runs"
	ToolNameCancelRun       = "cancel_run"
)

// Sentinel input-validation errors, returned to the caller as tool errors
// rather than transport-level failures.
var (
	ErrEmptyURI    = errors.New("uri must not be empty")
	ErrEmptySource = errors.New("source must not be empty")
	ErrEmptyRunID  = errors.New("run_id must not be empty")
)

// ToolOutput is the generic JSON envelope returned by every tool on success.
type ToolOutput struct {
	Data any `json:"data"`
}

// AnalyzeDocumentInput is the input for the analyze_document tool.
type AnalyzeDocumentInput struct {
	URI string `json:"uri" jsonschema:"the document URI to analyze"`
	// Add indicates the document should be registered with the analyzer
	// before analysis runs, for documents it hasn't seen yet.
	Add bool `json:"add,omitempty" jsonschema:"register the document before analyzing it"`
}

// SubmitRunInput is the input for the submit_run tool.
type SubmitRunInput struct {
	Source    string         `json:"source" jsonschema:"the WDL document URI to run"`
	Target    string         `json:"target,omitempty" jsonschema:"the workflow or task name to run; defaults to the document's workflow, or to its only task when it declares no workflow"`
	Inputs    map[string]any `json:"inputs,omitempty" jsonschema:"JSON input values keyed by the target's input names"`
	SessionID string         `json:"session_id,omitempty" jsonschema:"groups this run under an existing or new session"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct {
	RunID string `json:"run_id" jsonschema:"the run ID returned by submit_run"`
}

// ListRunsInput is the input for the list_runs tool.
type ListRunsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"restrict to runs in this session"`
	Status    string `json:"status,omitempty" jsonschema:"restrict to runs with this status"`
	Target    string `json:"target,omitempty" jsonschema:"restrict to runs of this workflow or task name"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of runs to return"`
	Offset    int    `json:"offset,omitempty" jsonschema:"number of runs to skip, for pagination"`
}

// CancelRunInput is the input for the cancel_run tool.
type CancelRunInput struct {
	RunID string `json:"run_id" jsonschema:"the run ID to cancel"`
}

// errorResult builds a tool-level error result. The error is surfaced as
// textual content with IsError set, rather than as a protocol-level failure,
// so MCP clients can display it inline.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
