package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// runView is the JSON shape of a run in submit_run/get_status/list_runs
// responses.
type runView struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Outputs     string `json:"outputs,omitempty"`
	Error       string `json:"error,omitempty"`
}

func toRunView(r runstore.Run) runView {
	view := runView{
		ID:        r.ID,
		SessionID: r.SessionID,
		Source:    r.Source,
		Target:    r.Target,
		Status:    string(r.Status),
		StartedAt: r.StartedAt.Format(timeFormat),
		Outputs:   r.Outputs,
		Error:     r.Error,
	}

	if !r.CompletedAt.IsZero() {
		view.CompletedAt = r.CompletedAt.Format(timeFormat)
	}

	return view
}

// timeFormat is the RFC 3339 format used for all timestamps in tool output.
const timeFormat = "2006-01-02T15:04:05Z07:00"

func handleSubmitRun(
	ctx context.Context, s *Server, _ *mcpsdk.CallToolRequest, input SubmitRunInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Source == "" {
		return errorResult(ErrEmptySource)
	}

	runID, err := s.mgr.Submit(ctx, execmgr.SubmitRequest{
		SessionID: input.SessionID,
		Command:   "mcp:" + ToolNameSubmitRun,
		CreatedBy: "mcp",
		Source:    input.Source,
		Target:    input.Target,
		Inputs:    input.Inputs,
	})
	if err != nil {
		return errorResult(fmt.Errorf("submit run: %w", err))
	}

	return jsonResult(struct {
		RunID string `json:"run_id"`
	}{RunID: runID})
}

func handleGetStatus(
	ctx context.Context, s *Server, _ *mcpsdk.CallToolRequest, input GetStatusInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.RunID == "" {
		return errorResult(ErrEmptyRunID)
	}

	run, err := s.mgr.GetStatus(ctx, input.RunID)
	if err != nil {
		return errorResult(fmt.Errorf("get status: %w", err))
	}

	return jsonResult(toRunView(run))
}

func handleListRuns(
	ctx context.Context, s *Server, _ *mcpsdk.CallToolRequest, input ListRunsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	filter := runstore.ListFilter{
		SessionID: input.SessionID,
		Status:    runstore.RunStatus(input.Status),
		Target:    input.Target,
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	runs, err := s.mgr.List(ctx, filter, limit, input.Offset)
	if err != nil {
		return errorResult(fmt.Errorf("list runs: %w", err))
	}

	views := make([]runView, 0, len(runs))
	for _, r := range runs {
		views = append(views, toRunView(r))
	}

	return jsonResult(views)
}

// defaultListLimit caps list_runs when the caller doesn't specify one.
const defaultListLimit = 50

func handleCancelRun(
	ctx context.Context, s *Server, _ *mcpsdk.CallToolRequest, input CancelRunInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.RunID == "" {
		return errorResult(ErrEmptyRunID)
	}

	if err := s.mgr.Cancel(ctx, input.RunID); err != nil {
		return errorResult(fmt.Errorf("cancel run: %w", err))
	}

	run, err := s.mgr.GetStatus(ctx, input.RunID)
	if err != nil {
		return errorResult(fmt.Errorf("cancel run: get status: %w", err))
	}

	return jsonResult(toRunView(run))
}
