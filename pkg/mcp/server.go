// Package mcp implements a Model Context Protocol server exposing wdlrun's
// document analysis and run execution capabilities as MCP tools over stdio
// or HTTP transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/observability"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "wdlrun"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"

	// toolCount is the expected number of registered tools.
	toolCount = 5
)

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// Manager is the execution manager backing every run-related tool.
	Manager *execmgr.Manager

	// Analyzer is the document analyzer backing the analyze_document tool.
	Analyzer *docgraph.Analyzer

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with wdlrun's tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	mgr      *execmgr.Manager
	analyzer *docgraph.Analyzer
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.REDMetrics
	tracer   trace.Tracer
}

// NewServer creates a new MCP server with all wdlrun tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		mgr:      deps.Manager,
		analyzer: deps.Analyzer,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all wdlrun MCP tools to the server.
func (s *Server) registerTools() {
	registerTool(s, ToolNameAnalyzeDocument, analyzeDocumentToolDescription, handleAnalyzeDocument)
	registerTool(s, ToolNameSubmitRun, submitRunToolDescription, handleSubmitRun)
	registerTool(s, ToolNameGetStatus, getStatusToolDescription, handleGetStatus)
	registerTool(s, ToolNameListRuns, listRunsToolDescription, handleListRuns)
	registerTool(s, ToolNameCancelRun, cancelRunToolDescription, handleCancelRun)
}

// registerTool wires a typed handler into the underlying SDK server, adding
// the tracing and metrics decorators and tracking the tool name.
func registerTool[Input any](
	s *Server, name, description string,
	handler func(context.Context, *Server, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) {
	bound := func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		return handler(ctx, s, req, input)
	}

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, withMetrics(s.metrics, name, withTracing(s.tracer, name, bound)))

	s.trackTool(name)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, "mcp."+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		metrics.RecordRequest(ctx, "mcp."+toolName, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	analyzeDocumentToolDescription = "Parse and analyze a WDL document, returning its " +
		"diagnostics and the workflow/task names it declares. Accepts a document URI " +
		"already reachable by the server (local path or configured scheme)."

	submitRunToolDescription = "Submit a WDL workflow or task for execution. Accepts a " +
		"document URI, an optional target workflow/task name, and JSON input values; " +
		"returns the new run's ID."

	getStatusToolDescription = "Get a run's current status, timestamps, and (once " +
		"completed) its outputs or error."

	listRunsToolDescription = "List runs, optionally filtered by session, status, or target."

	cancelRunToolDescription = "Cancel a run. The first call applies the run's configured " +
		"cancel mode (slow: let in-flight task calls finish; fast: tear them down " +
		"immediately); a second call always forces fast."
)
