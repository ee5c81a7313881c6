package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/mcp"
	"github.com/wdlrun/wdlrun/pkg/runstore"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

const helloWorkflowSource = "version 1.0\n" +
	"task greet {\n" +
	"command {\n" +
	"echo \"hi\" > greeting_file\n" +
	"}\n" +
	"output {\n" +
	"greeting_file = \"greeting_file\"\n" +
	"}\n" +
	"}\n" +
	"workflow hello {\n" +
	"call greet\n" +
	"}\n"

func newTestServer(t *testing.T) (*mcp.Server, context.CancelFunc) {
	t.Helper()

	fetcher := docgraph.FetchFunc(func(_ context.Context, _ string) ([]byte, error) {
		return []byte(helloWorkflowSource), nil
	})

	analyzer := docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher)

	mgr := execmgr.New(execmgr.Config{
		Analyzer: analyzer,
		Store:    runstore.NewMemoryStore(),
		Backend:  backend.NewLocalBackend(),
		WorkDir:  t.TempDir(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go mgr.Run(ctx)

	srv := mcp.NewServer(mcp.ServerDeps{
		Manager:  mgr,
		Analyzer: analyzer,
	})

	return srv, cancel
}

func connect(t *testing.T, ctx context.Context, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	t.Cleanup(func() { <-serverDone })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = session.Close() })

	return session
}

func TestMCPServer_ToolsList(t *testing.T) {
	t.Parallel()

	srv, cancel := newTestServer(t)
	defer cancel()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	session := connect(t, ctx, srv)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
	}

	assert.Contains(t, toolNames, mcp.ToolNameAnalyzeDocument)
	assert.Contains(t, toolNames, mcp.ToolNameSubmitRun)
	assert.Contains(t, toolNames, mcp.ToolNameGetStatus)
	assert.Contains(t, toolNames, mcp.ToolNameListRuns)
	assert.Contains(t, toolNames, mcp.ToolNameCancelRun)
	assert.Len(t, toolNames, 5)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestMCPServer_SubmitRunAndGetStatus(t *testing.T) {
	t.Parallel()

	srv, cancel := newTestServer(t)
	defer cancel()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: mcp.ToolNameSubmitRun,
		Arguments: map[string]any{
			"source": "hello.wdl",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.IsError, "submit_run should succeed")
	require.NotEmpty(t, result.Content)

	// Poll get_status until it returns a non-error result or the test
	// context expires; the worker runs asynchronously.
	var status *mcpsdk.CallToolResult

	for {
		status, err = session.CallTool(ctx, &mcpsdk.CallToolParams{
			Name: mcp.ToolNameGetStatus,
			Arguments: map[string]any{
				"run_id": extractFirstTextField(t, result, "run_id"),
			},
		})
		require.NoError(t, err)
		require.NotNil(t, status)

		if !status.IsError {
			break
		}

		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for run status")
		case <-time.After(10 * time.Millisecond):
		}
	}

	assert.False(t, status.IsError)
}

func TestMCPServer_GetStatus_EmptyRunID(t *testing.T) {
	t.Parallel()

	srv, cancel := newTestServer(t)
	defer cancel()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameGetStatus,
		Arguments: map[string]any{"run_id": ""},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestMCPServer_AnalyzeDocument(t *testing.T) {
	t.Parallel()

	srv, cancel := newTestServer(t)
	defer cancel()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: mcp.ToolNameAnalyzeDocument,
		Arguments: map[string]any{
			"uri": "hello.wdl",
			"add": true,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}

func TestMCPServer_ListRuns_Empty(t *testing.T) {
	t.Parallel()

	srv, cancel := newTestServer(t)
	defer cancel()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameListRuns,
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

// extractFirstTextField pulls a string field out of the first text content
// block of a tool result, assuming it's a single-level JSON object.
func extractFirstTextField(t *testing.T, result *mcpsdk.CallToolResult, field string) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected first content block to be text")

	return jsonField(t, text.Text, field)
}

// jsonField unmarshals a tool's JSON text content and returns the named
// top-level string field.
func jsonField(t *testing.T, text, field string) string {
	t.Helper()

	var obj map[string]any

	require.NoError(t, json.Unmarshal([]byte(text), &obj))

	value, _ := obj[field].(string)

	return value
}
