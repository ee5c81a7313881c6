package execmgr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/runstore"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

func newManager(t *testing.T, source string) (*execmgr.Manager, context.CancelFunc) {
	t.Helper()

	fetcher := docgraph.FetchFunc(func(_ context.Context, _ string) ([]byte, error) {
		return []byte(source), nil
	})

	m := execmgr.New(execmgr.Config{
		Analyzer: docgraph.NewAnalyzer(syntax.DefaultMockParser, fetcher),
		Store:    runstore.NewMemoryStore(),
		Backend:  backend.NewLocalBackend(),
		WorkDir:  t.TempDir(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	return m, cancel
}

const helloWorkflow = "version 1.0\n" +
	"task greet {\n" +
	"command {\n" +
	"echo \"hi\" > greeting_file\n" +
	"}\n" +
	"output {\n" +
	"greeting_file = \"greeting_file\"\n" +
	"}\n" +
	"}\n" +
	"workflow main {\n" +
	"call greet\n" +
	"}\n"

func waitForTerminal(t *testing.T, m *execmgr.Manager, runID string) runstore.Run {
	t.Helper()

	deadline := time.After(5 * time.Second)

	for {
		run, err := m.GetStatus(context.Background(), runID)
		require.NoError(t, err)

		switch run.Status {
		case runstore.RunCompleted, runstore.RunFailed, runstore.RunCanceled:
			return run
		}

		select {
		case <-deadline:
			t.Fatalf("run %q did not reach a terminal state in time (last status %q)", runID, run.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManagerSubmitRunsWorkflowToCompletion(t *testing.T) {
	m, cancel := newManager(t, helloWorkflow)
	defer cancel()

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "wf.wdl", CreatedBy: "tester"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run := waitForTerminal(t, m, runID)
	assert.Equal(t, runstore.RunCompleted, run.Status)
	assert.NotEmpty(t, run.Outputs)

	outputs, err := m.GetOutputs(context.Background(), runID)
	require.NoError(t, err)
	assert.Contains(t, outputs, "greeting_file")
}

func TestManagerSubmitBareTaskUsesSyntheticWorkflow(t *testing.T) {
	source := "version 1.0\n" +
		"task greet {\n" +
		"command {\n" +
		"echo \"hi\" > greeting_file\n" +
		"}\n" +
		"output {\n" +
		"greeting_file = \"greeting_file\"\n" +
		"}\n" +
		"}\n"

	m, cancel := newManager(t, source)
	defer cancel()

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "task.wdl"})
	require.NoError(t, err)

	run := waitForTerminal(t, m, runID)
	assert.Equal(t, runstore.RunCompleted, run.Status)
}

func TestManagerSubmitUnknownTargetFails(t *testing.T) {
	m, cancel := newManager(t, helloWorkflow)
	defer cancel()

	_, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "wf.wdl", Target: "nope"})
	assert.Error(t, err)
}

func TestManagerCancelFastStopsRun(t *testing.T) {
	source := "version 1.0\n" +
		"task slow {\n" +
		"command {\n" +
		"sleep 5\n" +
		"}\n" +
		"}\n" +
		"workflow main {\n" +
		"call slow\n" +
		"}\n"

	m, cancel := newManager(t, source)
	defer cancel()

	fastMode := execmgr.CancelFast

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "slow.wdl", CancelMode: &fastMode})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		run, err := m.GetStatus(context.Background(), runID)
		return err == nil && run.Status != runstore.RunQueued
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Cancel(context.Background(), runID))

	run := waitForTerminal(t, m, runID)
	assert.Equal(t, runstore.RunCanceled, run.Status)
}

func TestManagerGetSessionListsItsRuns(t *testing.T) {
	m, cancel := newManager(t, helloWorkflow)
	defer cancel()

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "wf.wdl", Command: "wdlrun run wf.wdl"})
	require.NoError(t, err)

	waitForTerminal(t, m, runID)

	run, err := m.GetStatus(context.Background(), runID)
	require.NoError(t, err)

	sess, runs, err := m.ListSessions(context.Background(), run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "wdlrun run wf.wdl", sess.Command)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
}

// TestManagerCancelFastStopsRun_NoGoroutineLeak is the concurrency-heavy
// cancel scenario (spec.md §8 S4): canceling an in-flight run must tear
// down its worker and any backend polling goroutines, not just mark the
// run record canceled.
func TestManagerCancelFastStopsRun_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := "version 1.0\n" +
		"task slow {\n" +
		"command {\n" +
		"sleep 5\n" +
		"}\n" +
		"}\n" +
		"workflow main {\n" +
		"call slow\n" +
		"}\n"

	m, cancel := newManager(t, source)

	fastMode := execmgr.CancelFast

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "slow.wdl", CancelMode: &fastMode})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		run, err := m.GetStatus(context.Background(), runID)
		return err == nil && run.Status != runstore.RunQueued
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Cancel(context.Background(), runID))

	run := waitForTerminal(t, m, runID)
	assert.Equal(t, runstore.RunCanceled, run.Status)

	m.Shutdown(context.Background(), time.Second)
	cancel()
}

func TestManagerShutdownDrainsInflightRuns(t *testing.T) {
	m, cancel := newManager(t, helloWorkflow)
	defer cancel()

	runID, err := m.Submit(context.Background(), execmgr.SubmitRequest{Source: "wf.wdl"})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		m.Shutdown(context.Background(), 5*time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not return")
	}

	run := waitForTerminal(t, m, runID)
	assert.Equal(t, runstore.RunCompleted, run.Status)
}
