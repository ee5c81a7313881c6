package runstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// storeFactories exercises the contract against every backend that needs
// no external service: in-memory, bbolt and SQLite (the last two on a
// throwaway file). PostgresStore needs a live server and is left for an
// integration-tagged suite.
func storeFactories(t *testing.T) map[string]func() runstore.Store {
	t.Helper()

	return map[string]func() runstore.Store{
		"memory": func() runstore.Store { return runstore.NewMemoryStore() },
		"bbolt": func() runstore.Store {
			db, err := runstore.OpenBolt(filepath.Join(t.TempDir(), "run.db"))
			require.NoError(t, err)

			return db
		},
		"sqlite": func() runstore.Store {
			db, err := runstore.OpenSQLite(filepath.Join(t.TempDir(), "run.sqlite"))
			require.NoError(t, err)

			return db
		},
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			ctx := context.Background()
			now := time.Now().Truncate(time.Second)

			require.NoError(t, store.CreateSession(ctx, runstore.Session{
				ID: "sess-1", Command: "wdlrun run wf.wdl", CreatedBy: "alice", CreatedAt: now,
			}))

			require.NoError(t, store.CreateRun(ctx, runstore.Run{
				ID: "run-1", SessionID: "sess-1", Source: "wf.wdl", Target: "main",
				Inputs: `{}`, Status: runstore.RunQueued, OutputDir: "/tmp/run-1",
			}))

			require.NoError(t, store.UpdateRunStatus(ctx, "run-1", runstore.RunRunning, now))

			require.NoError(t, store.RecordTask(ctx, runstore.TaskRecord{
				RunID: "run-1", CallPath: "greet", Attempt: 1, Backend: "local", Status: runstore.TaskRunning,
				StartedAt: now,
			}))

			exit := 0
			require.NoError(t, store.UpdateTask(ctx, "run-1", "greet", 1, runstore.TaskSucceeded, &exit, now))

			require.NoError(t, store.AppendLog(ctx, runstore.LogLine{RunID: "run-1", Source: "stdout", Line: "hi", At: now}))
			require.NoError(t, store.SetOutputs(ctx, "run-1", `{"greeting":"hi"}`))
			require.NoError(t, store.UpdateRunStatus(ctx, "run-1", runstore.RunCompleted, now))

			got, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, runstore.RunCompleted, got.Status)
			assert.Equal(t, `{"greeting":"hi"}`, got.Outputs)

			sess, err := store.GetSession(ctx, "sess-1")
			require.NoError(t, err)
			assert.Equal(t, "alice", sess.CreatedBy)

			runs, err := store.ListRuns(ctx, runstore.ListFilter{SessionID: "sess-1"}, 10, 0)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "run-1", runs[0].ID)
		})
	}
}

func TestStoreGetRunNotFound(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			_, err := store.GetRun(context.Background(), "nope")
			assert.ErrorIs(t, err, runstore.ErrNotFound)
		})
	}
}

func TestStoreRecoverCrashedRunsMarksUnresolvableRunsFailed(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			ctx := context.Background()

			require.NoError(t, store.CreateRun(ctx, runstore.Run{
				ID: "stuck", Status: runstore.RunRunning, OutputDir: "/tmp/stuck",
			}))
			require.NoError(t, store.CreateRun(ctx, runstore.Run{
				ID: "alive", Status: runstore.RunRunning, OutputDir: "/tmp/alive",
			}))

			failed, err := store.RecoverCrashedRuns(ctx, func(runID string) bool { return runID == "alive" })
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"stuck"}, failed)

			got, err := store.GetRun(ctx, "stuck")
			require.NoError(t, err)
			assert.Equal(t, runstore.RunFailed, got.Status)
			assert.Equal(t, "interrupted", got.Error)

			stillAlive, err := store.GetRun(ctx, "alive")
			require.NoError(t, err)
			assert.Equal(t, runstore.RunRunning, stillAlive.Status)
		})
	}
}

func TestStoreListRunsFiltersByStatus(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			ctx := context.Background()

			require.NoError(t, store.CreateRun(ctx, runstore.Run{ID: "a", Status: runstore.RunCompleted, OutputDir: "/a"}))
			require.NoError(t, store.CreateRun(ctx, runstore.Run{ID: "b", Status: runstore.RunFailed, OutputDir: "/b"}))

			runs, err := store.ListRuns(ctx, runstore.ListFilter{Status: runstore.RunFailed}, 10, 0)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "b", runs[0].ID)
		})
	}
}
