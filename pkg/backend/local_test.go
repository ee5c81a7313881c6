package backend_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/backend"
)

func TestLocalBackendRunsCommandAndCapturesOutput(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := t.TempDir()

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: "echo hello",
		WorkDir: dir,
	})
	require.NoError(t, err)

	result, err := b.Await(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	out, err := b.Stdout(context.Background(), h)
	require.NoError(t, err)

	defer out.Close()

	content, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestLocalBackendReportsNonZeroExit(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := t.TempDir()

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: "exit 7",
		WorkDir: dir,
	})
	require.NoError(t, err)

	result, err := b.Await(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode)

	status, err := b.Status(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusFailed, status)
}

func TestLocalBackendCancelStopsRunningProcess(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := t.TempDir()

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: "sleep 30",
		WorkDir: dir,
	})
	require.NoError(t, err)

	require.NoError(t, b.Cancel(context.Background(), h))

	result, err := b.Await(context.Background(), h)
	require.NoError(t, err)
	assert.NotEqual(t, 0, result.ExitCode)

	status, err := b.Status(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusCanceled, status)
}

func TestLocalBackendEnvIsPassedThrough(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := t.TempDir()

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: `echo "$GREETING"`,
		WorkDir: dir,
		Env:     map[string]string{"GREETING": "howdy"},
	})
	require.NoError(t, err)

	_, err = b.Await(context.Background(), h)
	require.NoError(t, err)

	out, err := b.Stdout(context.Background(), h)
	require.NoError(t, err)

	defer out.Close()

	content, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "howdy\n", string(content))
}

func TestLocalBackendTimeoutCancelsLongCommand(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := t.TempDir()

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: "sleep 30",
		WorkDir: dir,
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := b.Await(context.Background(), h)
	require.NoError(t, err)
	assert.NotEqual(t, 0, result.ExitCode)
}

func TestLocalBackendUnknownHandleErrors(t *testing.T) {
	b := backend.NewLocalBackend()

	_, err := b.Status(context.Background(), fakeHandle{})
	assert.Error(t, err)
}

func TestLocalBackendWorkDirIsCreated(t *testing.T) {
	b := backend.NewLocalBackend()
	dir := filepath.Join(t.TempDir(), "nested", "work")

	h, err := b.Submit(context.Background(), backend.Spec{
		Command: "pwd",
		WorkDir: dir,
	})
	require.NoError(t, err)

	_, err = b.Await(context.Background(), h)
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
}

type fakeHandle struct{}

func (fakeHandle) ID() string { return "nonexistent" }
