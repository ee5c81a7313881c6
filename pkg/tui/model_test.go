package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/runstore"
)

type stubManager struct {
	run        runstore.Run
	statusErr  error
	outputs    string
	outputsErr error
}

func (s *stubManager) GetStatus(_ context.Context, _ string) (runstore.Run, error) {
	return s.run, s.statusErr
}

func (s *stubManager) GetOutputs(_ context.Context, _ string) (string, error) {
	return s.outputs, s.outputsErr
}

func TestModel_PollStatus_RunningReschedulesTick(t *testing.T) {
	t.Parallel()

	mgr := &stubManager{run: runstore.Run{ID: "r1", Status: runstore.RunRunning}}
	m := NewModel(mgr, "r1")

	updated, cmd := m.Update(statusMsg{run: mgr.run})
	model := updated.(Model)

	assert.Equal(t, runstore.RunRunning, model.run.Status)
	require.NotNil(t, cmd, "running status should schedule another tick")

	msg := cmd()
	_, ok := msg.(tickMsg)
	assert.True(t, ok, "expected tickMsg, got %T", msg)
}

func TestModel_PollStatus_CompletedFetchesOutputs(t *testing.T) {
	t.Parallel()

	mgr := &stubManager{
		run:     runstore.Run{ID: "r1", Status: runstore.RunCompleted},
		outputs: `{"greeting": "hi"}`,
	}
	m := NewModel(mgr, "r1")

	updated, cmd := m.Update(statusMsg{run: mgr.run})
	model := updated.(Model)

	assert.True(t, model.fetchingOut)
	require.NotNil(t, cmd)

	msg := cmd()
	out, ok := msg.(outputsMsg)
	require.True(t, ok, "expected outputsMsg, got %T", msg)
	assert.Equal(t, mgr.outputs, out.outputs)

	updated, cmd = model.Update(out)
	model = updated.(Model)

	assert.Equal(t, mgr.outputs, model.outputs)
	require.NotNil(t, cmd, "outputs landing should quit the program")
}

func TestModel_PollStatus_FailedQuitsWithoutOutputs(t *testing.T) {
	t.Parallel()

	mgr := &stubManager{run: runstore.Run{ID: "r1", Status: runstore.RunFailed, Error: "boom"}}
	m := NewModel(mgr, "r1")

	updated, cmd := m.Update(statusMsg{run: mgr.run})
	model := updated.(Model)

	assert.Equal(t, runstore.RunFailed, model.run.Status)
	assert.False(t, model.fetchingOut)
	require.NotNil(t, cmd, "terminal non-completed status should still return tea.Quit")
}

func TestModel_PollStatus_Error(t *testing.T) {
	t.Parallel()

	mgr := &stubManager{statusErr: errors.New("not found")}
	m := NewModel(mgr, "missing")

	updated, cmd := m.Update(statusMsg{err: mgr.statusErr})
	model := updated.(Model)

	assert.EqualError(t, model.err, "not found")
	assert.Nil(t, cmd)
}

func TestModel_View_RendersStatus(t *testing.T) {
	t.Parallel()

	mgr := &stubManager{run: runstore.Run{ID: "r1", Status: runstore.RunRunning}}
	m := NewModel(mgr, "r1")

	updated, _ := m.Update(statusMsg{run: mgr.run})
	model := updated.(Model)

	view := model.View()

	assert.Contains(t, view, "r1")
	assert.Contains(t, view, "RUNNING")
}

func TestModel_Update_QuitKey(t *testing.T) {
	t.Parallel()

	m := NewModel(&stubManager{}, "r1")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	model := updated.(Model)

	assert.True(t, model.quitting)
	require.NotNil(t, cmd)
}
