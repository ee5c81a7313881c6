package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// pollInterval is how often the dashboard refetches the run's status.
const pollInterval = 500 * time.Millisecond

// manager is the subset of execmgr.Manager the dashboard polls. Defined
// here, rather than imported directly, so tests can substitute a stub
// without standing up a real backend/store/analyzer.
type manager interface {
	GetStatus(ctx context.Context, runID string) (runstore.Run, error)
	GetOutputs(ctx context.Context, runID string) (string, error)
}

// terminalStatuses are the run states that stop polling.
var terminalStatuses = map[runstore.RunStatus]bool{
	runstore.RunCompleted: true,
	runstore.RunFailed:    true,
	runstore.RunCanceled:  true,
}

// stageProgress maps a run's status to the dashboard's progress fraction.
// There's no task-level breakdown available from the store's read API, so
// this tracks the run's own lifecycle stage rather than task completion.
var stageProgress = map[runstore.RunStatus]float64{
	runstore.RunQueued:    0.0,
	runstore.RunRunning:   0.5,
	runstore.RunCanceling: 0.75,
	runstore.RunCompleted: 1.0,
	runstore.RunFailed:    1.0,
	runstore.RunCanceled:  1.0,
}

type statusMsg struct {
	run runstore.Run
	err error
}

type outputsMsg struct {
	outputs string
	err     error
}

type tickMsg struct{}

// Model is the bubbletea model backing "wdlrun watch <run-id>".
type Model struct {
	mgr   manager
	runID string

	styles   Styles
	progress progress.Model

	run         runstore.Run
	outputs     string
	err         error
	fetchingOut bool
	width       int
	quitting    bool
}

// NewModel builds a watch dashboard for one run.
func NewModel(mgr manager, runID string) Model {
	return Model{
		mgr:      mgr,
		runID:    runID,
		styles:   DefaultStyles(),
		progress: progress.New(progress.WithDefaultGradient()),
		width:    80,
	}
}

// Init kicks off the first status poll.
func (m Model) Init() tea.Cmd {
	return m.pollStatus()
}

// Update handles incoming messages: window resizes, key presses, and the
// poll/tick cycle that drives the dashboard's refresh.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 4

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.run = msg.run

		if terminalStatuses[m.run.Status] {
			if m.run.Status == runstore.RunCompleted && !m.fetchingOut {
				m.fetchingOut = true
				return m, m.fetchOutputs()
			}

			return m, tea.Quit
		}

		return m, m.tick()

	case outputsMsg:
		if msg.err == nil {
			m.outputs = msg.outputs
		}

		return m, tea.Quit

	case tickMsg:
		return m, m.pollStatus()
	}

	return m, nil
}

// View renders the current run status, a lifecycle progress bar, and
// (once available) the run's outputs or error.
func (m Model) View() string {
	var sb strings.Builder

	title := m.styles.Header.Render(fmt.Sprintf(" run %s ", m.runID))
	sb.WriteString(title + "\n\n")

	if m.err != nil {
		sb.WriteString(m.styles.Error.Render("error: "+m.err.Error()) + "\n")
		return sb.String()
	}

	if m.run.ID == "" {
		sb.WriteString(m.styles.Muted.Render("fetching status...") + "\n")
		return sb.String()
	}

	status := m.styles.statusStyle(string(m.run.Status)).Render(strings.ToUpper(string(m.run.Status)))
	sb.WriteString(m.styles.Bold.Render("status: ") + status + "\n\n")

	sb.WriteString(m.progress.ViewAs(stageProgress[m.run.Status]) + "\n\n")

	if !m.run.StartedAt.IsZero() {
		sb.WriteString(m.styles.Muted.Render("started:   "+m.run.StartedAt.Format(time.RFC3339)) + "\n")
	}

	if !m.run.CompletedAt.IsZero() {
		sb.WriteString(m.styles.Muted.Render("completed: "+m.run.CompletedAt.Format(time.RFC3339)) + "\n")
	}

	if m.run.Error != "" {
		sb.WriteString("\n" + m.styles.Error.Render("error: "+m.run.Error) + "\n")
	}

	if m.outputs != "" {
		sb.WriteString("\n" + m.styles.Bold.Render("outputs:") + "\n")
		sb.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.outputs) + "\n")
	}

	if m.quitting {
		return sb.String()
	}

	sb.WriteString("\n" + m.styles.Muted.Render("[q] quit") + "\n")

	return sb.String()
}

func (m Model) pollStatus() tea.Cmd {
	return func() tea.Msg {
		run, err := m.mgr.GetStatus(context.Background(), m.runID)
		return statusMsg{run: run, err: err}
	}
}

func (m Model) fetchOutputs() tea.Cmd {
	return func() tea.Msg {
		outputs, err := m.mgr.GetOutputs(context.Background(), m.runID)
		return outputsMsg{outputs: outputs, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
