package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wdlrun/wdlrun/pkg/execmgr"
)

// Watch runs the live dashboard for runID until it reaches a terminal
// status or the user quits. mgr must be running (its Run loop already
// started) since this only polls read-side commands.
func Watch(mgr *execmgr.Manager, runID string) error {
	program := tea.NewProgram(NewModel(mgr, runID))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch dashboard: %w", err)
	}

	return nil
}
