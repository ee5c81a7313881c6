// Package tui implements the "wdlrun watch" live run dashboard: a
// bubbletea program that polls execmgr for a run's status and renders it
// until the run reaches a terminal state or the user quits.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles the watch dashboard renders with.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the dashboard's standard color scheme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("8")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// statusStyle picks the style matching a run's lifecycle stage.
func (s Styles) statusStyle(status string) lipgloss.Style {
	switch status {
	case "Completed":
		return s.Success
	case "Failed":
		return s.Error
	case "Canceling", "Canceled":
		return s.Warning
	case "Running":
		return s.Info
	default:
		return s.Muted
	}
}
