package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// statusColor returns the color a run's status should render in, grounded
// on the same semantic palette as pkg/tui's Styles.statusStyle.
func statusColor(status runstore.RunStatus) *color.Color {
	switch status {
	case runstore.RunCompleted:
		return color.New(color.FgGreen)
	case runstore.RunFailed:
		return color.New(color.FgRed)
	case runstore.RunCanceling, runstore.RunCanceled:
		return color.New(color.FgYellow)
	case runstore.RunRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// printRunStatus writes a single run's status line, colored by terminal
// state, to w.
func printRunStatus(w io.Writer, run runstore.Run) {
	statusColor(run.Status).Fprintf(w, "%s\n", strings.ToUpper(string(run.Status))) //nolint:errcheck // best-effort CLI output
	fmt.Fprintf(w, "run:      %s\n", run.ID)
	fmt.Fprintf(w, "session:  %s\n", run.SessionID)
	fmt.Fprintf(w, "target:   %s\n", run.Target)

	if !run.StartedAt.IsZero() {
		fmt.Fprintf(w, "started:  %s (%s)\n", run.StartedAt.Format(timeFormat), humanize.Time(run.StartedAt))
	}

	if !run.CompletedAt.IsZero() {
		fmt.Fprintf(w, "finished: %s\n", run.CompletedAt.Format(timeFormat))
		fmt.Fprintf(w, "duration: %s\n", humanize.RelTime(run.StartedAt, run.CompletedAt, "", ""))
	} else if !run.StartedAt.IsZero() {
		fmt.Fprintf(w, "elapsed:  %s\n", humanize.RelTime(run.StartedAt, time.Now(), "", ""))
	}

	if run.Error != "" {
		color.New(color.FgRed).Fprintf(w, "error:    %s\n", run.Error) //nolint:errcheck // best-effort CLI output
	}
}

// printRunTable renders a list of runs as a go-pretty table.
func printRunTable(w io.Writer, runs []runstore.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(table.Row{"RUN ID", "SESSION", "TARGET", "STATUS", "STARTED"})

	for _, run := range runs {
		started := ""
		if !run.StartedAt.IsZero() {
			started = run.StartedAt.Format(timeFormat)
		}

		tbl.AppendRow(table.Row{run.ID, run.SessionID, run.Target, strings.ToUpper(string(run.Status)), started})
	}

	tbl.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d run(s)", len(runs))})
	tbl.Render()
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
