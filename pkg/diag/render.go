package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wdlrun/wdlrun/pkg/span"
)

// severityColor maps a Severity to the fatih/color style used by RenderTerminal.
func severityColor(s Severity) *color.Color {
	switch s {
	case SeverityError:
		return color.New(color.FgRed, color.Bold)
	case SeverityWarning:
		return color.New(color.FgYellow, color.Bold)
	case SeverityNote:
		return color.New(color.FgBlue)
	default:
		return color.New()
	}
}

// RenderTerminal writes a human-facing, optionally colored report of diags to w,
// one block per diagnostic, in the order given (callers should Sort first).
// Positions are resolved against lines, keyed by URI; a nil *span.LineIndex for
// a URI falls back to raw byte offsets.
func RenderTerminal(w io.Writer, diags []Diagnostic, lines map[string]*span.LineIndex, noColor bool) {
	sev := func(s Severity) *color.Color {
		c := severityColor(s)
		c.EnableColor()

		if noColor {
			c.DisableColor()
		}

		return c
	}

	for _, d := range diags {
		loc := locationString(d.URI, d.PrimarySpan, lines[d.URI])

		sev(d.Severity).Fprintf(w, "%s", strings.ToUpper(d.Severity.String())) //nolint:errcheck
		fmt.Fprintf(w, ": %s\n", d.Message)
		fmt.Fprintf(w, "  --> %s\n", loc)

		for _, l := range d.Labels {
			labelLoc := locationString(d.URI, l.Span, lines[d.URI])
			fmt.Fprintf(w, "      %s: %s\n", labelLoc, l.Message)
		}

		if d.Fix != "" {
			color.New(color.FgGreen).Fprintf(w, "  help: %s\n", d.Fix) //nolint:errcheck
		}

		fmt.Fprintln(w)
	}
}

func locationString(uri string, s span.Span, idx *span.LineIndex) string {
	if idx == nil {
		return fmt.Sprintf("%s:%s", uri, s)
	}

	return fmt.Sprintf("%s:%s", uri, idx.Position(s.Start))
}

// RenderTable writes a go-pretty table summarizing diags: one row per
// diagnostic with URI, position, severity, and message columns, plus a
// trailing footer with error/warning/note counts.
func RenderTable(w io.Writer, diags []Diagnostic, lines map[string]*span.LineIndex) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Severity", "Location", "Message", "Rule"})

	var errs, warns, notes int

	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		case SeverityNote:
			notes++
		}

		tbl.AppendRow(table.Row{
			d.Severity.String(),
			locationString(d.URI, d.PrimarySpan, lines[d.URI]),
			d.Message,
			d.RuleID,
		})
	}

	tbl.AppendFooter(table.Row{
		"", "", fmt.Sprintf("%d error(s), %d warning(s), %d note(s)", errs, warns, notes), "",
	})

	tbl.Render()
}
