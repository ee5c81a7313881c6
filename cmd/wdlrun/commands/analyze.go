package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/diag"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewAnalyzeCommand parses and type-checks a WDL document and prints each
// analyzed document's diagnostics. It prints no summary of the tasks or
// workflow a document declares.
func NewAnalyzeCommand(configPath *string) *cobra.Command {
	var noColor bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "analyze <uri>",
		Short: "Parse and type-check a WDL document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			uri := args[0]

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			if addErr := a.analyzer.AddDocument(cobraCmd.Context(), uri); addErr != nil {
				return fmt.Errorf("add document: %w", addErr)
			}

			if runErr := analyzeAndPrint(cobraCmd.Context(), a, uri); runErr != nil && !watch {
				return runErr
			}

			if !watch {
				return nil
			}

			return watchAndReanalyze(cobraCmd.Context(), a, uri)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored diagnostic output")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-analyze on every on-disk change to the document")

	return cmd
}

// analyzeAndPrint runs one analysis pass over uri and prints its
// diagnostics, returning an error if any are error-severity.
func analyzeAndPrint(ctx context.Context, a *app, uri string) error {
	results := a.analyzer.Analyze(uri)
	if len(results) == 0 {
		return fmt.Errorf("no analysis results for %q", uri)
	}

	hasErrors := false
	for _, result := range results {
		if printResult(os.Stdout, result.URI, result.Diagnostics) {
			hasErrors = true
		}
	}

	if hasErrors {
		return fmt.Errorf("document has error-level diagnostics")
	}

	return nil
}

// watchAndReanalyze keeps re-running analyzeAndPrint for uri every time its
// backing file changes on disk, until ctx is canceled.
func watchAndReanalyze(ctx context.Context, a *app, uri string) error {
	w, err := docgraph.NewWatcher(a.analyzer, a.providers.Logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	w.OnChange = func(changedURI string, oldSource, newSource []byte) {
		fmt.Fprintf(os.Stdout, "\n--- %s changed ---\n", changedURI)
		printSourceDiff(os.Stdout, oldSource, newSource)
		_ = analyzeAndPrint(ctx, a, changedURI)
	}

	if err := w.Watch(uri); err != nil {
		return fmt.Errorf("watch %q: %w", uri, err)
	}

	go w.Run(ctx)

	fmt.Fprintf(os.Stdout, "watching %s for changes (ctrl-c to stop)\n", uri)

	<-ctx.Done()

	return nil
}

// printSourceDiff prints a colored line-level diff between a document's
// previous and current source, in the same diffmatchpatch shape the
// teacher uses for file-level git diffs.
func printSourceDiff(w io.Writer, oldSource, newSource []byte) {
	if len(oldSource) == 0 {
		return
	}

	dmp := diffmatchpatch.New()

	src, dst, lines := dmp.DiffLinesToRunes(string(oldSource), string(newSource))
	diffs := dmp.DiffCleanupMerge(dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines))

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}

		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				color.New(color.FgGreen).Fprintf(w, "+ %s\n", line) //nolint:errcheck // best-effort CLI output
			case diffmatchpatch.DiffDelete:
				color.New(color.FgRed).Fprintf(w, "- %s\n", line) //nolint:errcheck // best-effort CLI output
			case diffmatchpatch.DiffEqual:
				// unchanged context is omitted to keep watch output terse
			}
		}
	}
}

// printResult prints one document's diagnostics and returns true if any are
// error severity.
func printResult(w *os.File, uri string, diagnostics []diag.Diagnostic) bool {
	hasErrors := false

	if len(diagnostics) == 0 {
		color.New(color.FgGreen).Fprintf(w, "%s: no diagnostics\n", uri) //nolint:errcheck // best-effort CLI output
		return false
	}

	for _, d := range diagnostics {
		c := color.New(color.FgYellow)
		if d.Severity == diag.SeverityError {
			c = color.New(color.FgRed)
			hasErrors = true
		}

		c.Fprintf(w, "%s: %s: %s\n", uri, strings.ToUpper(d.Severity.String()), d.Message) //nolint:errcheck // best-effort CLI output

		if d.Fix != "" {
			fmt.Fprintf(w, "  fix: %s\n", d.Fix)
		}
	}

	return hasErrors
}
