// Package main provides the entry point for the wdlrun CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/cmd/wdlrun/commands"
	"github.com/wdlrun/wdlrun/pkg/version"
)

var (
	verbose    bool
	quiet      bool
	configPath string
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "wdlrun",
		Short: "wdlrun - WDL document analysis and execution engine",
		Long: `wdlrun parses and type-checks WDL workflow documents and executes
their tasks as local processes.

Commands:
  analyze   Parse and type-check a WDL document
  submit    Submit a workflow or task run
  status    Show a run's current status
  outputs   Show a completed run's outputs
  list      List runs, optionally filtered
  cancel    Cancel a running or queued run
  watch     Live dashboard for one run
  mcp       Start an MCP server exposing these capabilities as tools
  serve     Run as a long-lived server with health and metrics endpoints`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (accepted, but no command reads it)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output (accepted, but no command reads it)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: search standard locations)")

	rootCmd.AddCommand(commands.NewAnalyzeCommand(&configPath))
	rootCmd.AddCommand(commands.NewSubmitCommand(&configPath))
	rootCmd.AddCommand(commands.NewStatusCommand(&configPath))
	rootCmd.AddCommand(commands.NewOutputsCommand(&configPath))
	rootCmd.AddCommand(commands.NewListCommand(&configPath))
	rootCmd.AddCommand(commands.NewCancelCommand(&configPath))
	rootCmd.AddCommand(commands.NewWatchCommand(&configPath))
	rootCmd.AddCommand(commands.NewMCPCommand(&configPath))
	rootCmd.AddCommand(commands.NewServeCommand(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "wdlrun %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
