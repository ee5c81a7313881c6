package commands

import (
	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/mcp"
	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewMCPCommand starts an MCP server exposing document analysis and run
// execution as tools over stdio transport.
func NewMCPCommand(configPath *string) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes wdlrun's capabilities as tools that AI agents can
discover and invoke:
  - analyze_document: parse and type-check a WDL document
  - submit_run: submit a workflow or task run
  - get_status: fetch a run's current status
  - list_runs: list runs, optionally filtered
  - cancel_run: cancel a running or queued run`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeMCP, debug)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			deps := mcp.ServerDeps{
				Manager:  a.manager,
				Analyzer: a.analyzer,
				Logger:   a.providers.Logger,
				Metrics:  a.redMetrics,
				Tracer:   a.providers.Tracer,
			}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	return cmd
}
