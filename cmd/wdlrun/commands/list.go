package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// defaultListLimit bounds how many runs "list" shows when --limit isn't set.
const defaultListLimit = 50

// NewListCommand lists runs, optionally filtered by session, status, or
// target.
func NewListCommand(configPath *string) *cobra.Command {
	var (
		sessionID string
		status    string
		target    string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			filter := runstore.ListFilter{
				SessionID: sessionID,
				Status:    runstore.RunStatus(status),
				Target:    target,
			}

			if limit <= 0 {
				limit = defaultListLimit
			}

			runs, err := a.manager.List(cobraCmd.Context(), filter, limit, offset)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			printRunTable(os.Stdout, runs)

			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "filter by session ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (Queued|Running|Canceling|Canceled|Completed|Failed)")
	cmd.Flags().StringVar(&target, "target", "", "filter by workflow/task target name")
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum number of runs to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")

	return cmd
}
