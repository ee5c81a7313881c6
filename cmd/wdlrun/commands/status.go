package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewStatusCommand shows a run's current status.
func NewStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show a run's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			runID := args[0]

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			run, err := a.manager.GetStatus(cobraCmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			printRunStatus(os.Stdout, run)

			return nil
		},
	}
}
