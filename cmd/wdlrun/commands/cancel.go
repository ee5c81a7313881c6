package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewCancelCommand cancels a running or queued run.
func NewCancelCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a running or queued run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			runID := args[0]

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			if cancelErr := a.manager.Cancel(cobraCmd.Context(), runID); cancelErr != nil {
				return fmt.Errorf("cancel run: %w", cancelErr)
			}

			run, err := a.manager.GetStatus(cobraCmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			printRunStatus(os.Stdout, run)

			return nil
		},
	}
}
