package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewOutputsCommand shows a completed run's outputs as raw JSON.
func NewOutputsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "outputs <run-id>",
		Short: "Show a completed run's outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			runID := args[0]

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			outputs, err := a.manager.GetOutputs(cobraCmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("get outputs: %w", err)
			}

			fmt.Fprintln(os.Stdout, outputs)

			return nil
		},
	}
}
