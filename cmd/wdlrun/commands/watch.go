package commands

import (
	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
	"github.com/wdlrun/wdlrun/pkg/tui"
)

// NewWatchCommand opens a live dashboard for one run, polling its status
// until it reaches a terminal state or the user quits.
func NewWatchCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Live dashboard for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			runID := args[0]

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			return tui.Watch(a.manager, runID)
		},
	}
}
