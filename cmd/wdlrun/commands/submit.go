package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/observability"
)

// NewSubmitCommand submits a workflow or task run and prints the new run ID.
func NewSubmitCommand(configPath *string) *cobra.Command {
	var (
		target     string
		sessionID  string
		inputsPath string
		cancelMode string
	)

	cmd := &cobra.Command{
		Use:   "submit <uri>",
		Short: "Submit a workflow or task run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			source := args[0]

			inputs, err := loadInputs(inputsPath)
			if err != nil {
				return err
			}

			a, err := buildApp(cobraCmd.Context(), *configPath, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close(cobraCmd.Context())

			req := execmgr.SubmitRequest{
				SessionID: sessionID,
				Command:   "wdlrun submit",
				CreatedBy: "cli",
				Source:    source,
				Target:    target,
				Inputs:    inputs,
			}

			if cancelMode != "" {
				mode := parseCancelMode(cancelMode)
				req.CancelMode = &mode
			}

			runID, err := a.manager.Submit(cobraCmd.Context(), req)
			if err != nil {
				return fmt.Errorf("submit run: %w", err)
			}

			fmt.Fprintf(os.Stdout, "%s\n", runID)

			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "explicit workflow/task name; empty auto-picks the document's single target")
	cmd.Flags().StringVar(&sessionID, "session", "", "attach this run to an existing session; empty creates a new one")
	cmd.Flags().StringVar(&inputsPath, "inputs", "", "path to a JSON inputs file; '-' reads stdin")
	cmd.Flags().StringVar(&cancelMode, "cancel-mode", "", "slow|fast, overrides the configured default for this run")

	return cmd
}

// loadInputs decodes a JSON object of input values from path, or returns
// nil if path is empty.
func loadInputs(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	var data []byte

	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	var inputs map[string]any
	if unmarshalErr := json.Unmarshal(data, &inputs); unmarshalErr != nil {
		return nil, fmt.Errorf("parse inputs: %w", unmarshalErr)
	}

	return inputs, nil
}
