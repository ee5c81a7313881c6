package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wdlrun/wdlrun/pkg/observability"
	"github.com/wdlrun/wdlrun/pkg/runstore"
)

// NewServeCommand runs wdlrun as a long-lived process: the execmgr.Manager
// actor loop stays up, and /healthz, /readyz, /metrics are served over
// HTTP on config.ServerConfig's host/port, grounded on the teacher's
// internal/observability.DiagnosticsServer.
func NewServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run wdlrun as a long-lived server with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mp, metricsHandler, err := observability.NewPrometheusMeterProvider()
			if err != nil {
				return fmt.Errorf("init prometheus metrics: %w", err)
			}

			a, err := buildAppWithMeter(ctx, *configPath, observability.ModeServe, false, mp.Meter("wdlrun"))
			if err != nil {
				return err
			}
			defer a.close(ctx)

			addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)

			diag, err := observability.NewDiagnosticsServer(addr, metricsHandler, storeReadyCheck(a.store))
			if err != nil {
				return fmt.Errorf("start diagnostics server: %w", err)
			}
			defer diag.Close() //nolint:errcheck // best-effort on shutdown

			a.providers.Logger.Info("wdlrun serve started", "addr", diag.Addr())

			<-ctx.Done()

			a.providers.Logger.Info("wdlrun serve shutting down")

			return nil
		},
	}
}

// storeReadyCheck reports the run store unready if a trivial listing call
// fails, e.g. a dropped Postgres connection.
func storeReadyCheck(store runstore.Store) observability.ReadyCheck {
	return func(ctx context.Context) error {
		_, err := store.ListRuns(ctx, runstore.ListFilter{}, 1, 0)
		return err
	}
}
