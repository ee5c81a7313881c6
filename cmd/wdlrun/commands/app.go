// Package commands implements wdlrun's CLI command handlers.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/wdlrun/wdlrun/pkg/artifact"
	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/config"
	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/execmgr"
	"github.com/wdlrun/wdlrun/pkg/observability"
	"github.com/wdlrun/wdlrun/pkg/runstore"
	"github.com/wdlrun/wdlrun/pkg/sched"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/version"
)

// app bundles the dependencies every run/status/list/cancel/analyze/mcp
// command needs, built once from the resolved config.
type app struct {
	cfg         *config.Config
	providers   observability.Providers
	analyzer    *docgraph.Analyzer
	manager     *execmgr.Manager
	store       runstore.Store
	mirrorer    *artifact.Mirrorer
	redMetrics  *observability.REDMetrics
	redisClient *redis.Client
	cancelRun   context.CancelFunc
}

// shutdownDrainTimeout bounds how long close waits for in-flight runs to
// observe cancellation before forcing shutdown.
const shutdownDrainTimeout = 10 * time.Second

// buildApp loads configuration, initializes observability, and wires the
// analyzer/store/backend/manager stack. Call app.close when done.
func buildApp(ctx context.Context, configPath string, mode observability.AppMode, debug bool) (*app, error) {
	return buildAppWithMeter(ctx, configPath, mode, debug, nil)
}

// buildAppWithMeter is buildApp, but lets the caller replace the meter
// RED/run metrics are recorded against. serve uses this to point them at
// a Prometheus-scraped MeterProvider instead of the push-based OTLP one
// Init builds, so /metrics reflects real manager activity.
func buildAppWithMeter(
	ctx context.Context, configPath string, mode observability.AppMode, debug bool, meterOverride metric.Meter,
) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.DebugTrace = debug

	if level, levelErr := parseLogLevel(cfg.Logging.Level); levelErr == nil {
		obsCfg.LogLevel = level
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	store, err := openStore(cfg.Runstore)
	if err != nil {
		providers.Shutdown(ctx) //nolint:errcheck // best-effort on an init failure path

		return nil, err
	}

	meter := providers.Meter
	if meterOverride != nil {
		meter = meterOverride
	}

	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	runMetrics, err := observability.NewRunMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("init run metrics: %w", err)
	}

	analyzer := docgraph.NewAnalyzer(syntax.DefaultMockParser, docgraph.DefaultFetcher)

	var redisClient *redis.Client
	if cfg.Cache.Backend == "redis" {
		redisClient, err = newRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			providers.Shutdown(ctx) //nolint:errcheck // best-effort on an init failure path

			return nil, fmt.Errorf("init redis cache: %w", err)
		}

		analyzer.SetSourceCache(docgraph.NewRedisSourceCache(redisClient))
	}

	var resources *sched.Pool
	if cfg.Resources.CPU > 0 || cfg.Resources.MemB > 0 || cfg.Resources.DskB > 0 {
		resources = sched.NewPool(cfg.Resources.CPU, cfg.Resources.MemB, cfg.Resources.DskB)
	}

	var mirrorer *artifact.Mirrorer
	if cfg.Artifact.S3Bucket != "" {
		mirrorer, err = artifact.New(ctx, artifact.Config{
			Bucket:          cfg.Artifact.S3Bucket,
			Region:          cfg.Artifact.S3Region,
			Endpoint:        cfg.Artifact.S3Endpoint,
			Prefix:          cfg.Artifact.S3Prefix,
			AccessKeyID:     cfg.Artifact.AWSAccessKeyID,
			SecretAccessKey: cfg.Artifact.AWSSecretAccess,
		})
		if err != nil {
			return nil, fmt.Errorf("init artifact mirror: %w", err)
		}
	}

	manager := execmgr.New(execmgr.Config{
		Analyzer:           analyzer,
		Store:              store,
		Backend:            backend.NewLocalBackend(),
		Resources:          resources,
		Artifacts:          mirrorer,
		MaxConcurrentRuns:  cfg.Execution.MaxConcurrentRuns,
		MaxConcurrentCalls: cfg.Execution.MaxConcurrentCalls,
		DefaultCancelMode:  parseCancelMode(cfg.Execution.DefaultCancelMode),
		MaxRetries:         cfg.Execution.MaxRetries,
		WorkDir:            cfg.Execution.WorkDir,
		Metrics:            red,
		RunMetrics:         runMetrics,
		Tracer:             providers.Tracer,
	})

	runCtx, cancel := context.WithCancel(ctx)
	go manager.Run(runCtx)

	return &app{
		cfg:         cfg,
		providers:   providers,
		analyzer:    analyzer,
		manager:     manager,
		store:       store,
		mirrorer:    mirrorer,
		redMetrics:  red,
		redisClient: redisClient,
		cancelRun:   cancel,
	}, nil
}

// newRedisClient builds a client from a redis:// URL, verifying the
// connection eagerly so cache.backend: redis misconfiguration surfaces at
// startup rather than on the first cache miss.
func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}

// close stops the manager's actor loop and flushes telemetry. Safe to call
// once, typically deferred right after buildApp succeeds.
func (a *app) close(ctx context.Context) {
	a.cancelRun()
	a.manager.Shutdown(ctx, shutdownDrainTimeout)

	if err := a.store.Close(); err != nil {
		a.providers.Logger.Warn("close run store failed", "error", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.providers.Logger.Warn("close redis client failed", "error", err)
		}
	}

	if err := a.providers.Shutdown(ctx); err != nil {
		a.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func openStore(cfg config.RunstoreConfig) (runstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return runstore.NewMemoryStore(), nil
	case "bbolt":
		return runstore.OpenBolt(cfg.Path)
	case "postgres":
		return runstore.OpenPostgres(cfg.DSN)
	case "sqlite", "":
		return runstore.OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown runstore backend %q", cfg.Backend)
	}
}

func parseCancelMode(mode string) execmgr.CancelMode {
	if mode == "fast" {
		return execmgr.CancelFast
	}

	return execmgr.CancelSlow
}

func parseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
