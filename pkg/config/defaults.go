package config

import "time"

// Default configuration values, applied by setDefaults before a config
// file or environment variables are read.
const (
	defaultServerHost  = "0.0.0.0"
	defaultServerPort  = 8088
	defaultWorkDir     = "/tmp/wdlrun-runs"
	defaultBackendKind = "sqlite"

	defaultMaxConcurrentRuns  = 8
	defaultMaxConcurrentCalls = 16
	defaultMaxRetries         = 0

	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	defaultLoggingLevel  = "info"
	defaultLoggingFormat = "json"
)
