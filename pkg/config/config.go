// Package config loads wdlrun's server/CLI configuration from a file
// (YAML or TOML, resolved by extension) and the environment, grounded on
// the teacher's viper-based config.LoadConfig.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidConcurrency = errors.New("max_concurrent_runs and max_concurrent_calls must be positive")
	ErrInvalidRunstore    = errors.New("runstore.backend must be one of sqlite, postgres, bbolt, memory")
	ErrInvalidCache       = errors.New("cache.backend must be one of local, redis")
)

// Config holds all configuration for the wdlrun server and CLI.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Runstore  RunstoreConfig  `mapstructure:"runstore"`
	Resources ResourcesConfig `mapstructure:"resources"`
	Artifact  ArtifactConfig  `mapstructure:"artifact"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ServerConfig sets the host/port the serve command's HTTP health and
// metrics endpoints listen on, when run as a long-lived process rather than
// a one-shot CLI invocation.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ExecutionConfig configures the pkg/execmgr.Manager actor.
type ExecutionConfig struct {
	WorkDir            string `mapstructure:"work_dir"`
	MaxConcurrentRuns  int64  `mapstructure:"max_concurrent_runs"`
	MaxConcurrentCalls int64  `mapstructure:"max_concurrent_calls"`
	MaxRetries         int    `mapstructure:"max_retries"`
	DefaultCancelMode  string `mapstructure:"default_cancel_mode"` // "slow" or "fast"
}

// RunstoreConfig selects and configures one of pkg/runstore's Store
// implementations.
type RunstoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite (default), postgres, bbolt, memory
	Path    string `mapstructure:"path"`    // sqlite/bbolt file path
	DSN     string `mapstructure:"dsn"`     // postgres connection string
}

// ResourcesConfig sizes the optional pkg/sched.Pool resource-admission
// gate. Zero values disable the corresponding dimension's enforcement.
type ResourcesConfig struct {
	CPU  float64 `mapstructure:"cpu"`
	MemB int64   `mapstructure:"mem_bytes"`
	DskB int64   `mapstructure:"disk_bytes"`
}

// ArtifactConfig configures pkg/artifact's S3 output mirroring. Mirroring
// is disabled unless Bucket is set.
type ArtifactConfig struct {
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Region        string `mapstructure:"s3_region"`
	S3Endpoint      string `mapstructure:"s3_endpoint"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	AWSAccessKeyID  string `mapstructure:"aws_access_key_id"`
	AWSSecretAccess string `mapstructure:"aws_secret_access_key"`
}

// LoggingConfig configures pkg/observability's slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// CacheConfig selects the pkg/docgraph.SourceCache backend: "local" (the
// default in-process LRU) or "redis" (shared across processes).
type CacheConfig struct {
	Backend  string `mapstructure:"backend"` // "local" (default) or "redis"
	RedisURL string `mapstructure:"redis_url"`
}

// Load reads configuration from configPath (if non-empty) or the default
// search path, then from WDLRUN-prefixed environment variables, validating
// the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wdlrun")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/wdlrun")
	}

	v.SetEnvPrefix("WDLRUN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if strings.HasSuffix(configPath, ".toml") {
		if err := mergeTOMLFile(v, configPath); err != nil {
			return nil, err
		}
	} else if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

// mergeTOMLFile decodes a TOML profile with BurntSushi/toml and merges it
// into v, so .toml profiles get the same default/env-override treatment as
// viper's native YAML path.
func mergeTOMLFile(v *viper.Viper, path string) error {
	var raw map[string]any

	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("config: decode toml file: %w", err)
	}

	if err := v.MergeConfigMap(raw); err != nil {
		return fmt.Errorf("config: merge toml config: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.port", defaultServerPort)

	v.SetDefault("execution.work_dir", defaultWorkDir)
	v.SetDefault("execution.max_concurrent_runs", defaultMaxConcurrentRuns)
	v.SetDefault("execution.max_concurrent_calls", defaultMaxConcurrentCalls)
	v.SetDefault("execution.max_retries", defaultMaxRetries)
	v.SetDefault("execution.default_cancel_mode", "slow")

	v.SetDefault("runstore.backend", defaultBackendKind)
	v.SetDefault("runstore.path", "./wdlrun.db")

	v.SetDefault("logging.level", defaultLoggingLevel)
	v.SetDefault("logging.format", defaultLoggingFormat)

	v.SetDefault("cache.backend", "local")
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Server.Port)
	}

	if cfg.Execution.MaxConcurrentRuns <= 0 || cfg.Execution.MaxConcurrentCalls <= 0 {
		return ErrInvalidConcurrency
	}

	switch cfg.Runstore.Backend {
	case "sqlite", "postgres", "bbolt", "memory":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidRunstore, cfg.Runstore.Backend)
	}

	switch cfg.Cache.Backend {
	case "local", "redis", "":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCache, cfg.Cache.Backend)
	}

	return nil
}
