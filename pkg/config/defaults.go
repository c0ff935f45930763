package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

// setDefaults registers defaults for the keys whose zero value is
// meaningful, so an explicit 0 in the file or environment is kept.
func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.max_memory", cache.DefaultMaxMemoryUsage.String())
	v.SetDefault("scheduler.dispatch_delay", scheduler.DefaultDispatchDelay.String())
	v.SetDefault("scheduler.load_timeout", scheduler.DefaultLoadTimeout.String())
	v.SetDefault("visibility.outer_margin", visibility.DefaultOuterMargin)
	v.SetDefault("visibility.outer_threshold", visibility.DefaultOuterThreshold)
	v.SetDefault("visibility.inner_margin", visibility.DefaultInnerMargin)
	v.SetDefault("visibility.inner_threshold", visibility.DefaultInnerThreshold)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("api.enabled", true)
}

// ApplyDefaults sets default values for unspecified fields whose zero value
// is invalid. Fields where zero means something (a 0 dispatch delay, an
// unlimited memory budget) are defaulted by Load instead.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = cache.DefaultMaxEntries
	}
	applySchedulerDefaults(&cfg.Scheduler)
	applySourceDefaults(&cfg.Source)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = scheduler.DefaultBatchSize
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = scheduler.DefaultMaxConcurrent
	}
}

func applySourceDefaults(cfg *SourceConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	if cfg.Type == "fs" && cfg.FS.Root == "" {
		cfg.FS.Root = "./assets"
	}
}

// GetDefaultConfig returns a Config with every default applied, including
// the ones Load registers with viper.
func GetDefaultConfig() *Config {
	cfg := &Config{
		API: APIConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
		Cache: CacheConfig{
			MaxEntries: cache.DefaultMaxEntries,
			MaxMemory:  cache.DefaultMaxMemoryUsage,
		},
		Scheduler: SchedulerConfig{
			DispatchDelay: scheduler.DefaultDispatchDelay,
			LoadTimeout:   scheduler.DefaultLoadTimeout,
		},
		Visibility: VisibilityConfig{
			OuterMargin:    visibility.DefaultOuterMargin,
			OuterThreshold: visibility.DefaultOuterThreshold,
			InnerMargin:    visibility.DefaultInnerMargin,
			InnerThreshold: visibility.DefaultInnerThreshold,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
