package config

import (
	"context"
	"fmt"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/internal/telemetry"
	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/resource"
	"github.com/marmos91/rankly/pkg/resource/source/fs"
	"github.com/marmos91/rankly/pkg/resource/source/memory"
	"github.com/marmos91/rankly/pkg/resource/source/s3"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

// EngineConfig converts the cache, scheduler and visibility sections.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Cache: cache.Config{
			MaxEntries:     c.Cache.MaxEntries,
			MaxMemoryUsage: c.Cache.MaxMemory,
		},
		Scheduler: scheduler.Config{
			BatchSize:     c.Scheduler.BatchSize,
			MaxConcurrent: c.Scheduler.MaxConcurrent,
			DispatchDelay: c.Scheduler.DispatchDelay,
			LoadTimeout:   c.Scheduler.LoadTimeout,
		},
		Visibility: visibility.Options{
			OuterMargin:    c.Visibility.OuterMargin,
			OuterThreshold: c.Visibility.OuterThreshold,
			InnerMargin:    c.Visibility.InnerMargin,
			InnerThreshold: c.Visibility.InnerThreshold,
		},
	}
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TracingConfig converts the telemetry section.
func (c *Config) TracingConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "rankly",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ProfilingConfig converts the profiling subsection.
func (c *Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling.Enabled,
		ServiceName:    "rankly",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Profiling.Endpoint,
		ProfileTypes:   c.Telemetry.Profiling.ProfileTypes,
	}
}

// OpenSource creates the resource source selected by cfg.
func OpenSource(ctx context.Context, cfg SourceConfig) (resource.Source, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "fs":
		return openFSSource(cfg.FS)
	case "s3":
		return openS3Source(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}

func openFSSource(cfg FSSourceConfig) (resource.Source, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("fs source requires root to be set")
	}
	return fs.New(fs.Config{
		Root:          cfg.Root,
		MaxObjectSize: int64(cfg.MaxObjectSize),
	})
}

func openS3Source(ctx context.Context, cfg S3SourceConfig) (resource.Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source requires bucket to be set")
	}
	return s3.NewFromConfig(ctx, s3.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		KeyPrefix:       cfg.KeyPrefix,
		ForcePathStyle:  cfg.ForcePathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
}
