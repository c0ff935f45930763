package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/rankly/internal/bytesize"
	"github.com/marmos91/rankly/pkg/resource"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	require.NoError(t, Validate(cfg))
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, 100*bytesize.MiB, cfg.Cache.MaxMemory)
	assert.Equal(t, 2, cfg.Scheduler.BatchSize)
	assert.Equal(t, 3, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.DispatchDelay)
	assert.Equal(t, 500, cfg.Visibility.OuterMargin)
	assert.Equal(t, 200, cfg.Visibility.InnerMargin)
	assert.Equal(t, 0.1, cfg.Visibility.InnerThreshold)
	assert.Equal(t, "fs", cfg.Source.Type)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, GetDefaultConfig(), cfg)
	})

	t.Run("HumanReadableValues", func(t *testing.T) {
		path := writeConfig(t, `
logging:
  level: debug
cache:
  max_entries: 10
  max_memory: 8Mi
scheduler:
  dispatch_delay: 0s
  load_timeout: 2s
source:
  type: memory
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, 10, cfg.Cache.MaxEntries)
		assert.Equal(t, 8*bytesize.MiB, cfg.Cache.MaxMemory)
		assert.Zero(t, cfg.Scheduler.DispatchDelay)
		assert.Equal(t, 2*time.Second, cfg.Scheduler.LoadTimeout)
		assert.Equal(t, 3, cfg.Scheduler.MaxConcurrent)
		assert.Equal(t, 500, cfg.Visibility.OuterMargin)
	})

	t.Run("ExplicitUnlimitedMemory", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "cache:\n  max_memory: 0\n"))
		require.NoError(t, err)
		assert.Zero(t, cfg.Cache.MaxMemory)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("RANKLY_CACHE_MAX_ENTRIES", "7")
		t.Setenv("RANKLY_SCHEDULER_BATCH_SIZE", "4")
		t.Setenv("RANKLY_SOURCE_TYPE", "memory")
		cfg, err := Load(writeConfig(t, "cache:\n  max_entries: 20\n"))
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Cache.MaxEntries)
		assert.Equal(t, 4, cfg.Scheduler.BatchSize)
		assert.Equal(t, "memory", cfg.Source.Type)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		_, err := Load(writeConfig(t, "visibility:\n  outer_margin: 100\n  inner_margin: 300\n"))
		assert.ErrorContains(t, err, "InnerMargin")

		_, err = Load(writeConfig(t, "cache:\n  max_memory: lots\n"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "cache: [\n"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestMustLoad(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err = MustLoad("")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = InitConfig(false)
	require.NoError(t, err)
	cfg, err := MustLoad("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(*Config) {}, ""},
		{"BadLevel", func(c *Config) { c.Logging.Level = "LOUD" }, "oneof"},
		{"BadFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"ZeroEntries", func(c *Config) { c.Cache.MaxEntries = -1 }, "MaxEntries"},
		{"ZeroBatch", func(c *Config) { c.Scheduler.BatchSize = -1 }, "BatchSize"},
		{"NegativeDelay", func(c *Config) { c.Scheduler.DispatchDelay = -time.Second }, "DispatchDelay"},
		{"ThresholdAboveOne", func(c *Config) { c.Visibility.InnerThreshold = 1.5 }, "InnerThreshold"},
		{"InnerBeyondOuter", func(c *Config) { c.Visibility.InnerMargin = 600 }, "ltefield"},
		{"PortRange", func(c *Config) { c.API.Port = 70000 }, "max"},
		{"UnknownSource", func(c *Config) { c.Source.Type = "ftp" }, "oneof"},
		{"BadProfile", func(c *Config) { c.Telemetry.Profiling.ProfileTypes = []string{"heapz"} }, "ProfileTypes"},
		{"S3WithoutBucket", func(c *Config) { c.Source.Type = "s3" }, "bucket is required"},
		{"S3HalfCredentials", func(c *Config) {
			c.Source.Type = "s3"
			c.Source.S3.Bucket = "b"
			c.Source.S3.AccessKeyID = "id"
		}, "must be set together"},
		{"FSWithoutRoot", func(c *Config) { c.Source.FS.Root = "" }, "root is required"},
		{"PortClash", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = c.API.Port
		}, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveAndInit(t *testing.T) {
	t.Run("SaveRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		cfg := GetDefaultConfig()
		cfg.Cache.MaxEntries = 12
		cfg.Source = SourceConfig{Type: "memory"}
		require.NoError(t, SaveConfig(cfg, path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("InitWritesCommentedDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, InitConfigToPath(path, false))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# rankly configuration file")
		for _, section := range []string{"logging:", "cache:", "scheduler:", "visibility:", "source:", "api:"} {
			assert.Contains(t, string(data), section)
		}

		var parsed map[string]any
		require.NoError(t, yaml.Unmarshal(data, &parsed))
	})

	t.Run("InitRefusesOverwrite", func(t *testing.T) {
		path := writeConfig(t, "cache:\n  max_entries: 1\n")
		assert.ErrorIs(t, InitConfigToPath(path, false), ErrConfigExists)
		require.NoError(t, InitConfigToPath(path, true))
	})
}

func TestEngineConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cache.MaxMemory = 0
	ec := cfg.EngineConfig()

	assert.Equal(t, 50, ec.Cache.MaxEntries)
	assert.Zero(t, ec.Cache.MaxMemoryUsage)
	assert.Equal(t, 3, ec.Scheduler.MaxConcurrent)
	assert.NoError(t, ec.Scheduler.Validate())
	assert.NoError(t, ec.Visibility.Validate())

	assert.Equal(t, "rankly", cfg.TracingConfig("v1").ServiceName)
	assert.Equal(t, "v1", cfg.ProfilingConfig("v1").ServiceVersion)
	assert.Equal(t, "INFO", cfg.LoggerConfig().Level)
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()

	src, err := OpenSource(ctx, SourceConfig{Type: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", src.Type())

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("x"), 0o644))
	src, err = OpenSource(ctx, SourceConfig{Type: "fs", FS: FSSourceConfig{Root: root}})
	require.NoError(t, err)
	data, err := src.Fetch(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	_, err = src.Fetch(ctx, "b.png")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = OpenSource(ctx, SourceConfig{Type: "s3"})
	assert.ErrorContains(t, err, "bucket")

	_, err = OpenSource(ctx, SourceConfig{Type: "ftp"})
	assert.ErrorContains(t, err, "unknown source type")
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "rankly configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "cache", "scheduler", "visibility", "source", "shutdown_timeout"} {
		assert.Contains(t, props, key)
	}
	cacheProps := props["cache"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, cacheProps["max_memory"], "oneOf")
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: INFO\nsource:\n  type: memory\n")

	var level atomic.Value
	level.Store("INFO")
	w, err := Watch(path, func(c *Config) { level.Store(c.Logging.Level) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: DEBUG\nsource:\n  type: memory\n"), 0o600))

	require.Eventually(t, func() bool {
		return level.Load() == "DEBUG"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
