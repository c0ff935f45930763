package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/internal/telemetry"
	"github.com/marmos91/rankly/pkg/api"
	"github.com/marmos91/rankly/pkg/config"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rankly server",
	Long: `Start the prefetch engine and its HTTP API in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/rankly/config.yaml. Changes to the
logging section of the file are applied without a restart.

Examples:
  # Start with the default config
  rankly start

  # Start with custom config file
  rankly start --config /etc/rankly/config.yaml

  # Start with environment variable overrides
  RANKLY_LOGGING_LEVEL=DEBUG RANKLY_SOURCE_TYPE=memory rankly start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TracingConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(cfg.ProfilingConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	source, err := config.OpenSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open resource source: %w", err)
	}

	var opts []engine.Option
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		opts = append(opts, engine.WithMetrics(metrics.NewMetrics(reg)))
		metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err := metricsServer.Start(); err != nil {
			_ = source.Close()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	} else {
		logger.Info("Metrics collection disabled")
	}

	eng, err := engine.New(cfg.EngineConfig(), source, opts...)
	if err != nil {
		_ = source.Close()
		return fmt.Errorf("failed to create engine: %w", err)
	}
	eng.Start(ctx)

	if watcher := watchConfig(); watcher != nil {
		defer func() { _ = watcher.Close() }()
	}

	serverDone := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.NewServer(apiConfig(cfg.API), eng)
		go func() {
			serverDone <- apiServer.Start(ctx)
		}()
	} else {
		logger.Info("API server disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if cfg.API.Enabled {
			serveErr = <-serverDone
		}
	case serveErr = <-serverDone:
		signal.Stop(sigChan)
		cancel()
	}

	if err := eng.Stop(cfg.ShutdownTimeout); err != nil {
		logger.Warn("Engine did not stop cleanly", logger.Err(err))
	}
	if metricsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stopCancel()
		if err := metricsServer.Stop(stopCtx); err != nil {
			logger.Warn("Metrics server shutdown error", logger.Err(err))
		}
	}

	if serveErr != nil {
		logger.Error("Server error", logger.Err(serveErr))
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// watchConfig applies logging changes from the config file while running.
// It returns nil when there is no file to watch.
func watchConfig() *config.Watcher {
	path := GetConfigFile()
	if path == "" {
		if !config.DefaultConfigExists() {
			return nil
		}
		path = config.GetDefaultConfigPath()
	}

	w, err := config.Watch(path, func(next *config.Config) {
		logger.SetLevel(next.Logging.Level)
		logger.SetFormat(next.Logging.Format)
	})
	if err != nil {
		logger.Warn("Config hot reload unavailable", logger.Err(err))
		return nil
	}
	return w
}

func apiConfig(c config.APIConfig) api.APIConfig {
	return api.APIConfig{
		Port:           c.Port,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		IdleTimeout:    c.IdleTimeout,
		AllowedOrigins: c.AllowedOrigins,
	}
}
