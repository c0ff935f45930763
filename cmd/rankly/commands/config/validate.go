package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the rankly configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  rankly config validate

  # Validate specific config file
  rankly config validate --config /etc/rankly/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Cache.MaxMemory == 0 {
		warnings = append(warnings, "cache.max_memory is 0 - only the entry limit bounds the cache")
	}
	if cfg.Scheduler.LoadTimeout == 0 {
		warnings = append(warnings, "scheduler.load_timeout is 0 - a stuck fetch holds its batch slot forever")
	}
	if !cfg.API.Enabled {
		warnings = append(warnings, "api.enabled is false - client commands cannot reach this server")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Source type:     %s\n", cfg.Source.Type)
	_, _ = fmt.Fprintf(out, "  Cache:           %d entries, %s\n", cfg.Cache.MaxEntries, cfg.Cache.MaxMemory)
	_, _ = fmt.Fprintf(out, "  Scheduler:       batch %d, max %d concurrent\n", cfg.Scheduler.BatchSize, cfg.Scheduler.MaxConcurrent)
	_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.API.Port)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
