package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/cli/output"
	"github.com/marmos91/rankly/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and RANKLY_* environment
overrides are applied. Table output is rendered as YAML.

Examples:
  rankly config show
  rankly config show -o json
  RANKLY_CACHE_MAX_ENTRIES=200 rankly config show`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	outputFlag, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Source.S3.SecretAccessKey != "" {
		cfg.Source.S3.SecretAccessKey = "********"
	}

	format, err := output.ParseFormat(outputFlag)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	// The yaml tags on Config carry the file layout.
	return config.WriteYAML(cmd.OutOrStdout(), cfg)
}
