package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/cli/prompt"
	"github.com/marmos91/rankly/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample rankly configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/rankly/config.yaml.
Use --config to specify a custom path. An existing file is only replaced after
confirmation, or unconditionally with --force.

Examples:
  # Initialize with default location
  rankly init

  # Initialize with custom path
  rankly init --config /etc/rankly/config.yaml

  # Overwrite without asking
  rankly init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force {
		ok, err := prompt.Confirm(fmt.Sprintf("%s already exists. Overwrite", configPath), false)
		if err != nil && !errors.Is(err, prompt.ErrAborted) {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Point source.fs.root (or source.s3) at your assets")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: rankly start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: rankly start --config %s\n", configPath)
	return nil
}
