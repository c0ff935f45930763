// Package commands implements the rankly CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/cmd/rankly/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile   string
	serverURL string
	outputFmt string
	noColor   bool
)

// DefaultServerURL is the API address used by client commands.
const DefaultServerURL = "http://localhost:8080"

var rootCmd = &cobra.Command{
	Use:   "rankly",
	Short: "rankly - visibility-driven resource prefetching",
	Long: `rankly prefetches and caches resources for scrolling feeds. Targets
report their geometry, resources close to the viewport are queued by
priority, and decoded results are kept in a memory-bounded LRU cache.

"rankly start" runs the engine and its HTTP API. The other commands talk to
a running server through that API.

Use "rankly [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/rankly/config.yaml)")
	pf.StringVar(&serverURL, "server", DefaultServerURL, "rankly API address used by client commands")
	pf.StringVarP(&outputFmt, "output", "o", "table", "Output format (table|json|yaml)")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(resourceCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
