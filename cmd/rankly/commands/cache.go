package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/bytesize"
	"github.com/marmos91/rankly/internal/cli/output"
	"github.com/marmos91/rankly/internal/cli/prompt"
	"github.com/marmos91/rankly/pkg/apiclient"
)

var cacheForce bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the resource cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached resources, least recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		entries, err := newClient().CacheEntries()
		if err != nil {
			return err
		}
		if len(entries) == 0 && printer.Format() == output.FormatTable {
			printer.Printf("Cache is empty\n")
			return nil
		}
		return printer.Print(cacheEntries(entries))
	},
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict KEY",
	Short: "Remove one resource from the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		if err := newClient().EvictResource(args[0]); err != nil {
			return err
		}
		printer.Success(fmt.Sprintf("Evicted %s", args[0]))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every resource from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Clear the cache of %s", serverURL), cacheForce)
		if err != nil || !ok {
			printer.Printf("Aborted.\n")
			return nil
		}
		if err := newClient().ClearCache(); err != nil {
			return err
		}
		printer.Success("Cache cleared")
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVarP(&cacheForce, "force", "f", false, "Skip confirmation")
	cacheCmd.AddCommand(cacheListCmd, cacheEvictCmd, cacheClearCmd)
}

type cacheEntries []apiclient.CacheEntry

func (e cacheEntries) Headers() []string {
	return []string{"Key", "Size", "Dimensions", "Recency"}
}

func (e cacheEntries) Rows() [][]string {
	rows := make([][]string, 0, len(e))
	for _, entry := range e {
		rows = append(rows, []string{
			entry.Key,
			bytesize.ByteSize(entry.ApproxBytes).Human(),
			fmt.Sprintf("%dx%d", entry.Width, entry.Height),
			strconv.FormatUint(entry.RecencyRank, 10),
		})
	}
	return rows
}
