package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/pkg/apiclient"
)

var resourceSaveTo string

var resourceCmd = &cobra.Command{
	Use:   "resource KEY",
	Short: "Show the state of one resource",
	Long: `Show whether a resource is idle, queued, loading, loaded or failed.

Examples:
  rankly resource polls/1/cover.png

  # Download the cached bytes
  rankly resource polls/1/cover.png --save cover.png`,
	Args: cobra.ExactArgs(1),
	RunE: runResource,
}

func init() {
	resourceCmd.Flags().StringVar(&resourceSaveTo, "save", "", "Write the cached bytes to this file")
}

func runResource(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	client := newClient()

	st, err := client.Resource(args[0])
	if err != nil {
		return err
	}
	if err := printer.Print(resourceView(*st)); err != nil {
		return err
	}

	if resourceSaveTo == "" {
		return nil
	}
	data, _, err := client.ResourceContent(args[0])
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", args[0], err)
	}
	if err := os.WriteFile(resourceSaveTo, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", resourceSaveTo, err)
	}
	printer.Success(fmt.Sprintf("Saved %d bytes to %s", len(data), resourceSaveTo))
	return nil
}

type resourceView apiclient.ResourceStatus

func (r resourceView) Headers() []string {
	return []string{"Key", "State", "Cached", "Dimensions", "Format", "Error"}
}

func (r resourceView) Rows() [][]string {
	dims := "-"
	if r.Width > 0 {
		dims = fmt.Sprintf("%dx%d", r.Width, r.Height)
	}
	return [][]string{{
		r.Key, r.State.String(), strconv.FormatBool(r.Cached), dims, r.Format, r.Error,
	}}
}
