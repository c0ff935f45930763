package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/cli/output"
	"github.com/marmos91/rankly/pkg/scheduler"
)

var enqueuePriority string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue KEY [KEY...]",
	Short: "Queue resources for prefetching",
	Long: `Queue resource keys on a running server. Keys that are already pending,
loading, loaded or failed are skipped.

Examples:
  # Warm the first cards of a feed
  rankly enqueue polls/1/cover.png polls/2/cover.png --priority high`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueuePriority, "priority", "p", "medium", "Priority (high|medium|low)")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if _, err := scheduler.ParsePriority(enqueuePriority); err != nil {
		return err
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	resp, err := newClient().Enqueue(args, enqueuePriority)
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(resp)
	}
	printer.Success(fmt.Sprintf("Accepted %d of %d keys at %s priority", resp.Accepted, len(args), resp.Priority))
	if skipped := len(args) - resp.Accepted; skipped > 0 {
		printer.Warning(fmt.Sprintf("%d keys were already known to the scheduler", skipped))
	}
	return nil
}
