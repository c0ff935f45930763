package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/rankly/internal/bytesize"
	"github.com/marmos91/rankly/internal/cli/timeutil"
	"github.com/marmos91/rankly/pkg/apiclient"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the health of a running rankly server together with its cache
and scheduler counters.

Examples:
  # Check the local server
  rankly status

  # Check a remote server as JSON
  rankly status --server http://feed-cache:8080 -o json`,
	RunE: runStatus,
}

// ServerStatus is the combined health, cache and scheduler view.
type ServerStatus struct {
	Server    string                     `json:"server"`
	Reachable bool                       `json:"reachable"`
	Healthy   bool                       `json:"healthy"`
	Message   string                     `json:"message"`
	Health    *apiclient.HealthData      `json:"health,omitempty"`
	Cache     *apiclient.CacheStatus     `json:"cache,omitempty"`
	Scheduler *apiclient.SchedulerStatus `json:"scheduler,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	return printer.Print(collectStatus(newClient()))
}

func collectStatus(client *apiclient.Client) ServerStatus {
	status := ServerStatus{Server: client.BaseURL()}

	health, err := client.Health()
	var apiErr *apiclient.APIError
	switch {
	case err == nil:
		status.Reachable, status.Healthy = true, true
		status.Message = "Server is running and healthy"
	case errors.As(err, &apiErr):
		status.Reachable = true
		status.Message = fmt.Sprintf("Server is running but unhealthy: %s", apiErr.Message)
	default:
		status.Message = fmt.Sprintf("Server is not reachable: %v", err)
		return status
	}
	status.Health = health

	if c, err := client.CacheStatus(); err == nil {
		status.Cache = c
	}
	if s, err := client.SchedulerStatus(); err == nil {
		status.Scheduler = s
	}
	return status
}

func (s ServerStatus) Headers() []string { return []string{"Property", "Value"} }

func (s ServerStatus) Rows() [][]string {
	rows := [][]string{
		{"Server", s.Server},
		{"Status", s.Message},
	}
	if h := s.Health; h != nil {
		rows = append(rows,
			[]string{"Source", h.Source},
			[]string{"Engine running", strconv.FormatBool(h.Running)},
			[]string{"Health latency", timeutil.FormatLatency(h.Latency)},
		)
	}
	if c := s.Cache; c != nil {
		limit := "unlimited"
		if c.MaxMemoryUsage > 0 {
			limit = bytesize.ByteSize(c.MaxMemoryUsage).Human()
		}
		rows = append(rows,
			[]string{"Cache entries", fmt.Sprintf("%d / %d", c.EntryCount, c.MaxEntries)},
			[]string{"Cache memory", fmt.Sprintf("%s / %s (%.1f%%)", bytesize.ByteSize(c.CurrentMemoryUsage).Human(), limit, c.UsagePercent)},
		)
	}
	if q := s.Scheduler; q != nil {
		rows = append(rows,
			[]string{"Pending", strconv.Itoa(q.Pending)},
			[]string{"Active batch slots", fmt.Sprintf("%d / %d", q.Active, q.MaxConcurrent)},
			[]string{"In flight", strconv.Itoa(q.InFlight)},
			[]string{"Loaded / failed", fmt.Sprintf("%d / %d", q.Loaded, q.Failed)},
		)
		if q.LastError != "" {
			rows = append(rows,
				[]string{"Last error", q.LastError},
				[]string{"Last error at", timeutil.FormatTime(q.LastErrorAt)},
			)
		}
	}
	return rows
}
