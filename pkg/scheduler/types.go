package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority orders pending fetches. Lower values are drawn first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the three defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ParsePriority accepts "high", "medium" or "low" in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Loader fetches, decodes and stores one resource. A nil error means the
// resource is now resident in the cache.
type Loader func(ctx context.Context, key string) error

// Load paths, used in logs and metrics.
const (
	PathQueued    = "queued"
	PathImmediate = "immediate"
)

const (
	DefaultBatchSize     = 2
	DefaultMaxConcurrent = 3
	DefaultDispatchDelay = 100 * time.Millisecond
	DefaultLoadTimeout   = 30 * time.Second
)

var (
	ErrNilLoader            = errors.New("scheduler: loader is nil")
	ErrInvalidBatchSize     = errors.New("scheduler: batch size must be positive")
	ErrInvalidMaxConcurrent = errors.New("scheduler: max concurrent must be positive")
	ErrInvalidDispatchDelay = errors.New("scheduler: dispatch delay must not be negative")
	ErrInvalidLoadTimeout   = errors.New("scheduler: load timeout must not be negative")
	ErrInvalidPriority      = errors.New("scheduler: invalid priority")

	// ErrNotScheduled is returned by Await for keys the scheduler has never seen.
	ErrNotScheduled = errors.New("scheduler: key not scheduled")

	// ErrLoadFailed wraps every recorded load failure.
	ErrLoadFailed = errors.New("scheduler: load failed")

	// ErrClosed is returned once Stop has been called.
	ErrClosed = errors.New("scheduler: closed")

	// ErrStopTimeout is returned by Stop when in-flight loads outlive the timeout.
	ErrStopTimeout = errors.New("scheduler: stop timed out with loads in flight")
)

// Config tunes batching and concurrency.
type Config struct {
	// BatchSize is the most items drawn per dispatch.
	BatchSize int

	// MaxConcurrent caps items drawn but not yet settled.
	MaxConcurrent int

	// DispatchDelay separates drawing a batch from starting its loads.
	DispatchDelay time.Duration

	// LoadTimeout bounds each loader call. Zero disables the bound.
	LoadTimeout time.Duration
}

// DefaultConfig returns batches of 2, at most 3 concurrent loads and a
// 100ms dispatch delay.
func DefaultConfig() Config {
	return Config{
		BatchSize:     DefaultBatchSize,
		MaxConcurrent: DefaultMaxConcurrent,
		DispatchDelay: DefaultDispatchDelay,
		LoadTimeout:   DefaultLoadTimeout,
	}
}

// Validate reports the first misconfiguration.
func (c Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return ErrInvalidBatchSize
	case c.MaxConcurrent <= 0:
		return ErrInvalidMaxConcurrent
	case c.DispatchDelay < 0:
		return ErrInvalidDispatchDelay
	case c.LoadTimeout < 0:
		return ErrInvalidLoadTimeout
	}
	return nil
}

// Status is a snapshot of scheduler bookkeeping.
type Status struct {
	Pending       int       `json:"pending"`
	Active        int       `json:"active"`
	InFlight      int       `json:"in_flight"`
	Immediate     int       `json:"immediate"`
	Loaded        int       `json:"loaded"`
	Failed        int       `json:"failed"`
	MaxConcurrent int       `json:"max_concurrent"`
	BatchSize     int       `json:"batch_size"`
	Running       bool      `json:"running"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorAt   time.Time `json:"last_error_at,omitempty"`
}

// Metrics receives scheduler observations. pkg/metrics provides the
// Prometheus implementation; nil disables collection.
type Metrics interface {
	ObserveEnqueue(p Priority, accepted, deduplicated int)
	ObserveLoad(path string, err error, d time.Duration)
	RecordQueue(pending, active int)
}
