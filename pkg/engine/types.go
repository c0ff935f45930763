package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

var (
	// ErrClosed is returned by Mount after Stop.
	ErrClosed = errors.New("engine: closed")

	// ErrNilSource is returned by New without a source.
	ErrNilSource = errors.New("engine: source is nil")

	// ErrNotResident is returned by Widget.Wait when the resource loaded but
	// was evicted before the caller could read it.
	ErrNotResident = errors.New("engine: resource loaded but no longer cached")

	// ErrUnknownTarget is returned for targets that are not mounted.
	ErrUnknownTarget = errors.New("engine: unknown target")
)

// DefaultWaitPollInterval is how often Widget.Wait checks a key that nothing
// has scheduled yet.
const DefaultWaitPollInterval = 20 * time.Millisecond

// Config gathers the budgets of every component.
type Config struct {
	Cache      cache.Config
	Scheduler  scheduler.Config
	Visibility visibility.Options
}

// DefaultConfig returns the default budgets of every component.
func DefaultConfig() Config {
	return Config{
		Cache:      cache.DefaultConfig(),
		Scheduler:  scheduler.DefaultConfig(),
		Visibility: visibility.DefaultOptions(),
	}
}

// Metrics is satisfied by *metrics.Metrics.
type Metrics interface {
	cache.Metrics
	scheduler.Metrics
	visibility.Metrics
}

// State is what a widget should render.
type State int

const (
	StateIdle State = iota
	StateQueued
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for c := StateIdle; c <= StateFailed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("engine: unknown state %q", text)
}

// ResourceStatus describes one key from the consumer's point of view.
type ResourceStatus struct {
	Key    string `json:"key"`
	State  State  `json:"state"`
	Cached bool   `json:"cached"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status aggregates the state of every component.
type Status struct {
	Running       bool             `json:"running"`
	Source        string           `json:"source"`
	Cache         cache.Status     `json:"cache"`
	Scheduler     scheduler.Status `json:"scheduler"`
	Registrations int              `json:"registrations"`
	Watches       int              `json:"watches"`
}

// TargetStatus joins a mounted target's visibility record with the state of
// its resource.
type TargetStatus struct {
	Record   visibility.Record `json:"record"`
	Resource ResourceStatus    `json:"resource"`
}
