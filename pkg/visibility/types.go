package visibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/rankly/pkg/scheduler"
)

const (
	DefaultOuterMargin    = 500
	DefaultOuterThreshold = 0.0
	DefaultInnerMargin    = 200
	DefaultInnerThreshold = 0.1
)

var (
	ErrInvalidRegistration = errors.New("visibility: invalid registration")
	ErrInvalidWatch        = errors.New("visibility: invalid watch parameters")
	ErrClosed              = errors.New("visibility: trigger closed")
)

// Event is one proximity transition for a target.
type Event struct {
	Target  string  `json:"target"`
	Entered bool    `json:"entered"`
	Ratio   float64 `json:"ratio"`
}

// Watch is a live proximity subscription. Events is closed after Close.
type Watch interface {
	Events() <-chan Event
	Close()
}

// Observer opens proximity watches. A watch reports an enter event when the
// target comes within marginPx of the viewport with at least threshold of
// its area inside the margin box, and an exit event when it leaves.
type Observer interface {
	Observe(target string, marginPx int, threshold float64) (Watch, error)
}

// Scheduler is the part of the fetch scheduler the trigger drives.
type Scheduler interface {
	Enqueue(keys []string, p scheduler.Priority) int
	IsLoaded(key string) bool
	IsFailed(key string) bool
	LoadNow(ctx context.Context, key string) error
}

// Presence answers whether a resource is already resident.
type Presence interface {
	Contains(key string) bool
}

// Zone names one of the two watches of a registration.
type Zone int

const (
	ZoneOuter Zone = iota
	ZoneInner
)

func (z Zone) String() string {
	if z == ZoneInner {
		return "inner"
	}
	return "outer"
}

// State is the lifecycle of one registration.
//
//	Unregistered -> Watching -> PrefetchZone -> VisibleZone
//
// VisibleZone is terminal: both watches are detached. Unregister returns any
// state to Unregistered.
type State int

const (
	StateUnregistered State = iota
	StateWatching
	StatePrefetchZone
	StateVisibleZone
)

func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StatePrefetchZone:
		return "prefetch_zone"
	case StateVisibleZone:
		return "visible_zone"
	default:
		return "unregistered"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for c := StateUnregistered; c <= StateVisibleZone; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("visibility: unknown state %q", text)
}

// Options are the per-registration watch parameters.
type Options struct {
	OuterMargin    int     `json:"outer_margin"`
	OuterThreshold float64 `json:"outer_threshold"`
	InnerMargin    int     `json:"inner_margin"`
	InnerThreshold float64 `json:"inner_threshold"`
}

// DefaultOptions returns a 500px prefetch margin and a 200px / 10% visible
// margin.
func DefaultOptions() Options {
	return Options{
		OuterMargin:    DefaultOuterMargin,
		OuterThreshold: DefaultOuterThreshold,
		InnerMargin:    DefaultInnerMargin,
		InnerThreshold: DefaultInnerThreshold,
	}
}

// Validate checks margins and thresholds.
func (o Options) Validate() error {
	switch {
	case o.OuterMargin < 0 || o.InnerMargin < 0:
		return fmt.Errorf("%w: margins must not be negative", ErrInvalidRegistration)
	case o.InnerMargin > o.OuterMargin:
		return fmt.Errorf("%w: inner margin %d exceeds outer margin %d", ErrInvalidRegistration, o.InnerMargin, o.OuterMargin)
	case !validThreshold(o.OuterThreshold) || !validThreshold(o.InnerThreshold):
		return fmt.Errorf("%w: thresholds must be within [0, 1]", ErrInvalidRegistration)
	}
	return nil
}

func validThreshold(v float64) bool { return v >= 0 && v <= 1 }

// RegisterOption adjusts Options for one registration.
type RegisterOption func(*Options)

func WithOuterMargin(px int) RegisterOption {
	return func(o *Options) { o.OuterMargin = px }
}

func WithOuterThreshold(v float64) RegisterOption {
	return func(o *Options) { o.OuterThreshold = v }
}

func WithInnerMargin(px int) RegisterOption {
	return func(o *Options) { o.InnerMargin = px }
}

func WithInnerThreshold(v float64) RegisterOption {
	return func(o *Options) { o.InnerThreshold = v }
}

// WithOptions replaces all parameters at once.
func WithOptions(opts Options) RegisterOption {
	return func(o *Options) { *o = opts }
}

// Record is a snapshot of one registration.
type Record struct {
	TargetID        string  `json:"target_id"`
	ResourceKey     string  `json:"resource_key"`
	OuterRegistered bool    `json:"outer_registered"`
	InnerRegistered bool    `json:"inner_registered"`
	InnerFired      bool    `json:"inner_fired"`
	Prefetched      bool    `json:"prefetched"`
	State           State   `json:"state"`
	Options         Options `json:"options"`
}

// Metrics receives trigger observations. nil disables collection.
type Metrics interface {
	ObserveCrossing(zone Zone, acted bool)
	RecordRegistrations(n int)
}
