package cache

import (
	"errors"

	"github.com/marmos91/rankly/internal/bytesize"
)

const (
	// DefaultMaxEntries bounds the number of decoded resources kept resident.
	DefaultMaxEntries = 50

	// DefaultMaxMemoryUsage bounds the summed approximate footprint.
	DefaultMaxMemoryUsage = 100 * bytesize.MiB

	// BytesPerPixel is the RGBA estimate used for approximate sizes.
	BytesPerPixel = 4

	// UnlimitedMemory disables the memory budget.
	UnlimitedMemory bytesize.ByteSize = 0
)

var (
	// ErrInvalidMaxEntries is returned by New when MaxEntries is not positive.
	ErrInvalidMaxEntries = errors.New("cache: max entries must be positive")
)

// Handle is an opaque decoded resource. Only its pixel dimensions are
// needed to estimate its footprint.
type Handle interface {
	Width() int
	Height() int
}

// Config holds the cache budgets.
type Config struct {
	// MaxEntries is the entry count limit. Must be positive.
	MaxEntries int

	// MaxMemoryUsage is the summed approximate byte limit.
	// UnlimitedMemory (0) disables it.
	MaxMemoryUsage bytesize.ByteSize
}

// DefaultConfig returns the default budgets: 50 entries and 100 MiB.
func DefaultConfig() Config {
	return Config{
		MaxEntries:     DefaultMaxEntries,
		MaxMemoryUsage: DefaultMaxMemoryUsage,
	}
}

// Entry is a point-in-time view of one cached resource.
type Entry struct {
	Key         string `json:"key"`
	ApproxBytes uint64 `json:"approx_bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`

	// RecencyRank increases on every access. Higher means more recent.
	RecencyRank uint64 `json:"recency_rank"`
}

// Status summarises cache occupancy.
type Status struct {
	EntryCount         int     `json:"entry_count"`
	MaxEntries         int     `json:"max_entries"`
	CurrentMemoryUsage uint64  `json:"current_memory_usage"`
	MaxMemoryUsage     uint64  `json:"max_memory_usage"`
	UsagePercent       float64 `json:"usage_percent"`
}

// ApproxBytes estimates the decoded footprint of h as width*height*4.
// Non-positive dimensions yield 0.
func ApproxBytes(h Handle) uint64 {
	if h == nil {
		return 0
	}
	w, ht := h.Width(), h.Height()
	if w <= 0 || ht <= 0 {
		return 0
	}
	return uint64(w) * uint64(ht) * BytesPerPixel
}
