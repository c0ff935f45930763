package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use these consistently so logs can be queried by
// resource key or target across the cache, scheduler and trigger.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Resources and targets
	KeyResourceKey = "resource_key" // Opaque cache/resource key
	KeyTargetID    = "target_id"    // Visibility target (widget) identifier
	KeyWidth       = "width"
	KeyHeight      = "height"
	KeyFormat      = "format" // Decoded image format: png, jpeg, gif
	KeyBytes       = "bytes"  // Approximate decoded footprint

	// Scheduling
	KeyPriority  = "priority"
	KeyBatchSize = "batch_size"
	KeyActive    = "active"
	KeyPending   = "pending"
	KeyAccepted  = "accepted"
	KeyLoadPath  = "load_path" // queued or immediate

	// Visibility
	KeyZone   = "zone" // outer or inner
	KeyMargin = "margin_px"
	KeyState  = "state"

	// Cache
	KeyEntries     = "entries"
	KeyMaxEntries  = "max_entries"
	KeyMemory      = "memory_bytes"
	KeyMaxMemory   = "max_memory_bytes"
	KeyEvicted     = "evicted"
	KeyEvictedKeys = "evicted_keys"

	// Storage backend
	KeyStoreType = "store_type" // memory, fs, s3
	KeyBucket    = "bucket"
	KeyKey       = "key"
	KeyRegion    = "region"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
	KeyAddress    = "address"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

func ResourceKey(key string) slog.Attr {
	return slog.String(KeyResourceKey, key)
}

func TargetID(id string) slog.Attr {
	return slog.String(KeyTargetID, id)
}

// Priority accepts anything with a String method so the scheduler's enum can
// be passed without this package importing it.
func Priority(p interface{ String() string }) slog.Attr {
	return slog.String(KeyPriority, p.String())
}

func BatchSize(n int) slog.Attr {
	return slog.Int(KeyBatchSize, n)
}

func Zone(z string) slog.Attr {
	return slog.String(KeyZone, z)
}

func Bytes(n uint64) slog.Attr {
	return slog.Uint64(KeyBytes, n)
}

func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// DurationMs returns a slog.Attr with the elapsed time since start in milliseconds.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
