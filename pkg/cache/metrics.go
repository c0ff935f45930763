package cache

// Metrics receives cache observations. Pass nil to New to disable collection;
// pkg/metrics provides the Prometheus implementation.
type Metrics interface {
	ObserveHit()
	ObserveMiss()
	ObserveEviction(bytes uint64)
	RecordUsage(entries int, bytes uint64)
}
