// Package metrics provides the Prometheus implementation of the cache,
// scheduler and visibility metrics hooks.
//
// A nil *Metrics is valid and records nothing, so callers can pass the result
// of NewMetrics(nil) straight through when metrics are disabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

const namespace = "rankly"

// Metrics holds every collector. Build one with NewMetrics.
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	evictedBytes   prometheus.Counter
	cacheEntries   prometheus.Gauge
	cacheBytes     prometheus.Gauge

	enqueued     *prometheus.CounterVec
	deduplicated *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
	activeSlots  prometheus.Gauge

	crossings     *prometheus.CounterVec
	registrations prometheus.Gauge
}

// NewMetrics registers all collectors with reg. A nil reg returns nil, which
// disables collection.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)

	return &Metrics{
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "hits_total",
			Help: "Cache lookups that found a resident resource",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "misses_total",
			Help: "Cache lookups that found nothing",
		}),
		cacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "evictions_total",
			Help: "Entries evicted to satisfy the count or memory budget",
		}),
		evictedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "evicted_bytes_total",
			Help: "Approximate bytes released by eviction",
		}),
		cacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "entries",
			Help: "Resources currently resident",
		}),
		cacheBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "memory_bytes",
			Help: "Approximate decoded footprint of resident resources",
		}),

		enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "enqueued_total",
			Help: "Keys accepted into the fetch queue by priority",
		}, []string{"priority"}),
		deduplicated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "deduplicated_total",
			Help: "Keys dropped by Enqueue because they were already known",
		}, []string{"priority"}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "loads_total",
			Help: "Settled loads by path and outcome",
		}, []string{"path", "outcome"}),
		loadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "load_duration_seconds",
			Help: "Fetch and decode time per load",
			Buckets: []float64{
				0.005, // cache-local sources
				0.025,
				0.1,
				0.25,
				0.5,
				1,
				2.5,
				5,
				10, // slow origins
			},
		}, []string{"path"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "queue_depth",
			Help: "Keys waiting to be drawn",
		}),
		activeSlots: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "active",
			Help: "Drawn items not yet settled",
		}),

		crossings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "visibility",
			Name: "crossings_total",
			Help: "Zone entries by zone and whether they triggered work",
		}, []string{"zone", "acted"}),
		registrations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "visibility",
			Name: "registrations",
			Help: "Live target registrations",
		}),
	}
}

var (
	_ cache.Metrics      = (*Metrics)(nil)
	_ scheduler.Metrics  = (*Metrics)(nil)
	_ visibility.Metrics = (*Metrics)(nil)
)
