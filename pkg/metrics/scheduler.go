package metrics

import (
	"time"

	"github.com/marmos91/rankly/pkg/scheduler"
)

func (m *Metrics) ObserveEnqueue(p scheduler.Priority, accepted, deduplicated int) {
	if m == nil {
		return
	}
	label := p.String()
	m.enqueued.WithLabelValues(label).Add(float64(accepted))
	m.deduplicated.WithLabelValues(label).Add(float64(deduplicated))
}

func (m *Metrics) ObserveLoad(path string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.loads.WithLabelValues(path, outcome).Inc()
	m.loadDuration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) RecordQueue(pending, active int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(pending))
	m.activeSlots.Set(float64(active))
}
