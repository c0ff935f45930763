package metrics

import (
	"strconv"

	"github.com/marmos91/rankly/pkg/visibility"
)

func (m *Metrics) ObserveCrossing(zone visibility.Zone, acted bool) {
	if m != nil {
		m.crossings.WithLabelValues(zone.String(), strconv.FormatBool(acted)).Inc()
	}
}

func (m *Metrics) RecordRegistrations(n int) {
	if m != nil {
		m.registrations.Set(float64(n))
	}
}
