package metrics

func (m *Metrics) ObserveHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) ObserveMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) ObserveEviction(bytes uint64) {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
	m.evictedBytes.Add(float64(bytes))
}

func (m *Metrics) RecordUsage(entries int, bytes uint64) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(entries))
	m.cacheBytes.Set(float64(bytes))
}
