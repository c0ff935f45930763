package visibility

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rankly/pkg/scheduler"
)

const waitFor = 2 * time.Second

type fakeWatch struct {
	target    string
	margin    int
	threshold float64

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (w *fakeWatch) Events() <-chan Event { return w.ch }

func (w *fakeWatch) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

func (w *fakeWatch) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// send delivers ev unless the watch is closed and reports whether it did.
func (w *fakeWatch) send(entered bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.ch <- Event{Target: w.target, Entered: entered}
	return true
}

type fakeObserver struct {
	mu      sync.Mutex
	watches map[string][]*fakeWatch
	err     error
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{watches: make(map[string][]*fakeWatch)}
}

func (o *fakeObserver) Observe(target string, margin int, threshold float64) (Watch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	w := &fakeWatch{target: target, margin: margin, threshold: threshold, ch: make(chan Event, 8)}
	o.watches[target] = append(o.watches[target], w)
	return w, nil
}

// latest returns the outer and inner watch of target's newest registration.
func (o *fakeObserver) latest(t *testing.T, target string) (outer, inner *fakeWatch) {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	ws := o.watches[target]
	require.GreaterOrEqual(t, len(ws), 2)
	return ws[len(ws)-2], ws[len(ws)-1]
}

type fakeScheduler struct {
	mu       sync.Mutex
	enqueued map[string]scheduler.Priority
	calls    int
	loaded   map[string]bool
	failed   map[string]bool
	loadNow  []string
	gate     chan struct{}
	finished int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		enqueued: make(map[string]scheduler.Priority),
		loaded:   make(map[string]bool),
		failed:   make(map[string]bool),
	}
}

func (s *fakeScheduler) Enqueue(keys []string, p scheduler.Priority) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, k := range keys {
		s.enqueued[k] = p
	}
	return len(keys)
}

func (s *fakeScheduler) IsLoaded(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[key]
}

func (s *fakeScheduler) IsFailed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed[key]
}

func (s *fakeScheduler) LoadNow(ctx context.Context, key string) error {
	s.mu.Lock()
	s.loadNow = append(s.loadNow, key)
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.loaded[key] = true
	s.finished++
	s.mu.Unlock()
	return nil
}

func (s *fakeScheduler) enqueueCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeScheduler) immediate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loadNow...)
}

type presence map[string]bool

func (p presence) Contains(key string) bool { return p[key] }

type harness struct {
	obs   *fakeObserver
	sched *fakeScheduler
	cache presence
	trig  *Trigger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{obs: newFakeObserver(), sched: newFakeScheduler(), cache: presence{}}
	h.trig = NewTrigger(h.obs, h.sched, h.cache)
	t.Cleanup(h.trig.Close)
	return h
}

func (h *harness) state(_ *testing.T, target string) func() State {
	return func() State {
		r, _ := h.trig.Record(target)
		return r.State
	}
}

func TestRegister(t *testing.T) {
	t.Run("DefaultWatches", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("card-1", "img/1.png"))

		outer, inner := h.obs.latest(t, "card-1")
		assert.Equal(t, 500, outer.margin)
		assert.Zero(t, outer.threshold)
		assert.Equal(t, 200, inner.margin)
		assert.InDelta(t, 0.1, inner.threshold, 1e-9)

		rec, ok := h.trig.Record("card-1")
		require.True(t, ok)
		assert.Equal(t, StateWatching, rec.State)
		assert.True(t, rec.OuterRegistered)
		assert.True(t, rec.InnerRegistered)
		assert.False(t, rec.InnerFired)
		assert.Equal(t, 1, h.trig.Len())
	})

	t.Run("CustomOptions", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("c", "k", WithOuterMargin(800), WithInnerMargin(0), WithInnerThreshold(0.5)))

		outer, inner := h.obs.latest(t, "c")
		assert.Equal(t, 800, outer.margin)
		assert.Equal(t, 0, inner.margin)
		assert.InDelta(t, 0.5, inner.threshold, 1e-9)
	})

	t.Run("Validation", func(t *testing.T) {
		h := newHarness(t)
		tests := []struct {
			name   string
			target string
			key    string
			opts   []RegisterOption
		}{
			{"EmptyTarget", "", "k", nil},
			{"EmptyKey", "t", "", nil},
			{"InnerWiderThanOuter", "t", "k", []RegisterOption{WithInnerMargin(600)}},
			{"NegativeMargin", "t", "k", []RegisterOption{WithOuterMargin(-1)}},
			{"ThresholdAboveOne", "t", "k", []RegisterOption{WithInnerThreshold(1.5)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := h.trig.Register(tt.target, tt.key, tt.opts...)
				assert.ErrorIs(t, err, ErrInvalidRegistration)
			})
		}
		assert.Zero(t, h.trig.Len())
	})

	t.Run("ObserverError", func(t *testing.T) {
		h := newHarness(t)
		h.obs.err = errors.New("layout gone")
		err := h.trig.Register("t", "k")
		require.Error(t, err)
		assert.Zero(t, h.trig.Len())
	})
}

func TestOuterCrossing(t *testing.T) {
	t.Run("EnqueuesAtMediumOnce", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		outer, _ := h.obs.latest(t, "t")

		require.True(t, outer.send(true))
		require.Eventually(t, func() bool { return h.sched.enqueueCalls() == 1 }, waitFor, time.Millisecond)

		h.sched.mu.Lock()
		assert.Equal(t, scheduler.PriorityMedium, h.sched.enqueued["k"])
		h.sched.mu.Unlock()
		assert.Equal(t, StatePrefetchZone, h.state(t, "t")())
		assert.True(t, outer.isClosed(), "outer watch is one-shot")

		rec, _ := h.trig.Record("t")
		assert.False(t, rec.OuterRegistered)
		assert.True(t, rec.InnerRegistered)
		assert.True(t, rec.Prefetched)
		assert.False(t, outer.send(true))
		assert.Equal(t, 1, h.sched.enqueueCalls())
	})

	t.Run("SkipsLoadedKey", func(t *testing.T) {
		h := newHarness(t)
		h.sched.loaded["k"] = true
		require.NoError(t, h.trig.Register("t", "k"))
		outer, _ := h.obs.latest(t, "t")

		outer.send(true)
		require.Eventually(t, outer.isClosed, waitFor, time.Millisecond)
		assert.Zero(t, h.sched.enqueueCalls())
	})

	t.Run("SkipsFailedKey", func(t *testing.T) {
		h := newHarness(t)
		h.sched.failed["k"] = true
		require.NoError(t, h.trig.Register("t", "k"))
		outer, _ := h.obs.latest(t, "t")

		outer.send(true)
		require.Eventually(t, outer.isClosed, waitFor, time.Millisecond)
		assert.Zero(t, h.sched.enqueueCalls())
	})

	t.Run("ExitIgnored", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		outer, _ := h.obs.latest(t, "t")

		outer.send(false)
		time.Sleep(20 * time.Millisecond)
		assert.False(t, outer.isClosed())
		assert.Equal(t, StateWatching, h.state(t, "t")())
		assert.Zero(t, h.sched.enqueueCalls())
	})
}

func TestInnerCrossing(t *testing.T) {
	t.Run("LoadsImmediatelyWhenNotCached", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		outer, inner := h.obs.latest(t, "t")

		inner.send(true)
		require.Eventually(t, func() bool { return len(h.sched.immediate()) == 1 }, waitFor, time.Millisecond)

		rec, _ := h.trig.Record("t")
		assert.Equal(t, StateVisibleZone, rec.State)
		assert.True(t, rec.InnerFired)
		assert.False(t, rec.InnerRegistered)
		assert.False(t, rec.OuterRegistered)
		assert.True(t, inner.isClosed())
		assert.True(t, outer.isClosed())
		assert.Zero(t, h.sched.enqueueCalls(), "visible targets skip the queue")
	})

	t.Run("SkipsCachedResource", func(t *testing.T) {
		h := newHarness(t)
		h.cache["k"] = true
		require.NoError(t, h.trig.Register("t", "k"))
		_, inner := h.obs.latest(t, "t")

		inner.send(true)
		require.Eventually(t, func() bool { return h.state(t, "t")() == StateVisibleZone }, waitFor, time.Millisecond)
		assert.Empty(t, h.sched.immediate())
	})

	t.Run("AfterPrefetch", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		outer, inner := h.obs.latest(t, "t")

		outer.send(true)
		require.Eventually(t, func() bool { return h.state(t, "t")() == StatePrefetchZone }, waitFor, time.Millisecond)
		inner.send(true)
		require.Eventually(t, func() bool { return len(h.sched.immediate()) == 1 }, waitFor, time.Millisecond)
		assert.Equal(t, StateVisibleZone, h.state(t, "t")())
	})

	t.Run("FiresOncePerRegistration", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		_, inner := h.obs.latest(t, "t")

		// Two enters queued before the first is handled.
		inner.mu.Lock()
		inner.ch <- Event{Target: "t", Entered: true}
		inner.ch <- Event{Target: "t", Entered: true}
		inner.mu.Unlock()

		require.Eventually(t, inner.isClosed, waitFor, time.Millisecond)
		h.trig.Close()
		assert.Equal(t, []string{"k"}, h.sched.immediate())
	})

	t.Run("ReRegisterResets", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		_, inner := h.obs.latest(t, "t")
		inner.send(true)
		require.Eventually(t, func() bool { return len(h.sched.immediate()) == 1 }, waitFor, time.Millisecond)

		require.NoError(t, h.trig.Register("t", "k2"))
		rec, _ := h.trig.Record("t")
		assert.False(t, rec.InnerFired)
		assert.Equal(t, StateWatching, rec.State)

		_, inner2 := h.obs.latest(t, "t")
		inner2.send(true)
		require.Eventually(t, func() bool { return len(h.sched.immediate()) == 2 }, waitFor, time.Millisecond)
	})
}

func TestUnregister(t *testing.T) {
	t.Run("DetachesWatches", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		outer, inner := h.obs.latest(t, "t")

		assert.True(t, h.trig.Unregister("t"))
		assert.False(t, h.trig.Unregister("t"))
		assert.True(t, outer.isClosed())
		assert.True(t, inner.isClosed())

		rec, ok := h.trig.Record("t")
		assert.False(t, ok)
		assert.Equal(t, StateUnregistered, rec.State)
	})

	t.Run("DoesNotCancelInFlightLoad", func(t *testing.T) {
		h := newHarness(t)
		h.sched.gate = make(chan struct{})
		require.NoError(t, h.trig.Register("t", "k"))
		_, inner := h.obs.latest(t, "t")

		inner.send(true)
		require.Eventually(t, func() bool { return len(h.sched.immediate()) == 1 }, waitFor, time.Millisecond)

		h.trig.Unregister("t")
		close(h.sched.gate)

		require.Eventually(t, func() bool { return h.sched.IsLoaded("k") }, waitFor, time.Millisecond)
	})

	t.Run("ReplacedRegistrationIgnoresOldEvents", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.trig.Register("t", "k"))
		oldOuter, _ := h.obs.latest(t, "t")
		require.NoError(t, h.trig.Register("t", "k"))

		assert.True(t, oldOuter.isClosed())
		assert.False(t, oldOuter.send(true))
		assert.Equal(t, 1, h.trig.Len())
	})
}

func TestCloseRejectsRegistration(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.trig.Register("t", "k"))
	h.trig.Close()

	assert.Zero(t, h.trig.Len())
	assert.ErrorIs(t, h.trig.Register("t2", "k"), ErrClosed)
}

type crossingMetrics struct {
	mu       sync.Mutex
	acted    map[Zone]int
	idle     map[Zone]int
	lastRegs int
}

func (m *crossingMetrics) ObserveCrossing(z Zone, acted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acted {
		m.acted[z]++
	} else {
		m.idle[z]++
	}
}

func (m *crossingMetrics) RecordRegistrations(n int) {
	m.mu.Lock()
	m.lastRegs = n
	m.mu.Unlock()
}

func TestTriggerMetrics(t *testing.T) {
	m := &crossingMetrics{acted: map[Zone]int{}, idle: map[Zone]int{}}
	obs, sched := newFakeObserver(), newFakeScheduler()
	trig := NewTrigger(obs, sched, presence{"cached": true}, WithMetrics(m))

	require.NoError(t, trig.Register("a", "fresh"))
	require.NoError(t, trig.Register("b", "cached"))
	_, innerA := obs.latest(t, "a")
	_, innerB := obs.latest(t, "b")
	innerA.send(true)
	innerB.send(true)
	require.Eventually(t, func() bool { return innerA.isClosed() && innerB.isClosed() }, waitFor, time.Millisecond)
	trig.Unregister("a")
	trig.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.acted[ZoneInner])
	assert.Equal(t, 1, m.idle[ZoneInner])
	assert.Equal(t, 1, m.lastRegs)
}

func TestStateText(t *testing.T) {
	for _, s := range []State{StateUnregistered, StateWatching, StatePrefetchZone, StateVisibleZone} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back State
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("offscreen")))
	assert.Equal(t, "inner", ZoneInner.String())
	assert.Equal(t, "outer", ZoneOuter.String())
}
