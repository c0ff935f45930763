package visibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewport = Rect{X: 0, Y: 0, Width: 1000, Height: 800}

// below places a 100x100 target dist pixels below the viewport's bottom edge.
func below(dist float64) Geometry {
	return Geometry{Viewport: viewport, Target: Rect{X: 100, Y: viewport.Height + dist, Width: 100, Height: 100}}
}

func recv(t *testing.T, w Watch) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "watch closed")
		return ev
	case <-time.After(waitFor):
		t.Fatal("no event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, w Watch) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestIntersectionRatio(t *testing.T) {
	tests := []struct {
		name     string
		g        Geometry
		margin   int
		ratio    float64
		touching bool
	}{
		{"FullyVisible", Geometry{viewport, Rect{10, 10, 100, 100}}, 0, 1, true},
		{"FarBelow", below(900), 500, 0, false},
		{"WithinMargin", below(400), 500, 1, true},
		{"HalfInsideMargin", below(150), 200, 0.5, true},
		{"EdgeAdjacent", below(0), 0, 0, true},
		{"ZeroAreaInside", Geometry{viewport, Rect{5, 5, 0, 0}}, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, touching := IntersectionRatio(tt.g, tt.margin)
			assert.Equal(t, tt.touching, touching)
			assert.InDelta(t, tt.ratio, ratio, 1e-9)
		})
	}
}

func TestInside(t *testing.T) {
	in, _ := Inside(below(0), 0, 0)
	assert.True(t, in, "zero threshold accepts edge contact")

	in, _ = Inside(below(195), 200, 0.1)
	assert.False(t, in, "5 percent inside is under the 0.1 threshold")

	in, ratio := Inside(below(190), 200, 0.1)
	assert.True(t, in)
	assert.InDelta(t, 0.1, ratio, 1e-9)
}

func TestHubObserve(t *testing.T) {
	t.Run("RejectsBadParameters", func(t *testing.T) {
		h := NewHub()
		_, err := h.Observe("", 10, 0)
		assert.ErrorIs(t, err, ErrInvalidWatch)
		_, err = h.Observe("t", -1, 0)
		assert.ErrorIs(t, err, ErrInvalidWatch)
		_, err = h.Observe("t", 10, 2)
		assert.ErrorIs(t, err, ErrInvalidWatch)
	})

	t.Run("InitialStateFromKnownGeometry", func(t *testing.T) {
		h := NewHub()
		h.Report("t", below(100))

		w, err := h.Observe("t", 500, 0)
		require.NoError(t, err)
		defer w.Close()
		assert.True(t, recv(t, w).Entered)
	})

	t.Run("NoEventWithoutGeometry", func(t *testing.T) {
		h := NewHub()
		w, err := h.Observe("t", 500, 0)
		require.NoError(t, err)
		defer w.Close()
		assertQuiet(t, w)
	})
}

func TestHubTransitions(t *testing.T) {
	h := NewHub()
	outer, err := h.Observe("card", 500, 0)
	require.NoError(t, err)
	inner, err := h.Observe("card", 200, 0.1)
	require.NoError(t, err)
	defer outer.Close()
	defer inner.Close()

	h.Report("card", below(2000))
	assert.False(t, recv(t, outer).Entered)
	assert.False(t, recv(t, inner).Entered)

	h.Report("card", below(450))
	assert.True(t, recv(t, outer).Entered)
	assertQuiet(t, inner)

	h.Report("card", below(400)) // no change for either watch
	assertQuiet(t, outer)

	h.ReportViewport(Rect{X: 0, Y: 500, Width: 1000, Height: 800})
	ev := recv(t, inner)
	assert.True(t, ev.Entered)
	assert.Equal(t, "card", ev.Target)
	assertQuiet(t, outer)

	h.Report("card", below(3000))
	assert.False(t, recv(t, outer).Entered)
	assert.False(t, recv(t, inner).Entered)
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	w, err := h.Observe("t", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Watches())

	w.Close()
	w.Close()
	assert.Zero(t, h.Watches())

	_, ok := <-w.Events()
	assert.False(t, ok)

	require.NotPanics(t, func() { h.Report("t", below(0)) })
}

func TestHubSlowConsumerKeepsLatest(t *testing.T) {
	h := NewHub()
	w, err := h.Observe("t", 0, 0)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < watchBuffer*2+1; i++ {
		if i%2 == 0 {
			h.Report("t", below(0))
		} else {
			h.Report("t", below(500))
		}
	}

	var last Event
	for i := 0; i < watchBuffer; i++ {
		last = recv(t, w)
	}
	assertQuiet(t, w)
	assert.True(t, last.Entered, "the final report was inside")
}

func TestHubForget(t *testing.T) {
	h := NewHub()
	h.Report("t", below(0))
	h.Report("u", below(0))
	assert.Equal(t, 2, h.Known())
	h.Forget("t")
	assert.Equal(t, 1, h.Known())

	w, err := h.Observe("t", 0, 0)
	require.NoError(t, err)
	defer w.Close()
	assertQuiet(t, w)
}

// The hub satisfies the trigger's Observer end to end.
func TestTriggerWithHub(t *testing.T) {
	hub := NewHub()
	sched := newFakeScheduler()
	trig := NewTrigger(hub, sched, presence{})
	defer trig.Close()

	require.NoError(t, trig.Register("card", "img/card.png"))
	assert.Equal(t, 2, hub.Watches())

	hub.Report("card", below(450))
	require.Eventually(t, func() bool { return sched.enqueueCalls() == 1 }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return hub.Watches() == 1 }, waitFor, time.Millisecond)

	hub.Report("card", below(-50))
	require.Eventually(t, func() bool { return len(sched.immediate()) == 1 }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return hub.Watches() == 0 }, waitFor, time.Millisecond)

	rec, _ := trig.Record("card")
	assert.Equal(t, StateVisibleZone, rec.State)
}
