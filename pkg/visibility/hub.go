package visibility

import (
	"fmt"
	"sync"

	"github.com/marmos91/rankly/internal/logger"
)

// watchBuffer bounds undelivered events per watch. When a consumer falls this
// far behind, the oldest events are dropped so the latest transition wins.
const watchBuffer = 16

// Hub is an in-process Observer driven by layout reports. Hosts call Report
// whenever a target or the viewport moves; every watch on that target gets an
// event when its inside/outside state changes.
type Hub struct {
	mu      sync.Mutex
	watches map[string]map[*hubWatch]struct{}
	last    map[string]Geometry
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		watches: make(map[string]map[*hubWatch]struct{}),
		last:    make(map[string]Geometry),
	}
}

type hubWatch struct {
	hub       *Hub
	target    string
	margin    int
	threshold float64

	// known and inside are guarded by hub.mu.
	known  bool
	inside bool

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (w *hubWatch) Events() <-chan Event { return w.ch }

func (w *hubWatch) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.hub.remove(w)
}

func (w *hubWatch) deliver(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for {
		select {
		case w.ch <- ev:
			return
		default:
		}
		select {
		case dropped := <-w.ch:
			logger.Debug("Proximity event dropped", logger.KeyTargetID, dropped.Target, "entered", dropped.Entered)
		default:
		}
	}
}

// Observe opens a watch on target. If the hub already has geometry for
// target, the current state is delivered right away.
func (h *Hub) Observe(target string, marginPx int, threshold float64) (Watch, error) {
	if target == "" || marginPx < 0 || !validThreshold(threshold) {
		return nil, fmt.Errorf("%w: target=%q margin=%d threshold=%v", ErrInvalidWatch, target, marginPx, threshold)
	}

	w := &hubWatch{
		hub:       h,
		target:    target,
		margin:    marginPx,
		threshold: threshold,
		ch:        make(chan Event, watchBuffer),
	}

	h.mu.Lock()
	set, ok := h.watches[target]
	if !ok {
		set = make(map[*hubWatch]struct{})
		h.watches[target] = set
	}
	set[w] = struct{}{}

	if g, ok := h.last[target]; ok {
		h.evaluateLocked(w, g)
	}
	h.mu.Unlock()
	return w, nil
}

// Report records new geometry for target and notifies its watches of any
// transitions. Delivery never blocks, so it happens under the hub lock and
// each watch sees transitions in report order.
func (h *Hub) Report(target string, g Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[target] = g
	for w := range h.watches[target] {
		h.evaluateLocked(w, g)
	}
}

// ReportViewport re-evaluates every known target against a new viewport, as
// happens on scroll or resize.
func (h *Hub) ReportViewport(viewport Rect) {
	h.mu.Lock()
	targets := make(map[string]Geometry, len(h.last))
	for target, g := range h.last {
		g.Viewport = viewport
		targets[target] = g
	}
	h.mu.Unlock()

	for target, g := range targets {
		h.Report(target, g)
	}
}

// Forget drops stored geometry for target, as when it leaves the layout.
// Open watches stay open.
func (h *Hub) Forget(target string) {
	h.mu.Lock()
	delete(h.last, target)
	h.mu.Unlock()
}

// Known returns the number of targets with stored geometry.
func (h *Hub) Known() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.last)
}

// Watches returns the number of open watches.
func (h *Hub) Watches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.watches {
		n += len(set)
	}
	return n
}

// evaluateLocked updates w's state from g and delivers an event on change.
func (h *Hub) evaluateLocked(w *hubWatch, g Geometry) {
	inside, ratio := Inside(g, w.margin, w.threshold)
	if w.known && w.inside == inside {
		return
	}
	w.known, w.inside = true, inside
	w.deliver(Event{Target: w.target, Entered: inside, Ratio: ratio})
}

func (h *Hub) remove(w *hubWatch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watches[w.target]
	delete(set, w)
	if len(set) == 0 {
		delete(h.watches, w.target)
	}
}
