// Package visibility decides when a resource should be fetched from how
// close its on-screen target is to the viewport.
//
// Each registered target gets two one-shot watches. The outer watch (500px by
// default) queues the resource at medium priority so it is likely resident by
// the time it scrolls into view. The inner watch (200px, 10% of the target)
// loads it immediately, bypassing the queue, unless it is already cached.
package visibility

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/scheduler"
)

type record struct {
	Record
	outer Watch
	inner Watch
}

func (r *record) snapshot() Record {
	return r.Record
}

// Trigger maintains registrations and reacts to their proximity events.
type Trigger struct {
	observer Observer
	sched    Scheduler
	presence Presence
	metrics  Metrics
	defaults Options
	ctx      context.Context

	mu      sync.Mutex
	records map[string]*record
	closed  bool

	pumps sync.WaitGroup
	loads sync.WaitGroup
}

// TriggerOption configures a Trigger.
type TriggerOption func(*Trigger)

// WithDefaults replaces the options applied when Register gets none.
func WithDefaults(o Options) TriggerOption {
	return func(t *Trigger) { t.defaults = o }
}

// WithContext sets the context immediate loads run under. Cancelling it does
// not cancel loads already started.
func WithContext(ctx context.Context) TriggerOption {
	return func(t *Trigger) { t.ctx = context.WithoutCancel(ctx) }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) TriggerOption {
	return func(t *Trigger) { t.metrics = m }
}

// NewTrigger wires a trigger to its collaborators.
func NewTrigger(observer Observer, sched Scheduler, presence Presence, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		observer: observer,
		sched:    sched,
		presence: presence,
		defaults: DefaultOptions(),
		ctx:      context.Background(),
		records:  make(map[string]*record),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register starts watching target for resourceKey. Registering a target
// again replaces its previous registration and resets its one-shot state.
func (t *Trigger) Register(target, resourceKey string, opts ...RegisterOption) error {
	if target == "" || resourceKey == "" {
		return fmt.Errorf("%w: target and resource key are required", ErrInvalidRegistration)
	}

	o := t.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return err
	}

	outer, err := t.observer.Observe(target, o.OuterMargin, o.OuterThreshold)
	if err != nil {
		return fmt.Errorf("observe outer zone of %q: %w", target, err)
	}
	inner, err := t.observer.Observe(target, o.InnerMargin, o.InnerThreshold)
	if err != nil {
		outer.Close()
		return fmt.Errorf("observe inner zone of %q: %w", target, err)
	}

	rec := &record{
		Record: Record{
			TargetID:        target,
			ResourceKey:     resourceKey,
			OuterRegistered: true,
			InnerRegistered: true,
			State:           StateWatching,
			Options:         o,
		},
		outer: outer,
		inner: inner,
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		outer.Close()
		inner.Close()
		return ErrClosed
	}
	old := t.records[target]
	t.records[target] = rec
	t.pumps.Add(2)
	n := len(t.records)
	t.mu.Unlock()

	if old != nil {
		closeWatches(old.outer, old.inner)
	}

	go t.pump(rec, ZoneOuter, outer)
	go t.pump(rec, ZoneInner, inner)

	if t.metrics != nil {
		t.metrics.RecordRegistrations(n)
	}
	logger.Debug("Target registered",
		logger.KeyTargetID, target,
		logger.KeyResourceKey, resourceKey,
		"outer_margin", o.OuterMargin,
		"inner_margin", o.InnerMargin)
	return nil
}

// Unregister stops watching target. Loads already issued for it continue.
// It reports whether target was registered.
func (t *Trigger) Unregister(target string) bool {
	t.mu.Lock()
	rec, ok := t.records[target]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.records, target)
	rec.State = StateUnregistered
	outer, inner := rec.outer, rec.inner
	rec.outer, rec.inner = nil, nil
	rec.OuterRegistered, rec.InnerRegistered = false, false
	n := len(t.records)
	t.mu.Unlock()

	closeWatches(outer, inner)

	if t.metrics != nil {
		t.metrics.RecordRegistrations(n)
	}
	logger.Debug("Target unregistered", logger.KeyTargetID, target)
	return true
}

// Record returns a snapshot of target's registration.
func (t *Trigger) Record(target string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[target]
	if !ok {
		return Record{TargetID: target, State: StateUnregistered}, false
	}
	return rec.snapshot(), true
}

// Records returns snapshots of every registration.
func (t *Trigger) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec.snapshot())
	}
	return out
}

// Len returns the number of registrations.
func (t *Trigger) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Close detaches every watch and waits for outstanding immediate loads.
func (t *Trigger) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	var watches []Watch
	for target, rec := range t.records {
		watches = append(watches, rec.outer, rec.inner)
		rec.outer, rec.inner = nil, nil
		delete(t.records, target)
	}
	t.mu.Unlock()

	closeWatches(watches...)
	t.pumps.Wait()
	t.loads.Wait()
}

func (t *Trigger) pump(rec *record, zone Zone, w Watch) {
	defer t.pumps.Done()
	for ev := range w.Events() {
		t.handle(rec, zone, ev)
	}
}

func (t *Trigger) handle(rec *record, zone Zone, ev Event) {
	if !ev.Entered {
		logger.Debug("Proximity exit",
			logger.KeyTargetID, rec.TargetID,
			logger.KeyZone, zone.String())
		return
	}

	switch zone {
	case ZoneOuter:
		t.enterOuter(rec)
	case ZoneInner:
		t.enterInner(rec)
	}
}

// enterOuter queues the resource at medium priority once per registration.
func (t *Trigger) enterOuter(rec *record) {
	t.mu.Lock()
	if t.records[rec.TargetID] != rec || !rec.OuterRegistered {
		t.mu.Unlock()
		return
	}

	key := rec.ResourceKey
	enqueue := !rec.Prefetched && !t.sched.IsLoaded(key) && !t.sched.IsFailed(key)
	if enqueue {
		rec.Prefetched = true
	}
	rec.OuterRegistered = false
	w := rec.outer
	rec.outer = nil
	if rec.State == StateWatching {
		rec.State = StatePrefetchZone
	}
	t.mu.Unlock()

	closeWatches(w)

	accepted := 0
	if enqueue {
		accepted = t.sched.Enqueue([]string{key}, scheduler.PriorityMedium)
	}
	if t.metrics != nil {
		t.metrics.ObserveCrossing(ZoneOuter, enqueue)
	}
	logger.Debug("Prefetch zone entered",
		logger.KeyTargetID, rec.TargetID,
		logger.KeyResourceKey, key,
		logger.KeyAccepted, accepted)
}

// enterInner loads the resource now unless it is cached. It fires once per
// registration and detaches both watches, since a prefetch is moot once the
// target is visible.
func (t *Trigger) enterInner(rec *record) {
	t.mu.Lock()
	if t.records[rec.TargetID] != rec || rec.InnerFired || !rec.InnerRegistered {
		t.mu.Unlock()
		return
	}

	key := rec.ResourceKey
	rec.InnerFired = true
	rec.InnerRegistered, rec.OuterRegistered = false, false
	rec.State = StateVisibleZone
	outer, inner := rec.outer, rec.inner
	rec.outer, rec.inner = nil, nil

	load := !t.presence.Contains(key)
	if load {
		t.loads.Add(1)
	}
	t.mu.Unlock()

	closeWatches(outer, inner)

	if t.metrics != nil {
		t.metrics.ObserveCrossing(ZoneInner, load)
	}
	if !load {
		logger.Debug("Visible zone entered, resource cached",
			logger.KeyTargetID, rec.TargetID,
			logger.KeyResourceKey, key)
		return
	}

	lc := logger.NewLogContext(key, scheduler.PathImmediate).WithTarget(rec.TargetID)
	ctx := logger.WithContext(t.ctx, lc)
	go func() {
		defer t.loads.Done()
		if err := t.sched.LoadNow(ctx, key); err != nil {
			logger.WarnCtx(ctx, "Immediate load failed", logger.Err(err))
		}
	}()
}

func closeWatches(ws ...Watch) {
	for _, w := range ws {
		if w != nil {
			w.Close()
		}
	}
}
