// Package engine assembles the bounded cache, the fetch scheduler and the
// visibility trigger into one object that hosts mount widgets on.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/resource"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

// Engine owns one cache, scheduler and trigger. Build it with New.
type Engine struct {
	cfg      Config
	source   resource.Source
	cache    *cache.Cache
	loader   *resource.Loader
	sched    *scheduler.Scheduler
	hub      *visibility.Hub
	observer visibility.Observer
	trigger  *visibility.Trigger

	clock        clock.Clock
	metrics      Metrics
	pollInterval time.Duration

	mu      sync.Mutex
	widgets map[string]*Widget
	started bool
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches metrics to every component.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces the clock used for dispatch delays and wait polling.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithObserver replaces the built-in proximity hub. Engine.Report is a no-op
// afterwards; the observer is fed by the host.
func WithObserver(o visibility.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithWaitPollInterval sets how often Widget.Wait checks unscheduled keys.
func WithWaitPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// New validates cfg and wires the components. Nothing loads until Start.
func New(cfg Config, source resource.Source, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if err := cfg.Visibility.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		source:       source,
		clock:        clock.NewDefaultClock(),
		pollInterval: DefaultWaitPollInterval,
		widgets:      make(map[string]*Widget),
	}
	for _, opt := range opts {
		opt(e)
	}

	var cacheOpts []cache.Option
	schedOpts := []scheduler.Option{scheduler.WithClock(e.clock)}
	var trigOpts []visibility.TriggerOption
	if e.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(e.metrics))
		schedOpts = append(schedOpts, scheduler.WithMetrics(e.metrics))
		trigOpts = append(trigOpts, visibility.WithMetrics(e.metrics))
	}

	c, err := cache.New(cfg.Cache, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	e.cache = c
	e.loader = resource.NewLoader(source, c)

	s, err := scheduler.New(e.loader.Load, cfg.Scheduler, schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	e.sched = s

	if e.observer == nil {
		e.hub = visibility.NewHub()
		e.observer = e.hub
	}
	trigOpts = append(trigOpts, visibility.WithDefaults(cfg.Visibility))
	e.trigger = visibility.NewTrigger(e.observer, s, c, trigOpts...)

	return e, nil
}

// Start begins dispatching queued loads.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.sched.Start(ctx)
	logger.Info("Engine started",
		logger.KeyStoreType, e.source.Type(),
		logger.KeyMaxEntries, e.cfg.Cache.MaxEntries,
		logger.KeyMaxMemory, e.cfg.Cache.MaxMemoryUsage.String())
}

// Stop detaches every widget, waits up to timeout for loads to settle and
// closes the source. The cache stays readable.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for target := range e.widgets {
		e.forget(target)
	}
	e.widgets = make(map[string]*Widget)
	e.mu.Unlock()

	e.trigger.Close()
	err := e.sched.Stop(timeout)
	if cerr := e.source.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close source: %w", cerr))
	}
	logger.Info("Engine stopped", logger.Err(err))
	return err
}

// Mount registers target for key and returns its widget. Mounting a target
// again replaces the previous widget.
func (e *Engine) Mount(target, key string, opts ...visibility.RegisterOption) (*Widget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	if err := e.trigger.Register(target, key, opts...); err != nil {
		return nil, err
	}
	w := &Widget{engine: e, target: target, key: key}
	e.widgets[target] = w
	return w, nil
}

// Widget returns the mounted widget for target.
func (e *Engine) Widget(target string) (*Widget, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.widgets[target]
	return w, ok
}

// Target describes a mounted target.
func (e *Engine) Target(target string) (TargetStatus, error) {
	w, ok := e.Widget(target)
	if !ok {
		return TargetStatus{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	rec, ok := w.Record()
	if !ok {
		return TargetStatus{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return TargetStatus{Record: rec, Resource: e.Resource(w.key)}, nil
}

// Unmount detaches target and drops its reported geometry. It reports
// whether target was mounted.
func (e *Engine) Unmount(target string) bool {
	e.mu.Lock()
	delete(e.widgets, target)
	e.forget(target)
	e.mu.Unlock()
	return e.trigger.Unregister(target)
}

func (e *Engine) unmountWidget(w *Widget) bool {
	e.mu.Lock()
	if e.widgets[w.target] != w {
		e.mu.Unlock()
		return false
	}
	delete(e.widgets, w.target)
	e.forget(w.target)
	e.mu.Unlock()
	return e.trigger.Unregister(w.target)
}

func (e *Engine) forget(target string) {
	if e.hub != nil {
		e.hub.Forget(target)
	}
}

// Report feeds one geometry sample to the built-in hub. Samples for targets
// that are not mounted are dropped; it reports whether g was applied.
func (e *Engine) Report(target string, g visibility.Geometry) bool {
	if e.hub == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.widgets[target]; !ok {
		return false
	}
	e.hub.Report(target, g)
	return true
}

// ReportViewport moves the viewport for every known target.
func (e *Engine) ReportViewport(viewport visibility.Rect) {
	if e.hub != nil {
		e.hub.ReportViewport(viewport)
	}
}

// Prefetch queues keys at priority p without any widget.
func (e *Engine) Prefetch(keys []string, p scheduler.Priority) int {
	return e.sched.Enqueue(keys, p)
}

// Get reads key through the cache and bumps its recency.
func (e *Engine) Get(key string) (*resource.Image, bool) {
	h, ok := e.cache.Get(key)
	if !ok {
		return nil, false
	}
	img, ok := h.(*resource.Image)
	return img, ok
}

// StateOf classifies key for rendering.
func (e *Engine) StateOf(key string) State {
	switch {
	case e.cache.Contains(key):
		return StateLoaded
	case e.sched.IsFailed(key):
		return StateFailed
	case e.sched.IsInFlight(key):
		return StateLoading
	case e.sched.IsPending(key):
		return StateQueued
	default:
		return StateIdle
	}
}

// Resource describes key without bumping its recency.
func (e *Engine) Resource(key string) ResourceStatus {
	rs := ResourceStatus{Key: key, State: e.StateOf(key)}
	if err := e.sched.Failure(key); err != nil {
		rs.Error = err.Error()
	}
	for _, ent := range e.cache.Entries() {
		if ent.Key == key {
			rs.Cached = true
			rs.Width, rs.Height = ent.Width, ent.Height
			break
		}
	}
	return rs
}

// Health checks the source.
func (e *Engine) Health(ctx context.Context) error {
	return e.source.HealthCheck(ctx)
}

// Status aggregates every component.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.started && !e.closed
	e.mu.Unlock()

	st := Status{
		Running:       running,
		Source:        e.source.Type(),
		Cache:         e.cache.Status(),
		Scheduler:     e.sched.Status(),
		Registrations: e.trigger.Len(),
	}
	if e.hub != nil {
		st.Watches = e.hub.Watches()
	}
	return st
}

func (e *Engine) Cache() *cache.Cache             { return e.cache }
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }
func (e *Engine) Trigger() *visibility.Trigger    { return e.trigger }

// Hub returns the built-in hub, or nil when WithObserver was used.
func (e *Engine) Hub() *visibility.Hub { return e.hub }
