// Package scheduler throttles resource fetches.
//
// Keys wait in a priority queue (high, medium, low; FIFO within a priority)
// and are drawn in small batches while fewer than MaxConcurrent drawn items
// are unsettled. Each batch starts after a short dispatch delay so bursts of
// enqueues coalesce. Every key is loaded at most once: keys that are pending,
// in flight, loaded or failed are dropped by Enqueue, and failures are
// recorded permanently.
//
// LoadNow is the urgent path. It bypasses the queue, the delay and the
// concurrency cap, and joins a load of the same key that is already running.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/sync/singleflight"

	"github.com/marmos91/rankly/internal/logger"
)

type item struct {
	key      string
	priority Priority
	seq      uint64
}

// Scheduler is the priority fetch scheduler. Build one with New.
type Scheduler struct {
	cfg     Config
	load    Loader
	clock   clock.Clock
	metrics Metrics
	flight  singleflight.Group

	mu       sync.Mutex
	queue    []*item
	pending  map[string]*item
	inFlight map[string]struct{}
	loaded   map[string]struct{}
	failed   map[string]error
	waiters  map[string]chan struct{}
	active   int
	immed    int
	seq      uint64

	started bool
	closed  bool
	baseCtx context.Context
	work    sync.WaitGroup

	lastError   error
	lastErrorAt time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used for dispatch delays.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New validates cfg and returns an idle scheduler. Keys may be enqueued
// immediately; batches are only drawn after Start.
func New(load Loader, cfg Config, opts ...Option) (*Scheduler, error) {
	if load == nil {
		return nil, ErrNilLoader
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:      cfg,
		load:     load,
		clock:    clock.NewDefaultClock(),
		pending:  make(map[string]*item),
		inFlight: make(map[string]struct{}),
		loaded:   make(map[string]struct{}),
		failed:   make(map[string]error),
		waiters:  make(map[string]chan struct{}),
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins drawing batches. Loads run under a context derived from ctx
// that is never cancelled, so in-flight work always settles.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)

	logger.Info("Starting fetch scheduler",
		logger.KeyBatchSize, s.cfg.BatchSize,
		"max_concurrent", s.cfg.MaxConcurrent,
		"dispatch_delay", s.cfg.DispatchDelay,
		logger.KeyPending, len(s.queue))

	s.dispatchLocked()
}

// Stop stops drawing batches and waits up to timeout for drawn batches and
// immediate loads to settle. Pending keys stay queued and are never drawn.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending, active := len(s.queue), s.active
	s.mu.Unlock()

	logger.Info("Stopping fetch scheduler", logger.KeyPending, pending, logger.KeyActive, active)

	done := make(chan struct{})
	go func() {
		s.work.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Fetch scheduler stopped gracefully")
		return nil
	case <-time.After(timeout):
		logger.Warn("Fetch scheduler stop timed out", logger.KeyActive, s.Status().Active)
		return ErrStopTimeout
	}
}

// Enqueue queues keys at priority p and returns how many were accepted.
// Keys already pending, in flight, loaded or failed are dropped, as are
// repeats within keys.
func (s *Scheduler) Enqueue(keys []string, p Priority) int {
	if !p.Valid() {
		logger.Warn("Enqueue with invalid priority ignored", logger.KeyPriority, int(p))
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	accepted := 0
	for _, key := range keys {
		if s.knownLocked(key) {
			continue
		}
		s.seq++
		it := &item{key: key, priority: p, seq: s.seq}
		s.queue = append(s.queue, it)
		s.pending[key] = it
		accepted++
	}

	if s.metrics != nil {
		s.metrics.ObserveEnqueue(p, accepted, len(keys)-accepted)
	}
	if accepted == 0 {
		return 0
	}

	slices.SortStableFunc(s.queue, func(a, b *item) int {
		if a.priority != b.priority {
			return int(a.priority) - int(b.priority)
		}
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})

	logger.Debug("Keys enqueued",
		logger.KeyPriority, p.String(),
		logger.KeyAccepted, accepted,
		logger.KeyPending, len(s.queue))

	s.dispatchLocked()
	return accepted
}

// LoadNow loads key immediately on the caller's goroutine.
//
// A queued key is pulled out of the queue. A key whose load is already
// running is joined rather than loaded twice, and a key drawn into a batch
// that is still waiting out its dispatch delay starts now. A loaded key is
// loaded again, since callers only ask after a cache miss. Failed keys are
// not retried; their recorded error is returned.
func (s *Scheduler) LoadNow(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err, ok := s.failed[key]; ok {
		s.mu.Unlock()
		return err
	}

	if _, ok := s.inFlight[key]; !ok {
		if it, ok := s.pending[key]; ok {
			s.removePendingLocked(it)
		}
		delete(s.loaded, key)
		s.inFlight[key] = struct{}{}
	}
	s.immed++
	s.work.Add(1)
	s.recordQueueLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.immed--
		s.mu.Unlock()
		s.work.Done()
	}()

	lc := logger.NewLogContext(key, PathImmediate)
	if parent := logger.FromContext(ctx); parent != nil {
		lc = parent.Clone()
		lc.ResourceKey, lc.Path = key, PathImmediate
	}
	ctx = logger.WithContext(ctx, lc)

	for {
		shared, err := s.run(ctx, key, PathImmediate)
		if !shared || !s.IsInFlight(key) {
			return err
		}
		// The joined load settled before seeing this claim; run again so
		// the claim is either picked up by a new load or settled by one.
	}
}

// Await blocks until key settles and returns nil once it is loaded or the
// recorded failure. Keys never enqueued or loaded return ErrNotScheduled.
func (s *Scheduler) Await(ctx context.Context, key string) error {
	for {
		s.mu.Lock()
		if _, ok := s.loaded[key]; ok {
			s.mu.Unlock()
			return nil
		}
		if err, ok := s.failed[key]; ok {
			s.mu.Unlock()
			return err
		}
		_, queued := s.pending[key]
		_, running := s.inFlight[key]
		if !queued && !running {
			s.mu.Unlock()
			return ErrNotScheduled
		}
		ch, ok := s.waiters[key]
		if !ok {
			ch = make(chan struct{})
			s.waiters[key] = ch
		}
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// IsLoaded reports whether key loaded successfully.
func (s *Scheduler) IsLoaded(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loaded[key]
	return ok
}

// IsFailed reports whether key failed to load.
func (s *Scheduler) IsFailed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[key]
	return ok
}

// IsPending reports whether key is queued and not yet drawn.
func (s *Scheduler) IsPending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// IsInFlight reports whether key has been drawn or is loading immediately.
func (s *Scheduler) IsInFlight(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[key]
	return ok
}

// Failure returns the recorded error for a failed key, or nil.
func (s *Scheduler) Failure(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed[key]
}

// PendingKeys returns queued keys in draw order.
func (s *Scheduler) PendingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.queue))
	for i, it := range s.queue {
		keys[i] = it.key
	}
	return keys
}

// Status returns a snapshot of the scheduler's bookkeeping.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Pending:       len(s.queue),
		Active:        s.active,
		InFlight:      len(s.inFlight),
		Immediate:     s.immed,
		Loaded:        len(s.loaded),
		Failed:        len(s.failed),
		MaxConcurrent: s.cfg.MaxConcurrent,
		BatchSize:     s.cfg.BatchSize,
		Running:       s.started && !s.closed,
		LastErrorAt:   s.lastErrorAt,
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

func (s *Scheduler) knownLocked(key string) bool {
	if _, ok := s.pending[key]; ok {
		return true
	}
	if _, ok := s.inFlight[key]; ok {
		return true
	}
	if _, ok := s.loaded[key]; ok {
		return true
	}
	_, ok := s.failed[key]
	return ok
}

func (s *Scheduler) removePendingLocked(it *item) {
	delete(s.pending, it.key)
	if i := slices.Index(s.queue, it); i >= 0 {
		s.queue = slices.Delete(s.queue, i, i+1)
	}
}

// dispatchLocked draws batches while there is queued work and capacity.
func (s *Scheduler) dispatchLocked() {
	for s.started && !s.closed && len(s.queue) > 0 && s.active < s.cfg.MaxConcurrent {
		n := min(s.cfg.BatchSize, len(s.queue), s.cfg.MaxConcurrent-s.active)

		batch := make([]*item, n)
		copy(batch, s.queue[:n])
		s.queue = slices.Delete(s.queue, 0, n)

		for _, it := range batch {
			delete(s.pending, it.key)
			s.inFlight[it.key] = struct{}{}
		}
		s.active += n
		s.work.Add(1)

		logger.Debug("Batch drawn",
			logger.KeyBatchSize, n,
			logger.KeyActive, s.active,
			logger.KeyPending, len(s.queue))

		go s.runBatch(s.baseCtx, batch)
	}
	s.recordQueueLocked()
}

func (s *Scheduler) runBatch(ctx context.Context, batch []*item) {
	defer s.work.Done()

	if s.cfg.DispatchDelay > 0 {
		<-s.clock.TickAfter(s.cfg.DispatchDelay)
	}

	var wg sync.WaitGroup
	for _, it := range batch {
		wg.Add(1)
		go func(it *item) {
			defer wg.Done()
			lctx := logger.WithContext(ctx, logger.NewLogContext(it.key, PathQueued))
			_, _ = s.run(lctx, it.key, PathQueued)
		}(it)
	}
	wg.Wait()

	s.mu.Lock()
	s.active -= len(batch)
	s.dispatchLocked()
	s.mu.Unlock()
}

// run performs the load for key unless it already settled, joining any
// concurrent run of the same key. shared reports whether it joined.
func (s *Scheduler) run(ctx context.Context, key, path string) (bool, error) {
	_, err, shared := s.flight.Do(key, func() (any, error) {
		s.mu.Lock()
		if _, ok := s.inFlight[key]; !ok {
			err := s.resultLocked(key)
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()

		loadCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.cfg.LoadTimeout > 0 {
			loadCtx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		}
		defer cancel()

		start := s.clock.Now()
		err := s.load(loadCtx, key)
		elapsed := s.clock.Now().Sub(start)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrLoadFailed, key, err)
		}

		s.settle(ctx, key, path, err, elapsed)
		return nil, err
	})

	if shared {
		logger.DebugCtx(ctx, "Joined running load")
	}
	return shared, err
}

func (s *Scheduler) resultLocked(key string) error {
	if _, ok := s.loaded[key]; ok {
		return nil
	}
	if err, ok := s.failed[key]; ok {
		return err
	}
	return ErrNotScheduled
}

func (s *Scheduler) settle(ctx context.Context, key, path string, err error, elapsed time.Duration) {
	s.mu.Lock()
	delete(s.inFlight, key)
	if err != nil {
		s.failed[key] = err
		s.lastError = err
		s.lastErrorAt = s.clock.Now()
	} else {
		s.loaded[key] = struct{}{}
	}
	if ch, ok := s.waiters[key]; ok {
		close(ch)
		delete(s.waiters, key)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveLoad(path, err, elapsed)
	}

	if err != nil {
		logger.WarnCtx(ctx, "Resource load failed", logger.Err(err), logger.KeyDurationMs, elapsed.Milliseconds())
		return
	}
	logger.DebugCtx(ctx, "Resource loaded", logger.KeyDurationMs, elapsed.Milliseconds())
}

func (s *Scheduler) recordQueueLocked() {
	if s.metrics != nil {
		s.metrics.RecordQueue(len(s.queue), s.active)
	}
}
