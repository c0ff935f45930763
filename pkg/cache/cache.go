// Package cache is an in-memory store of decoded resources with least
// recently used eviction, bounded both by entry count and by an approximate
// memory footprint.
//
// Every operation takes a single mutex, so an insert together with the
// evictions it triggers is atomic for concurrent callers. Eviction is silent:
// callers observe it only as a later miss.
package cache

import (
	"container/list"
	"sync"

	"github.com/marmos91/rankly/internal/logger"
)

type entry struct {
	key    string
	handle Handle
	bytes  uint64
	rank   uint64
}

// Cache is the bounded resource cache. The zero value is not usable; build
// one with New.
type Cache struct {
	mu sync.Mutex

	maxEntries int
	maxMemory  uint64

	// order holds *entry with the least recently used at the front.
	order   *list.List
	entries map[string]*list.Element
	memory  uint64
	clock   uint64

	metrics Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns an empty cache with the given budgets.
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, ErrInvalidMaxEntries
	}

	c := &Cache{
		maxEntries: cfg.MaxEntries,
		maxMemory:  cfg.MaxMemoryUsage.Uint64(),
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the handle stored under key and marks it most recently used.
func (c *Cache) Get(key string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		if c.metrics != nil {
			c.metrics.ObserveMiss()
		}
		return nil, false
	}

	c.touch(el)
	if c.metrics != nil {
		c.metrics.ObserveHit()
	}
	return el.Value.(*entry).handle, true
}

// Contains reports whether key is cached without affecting recency.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Put inserts or replaces the handle under key as most recently used, then
// evicts least recently used entries until both budgets hold. A handle whose
// own footprint exceeds the memory budget is evicted as well, leaving the
// cache empty rather than over budget.
func (c *Cache) Put(key string, h Handle) {
	size := ApproxBytes(h)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		c.memory = c.memory - e.bytes + size
		e.handle = h
		e.bytes = size
		c.touch(el)
	} else {
		c.clock++
		e := &entry{key: key, handle: h, bytes: size, rank: c.clock}
		c.entries[key] = c.order.PushBack(e)
		c.memory += size
	}

	c.evict()
	c.recordUsage()
}

// Remove deletes key. It reports whether the key was present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(el)
	c.recordUsage()
	return true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.memory = 0
	c.recordUsage()
}

// Status reports current occupancy. UsagePercent is relative to the memory
// budget and is 0 when memory is unbounded.
func (c *Cache) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		EntryCount:         len(c.entries),
		MaxEntries:         c.maxEntries,
		CurrentMemoryUsage: c.memory,
		MaxMemoryUsage:     c.maxMemory,
	}
	if c.maxMemory > 0 {
		s.UsagePercent = float64(c.memory) / float64(c.maxMemory) * 100
	}
	return s
}

// Keys returns cached keys from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Entries returns a snapshot of all entries from least to most recently used.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		snap := Entry{Key: e.key, ApproxBytes: e.bytes, RecencyRank: e.rank}
		if e.handle != nil {
			snap.Width, snap.Height = e.handle.Width(), e.handle.Height()
		}
		out = append(out, snap)
	}
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) touch(el *list.Element) {
	c.clock++
	el.Value.(*entry).rank = c.clock
	c.order.MoveToBack(el)
}

func (c *Cache) unlink(el *list.Element) *entry {
	e := c.order.Remove(el).(*entry)
	delete(c.entries, e.key)
	c.memory -= e.bytes
	return e
}

func (c *Cache) overBudget() bool {
	if len(c.entries) > c.maxEntries {
		return true
	}
	return c.maxMemory > 0 && c.memory > c.maxMemory
}

// evict must be called with mu held.
func (c *Cache) evict() {
	var evicted []string
	for c.overBudget() {
		front := c.order.Front()
		if front == nil {
			break
		}
		e := c.unlink(front)
		evicted = append(evicted, e.key)
		if c.metrics != nil {
			c.metrics.ObserveEviction(e.bytes)
		}
	}

	if len(evicted) > 0 {
		logger.Debug("cache eviction",
			logger.KeyEvicted, len(evicted),
			logger.KeyEvictedKeys, evicted,
			logger.KeyEntries, len(c.entries),
			logger.KeyMemory, c.memory)
	}
}

func (c *Cache) recordUsage() {
	if c.metrics != nil {
		c.metrics.RecordUsage(len(c.entries), c.memory)
	}
}
