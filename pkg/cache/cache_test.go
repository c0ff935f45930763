package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rankly/internal/bytesize"
)

type img struct{ w, h int }

func (i img) Width() int  { return i.w }
func (i img) Height() int { return i.h }

// px returns a handle whose approximate size is exactly n*4 bytes.
func px(n int) img { return img{w: n, h: 1} }

func newCache(t *testing.T, entries int, mem bytesize.ByteSize) *Cache {
	t.Helper()
	c, err := New(Config{MaxEntries: entries, MaxMemoryUsage: mem})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("RejectsNonPositiveEntries", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			_, err := New(Config{MaxEntries: n})
			assert.ErrorIs(t, err, ErrInvalidMaxEntries)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		c, err := New(DefaultConfig())
		require.NoError(t, err)
		s := c.Status()
		assert.Equal(t, 50, s.MaxEntries)
		assert.Equal(t, uint64(100*1024*1024), s.MaxMemoryUsage)
		assert.Zero(t, s.EntryCount)
	})
}

func TestApproxBytes(t *testing.T) {
	assert.Equal(t, uint64(400*300*4), ApproxBytes(img{400, 300}))
	assert.Zero(t, ApproxBytes(img{0, 10}))
	assert.Zero(t, ApproxBytes(img{-3, 10}))
	assert.Zero(t, ApproxBytes(nil))
}

func TestGetPut(t *testing.T) {
	t.Run("MissOnEmpty", func(t *testing.T) {
		c := newCache(t, 2, UnlimitedMemory)
		_, ok := c.Get("a")
		assert.False(t, ok)
	})

	t.Run("HitReturnsHandle", func(t *testing.T) {
		c := newCache(t, 2, UnlimitedMemory)
		c.Put("a", img{10, 20})

		h, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 10, h.Width())
		assert.Equal(t, uint64(800), c.Status().CurrentMemoryUsage)
	})

	t.Run("ReplaceAdjustsMemory", func(t *testing.T) {
		c := newCache(t, 2, UnlimitedMemory)
		c.Put("a", px(10))
		c.Put("a", px(25))

		s := c.Status()
		assert.Equal(t, 1, s.EntryCount)
		assert.Equal(t, uint64(100), s.CurrentMemoryUsage)
	})
}

// maxEntries=2, unbounded memory: put A, put B, get A, put C evicts B.
func TestLRUScenario(t *testing.T) {
	c := newCache(t, 2, UnlimitedMemory)

	c.Put("A", px(1))
	c.Put("B", px(1))
	assert.Equal(t, []string{"A", "B"}, c.Keys())

	_, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, []string{"B", "A"}, c.Keys())

	c.Put("C", px(1))
	assert.Equal(t, []string{"A", "C"}, c.Keys())

	_, ok = c.Get("B")
	assert.False(t, ok)
}

func TestEvictsOldestWithoutAccess(t *testing.T) {
	c := newCache(t, 2, UnlimitedMemory)
	c.Put("A", px(1))
	c.Put("B", px(1))
	c.Put("C", px(1))

	assert.ElementsMatch(t, []string{"B", "C"}, c.Keys())
	assert.False(t, c.Contains("A"))
}

func TestMemoryBudget(t *testing.T) {
	t.Run("EvictsUntilUnderBudget", func(t *testing.T) {
		c := newCache(t, 10, 100)
		c.Put("a", px(10)) // 40
		c.Put("b", px(10)) // 80
		c.Put("c", px(10)) // 120 -> evict a

		assert.Equal(t, []string{"b", "c"}, c.Keys())
		assert.Equal(t, uint64(80), c.Status().CurrentMemoryUsage)
	})

	t.Run("OversizedEntryLeavesCacheEmpty", func(t *testing.T) {
		c := newCache(t, 10, 100)
		c.Put("small", px(5))
		c.Put("huge", px(1000))

		s := c.Status()
		assert.Zero(t, s.EntryCount)
		assert.Zero(t, s.CurrentMemoryUsage)
	})

	t.Run("ExactBudgetFits", func(t *testing.T) {
		c := newCache(t, 10, 100)
		c.Put("a", px(25))
		assert.True(t, c.Contains("a"))
		assert.InDelta(t, 100.0, c.Status().UsagePercent, 0.001)
	})

	t.Run("UnlimitedReportsZeroPercent", func(t *testing.T) {
		c := newCache(t, 10, UnlimitedMemory)
		c.Put("a", px(1_000_000))
		assert.Zero(t, c.Status().UsagePercent)
		assert.True(t, c.Contains("a"))
	})
}

func TestContainsDoesNotBump(t *testing.T) {
	c := newCache(t, 2, UnlimitedMemory)
	c.Put("A", px(1))
	c.Put("B", px(1))

	assert.True(t, c.Contains("A"))
	c.Put("C", px(1))
	assert.False(t, c.Contains("A"), "Contains must not refresh recency")
}

func TestRemoveAndClear(t *testing.T) {
	c := newCache(t, 5, UnlimitedMemory)
	c.Put("a", px(2))
	c.Put("b", px(3))

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, uint64(12), c.Status().CurrentMemoryUsage)

	c.Clear()
	s := c.Status()
	assert.Zero(t, s.EntryCount)
	assert.Zero(t, s.CurrentMemoryUsage)
	assert.Empty(t, c.Keys())

	c.Put("c", px(1))
	assert.Equal(t, 1, c.Len())
}

func TestEntriesSnapshot(t *testing.T) {
	c := newCache(t, 5, UnlimitedMemory)
	c.Put("a", img{2, 3})
	c.Put("b", img{1, 1})
	c.Get("a")

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Key)
	assert.Equal(t, "a", entries[1].Key)
	assert.Equal(t, uint64(24), entries[1].ApproxBytes)
	assert.Equal(t, 2, entries[1].Width)
	assert.Greater(t, entries[1].RecencyRank, entries[0].RecencyRank)
}

type fakeMetrics struct {
	mu                    sync.Mutex
	hits, misses, evicted int
	evictedBytes          uint64
	entries               int
	bytes                 uint64
}

func (m *fakeMetrics) ObserveHit()  { m.mu.Lock(); m.hits++; m.mu.Unlock() }
func (m *fakeMetrics) ObserveMiss() { m.mu.Lock(); m.misses++; m.mu.Unlock() }
func (m *fakeMetrics) ObserveEviction(b uint64) {
	m.mu.Lock()
	m.evicted++
	m.evictedBytes += b
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordUsage(entries int, bytes uint64) {
	m.mu.Lock()
	m.entries, m.bytes = entries, bytes
	m.mu.Unlock()
}

func TestMetricsHook(t *testing.T) {
	m := &fakeMetrics{}
	c, err := New(Config{MaxEntries: 1}, WithMetrics(m))
	require.NoError(t, err)

	c.Put("a", px(2))
	c.Get("a")
	c.Get("zz")
	c.Put("b", px(3))

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.evicted)
	assert.Equal(t, uint64(8), m.evictedBytes)
	assert.Equal(t, 1, m.entries)
	assert.Equal(t, uint64(12), m.bytes)
}

func TestConcurrentAccess(t *testing.T) {
	c := newCache(t, 16, 4096)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%40)
				c.Put(key, px(i%50+1))
				c.Get(key)
				if i%17 == 0 {
					c.Remove(key)
				}
			}
		}(g)
	}
	wg.Wait()

	s := c.Status()
	assert.LessOrEqual(t, s.EntryCount, 16)
	assert.LessOrEqual(t, s.CurrentMemoryUsage, uint64(4096))

	var sum uint64
	for _, e := range c.Entries() {
		sum += e.ApproxBytes
	}
	assert.Equal(t, s.CurrentMemoryUsage, sum)
}
