package cache

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/marmos91/rankly/internal/bytesize"
)

// Any sequence of operations keeps both budgets and the memory accounting
// consistent with the resident entries.
func TestBudgetProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxEntries := rapid.IntRange(1, 8).Draw(rt, "maxEntries")
		maxMemory := rapid.Uint64Range(0, 4000).Draw(rt, "maxMemory")

		c, err := New(Config{MaxEntries: maxEntries, MaxMemoryUsage: bytesize.ByteSize(maxMemory)})
		if err != nil {
			rt.Fatalf("new: %v", err)
		}

		keys := rapid.SampledFrom([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"})
		ops := rapid.IntRange(1, 60).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			key := keys.Draw(rt, "key")
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0, 1:
				c.Put(key, img{w: rapid.IntRange(0, 30).Draw(rt, "w"), h: rapid.IntRange(0, 30).Draw(rt, "h")})
			case 2:
				c.Get(key)
			case 3:
				c.Remove(key)
			}

			s := c.Status()
			if s.EntryCount > maxEntries {
				rt.Fatalf("entry count %d exceeds %d", s.EntryCount, maxEntries)
			}
			if maxMemory > 0 && s.CurrentMemoryUsage > maxMemory {
				rt.Fatalf("memory %d exceeds %d", s.CurrentMemoryUsage, maxMemory)
			}

			var sum uint64
			entries := c.Entries()
			for _, e := range entries {
				sum += e.ApproxBytes
			}
			if sum != s.CurrentMemoryUsage {
				rt.Fatalf("accounted %d, entries sum to %d", s.CurrentMemoryUsage, sum)
			}
			if len(entries) != len(c.Keys()) {
				rt.Fatalf("map and recency list disagree")
			}
		}
	})
}

// The most recently written key survives whenever it fits the memory budget
// on its own.
func TestMostRecentSurvives(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c, _ := New(Config{MaxEntries: rapid.IntRange(1, 5).Draw(rt, "maxEntries"), MaxMemoryUsage: 1000})

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			key := rapid.StringMatching(`[a-f]`).Draw(rt, "key")
			w := rapid.IntRange(1, 250).Draw(rt, "w")
			c.Put(key, px(w))
			if !c.Contains(key) {
				rt.Fatalf("key %q of %d bytes evicted by its own insert", key, w*4)
			}
		}
	})
}
