package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S4: a cache with capacity 16 and three inserts of charge 1: each initial
// handle has refcount 2; one Release each leaves refcount 1 in lru; a
// subsequent Lookup promotes to in_use; cache destruction invokes each
// deleter exactly once.
func TestScenarioS4(t *testing.T) {
	c := New(16)
	var deleted [][]byte

	var handles []Handle
	for _, k := range []string{"a", "b", "c"} {
		h := c.Insert([]byte(k), []byte(k+"-value"), 1, func(key, value []byte) {
			deleted = append(deleted, append([]byte{}, key...))
		})
		handles = append(handles, h)
	}

	for _, h := range handles {
		require.EqualValues(t, 2, h.e.refs)
	}

	for _, h := range handles {
		h.Release()
	}
	for _, h := range handles {
		require.EqualValues(t, 1, h.e.refs)
	}

	h2, ok := c.Lookup([]byte("b"))
	require.True(t, ok)
	require.EqualValues(t, 2, h2.e.refs)
	h2.Release()

	for _, k := range []string{"a", "b", "c"} {
		c.Erase([]byte(k))
	}
	require.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, deleted)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	// 32 split across 16 shards gives each shard capacity 2; "a", "f" and
	// "k1" all hash to the same shard.
	c := New(32)
	var evicted []string

	deleter := func(key, value []byte) { evicted = append(evicted, string(key)) }

	h1 := c.Insert([]byte("a"), []byte("1"), 1, deleter)
	h2 := c.Insert([]byte("f"), []byte("2"), 1, deleter)
	h1.Release()
	h2.Release()

	// Both at refcount 1 in lru, "a" is older. A third insert pushes the
	// shard's usage to 3 > its capacity 2, evicting "a".
	h3 := c.Insert([]byte("k1"), []byte("3"), 1, deleter)
	defer h3.Release()

	require.Equal(t, []string{"a"}, evicted)
	_, ok := c.Lookup([]byte("a"))
	require.False(t, ok)
}

func TestOutstandingHandleSurvivesEviction(t *testing.T) {
	// Capacity 1 rounds up to 1 per shard; "a", "f" and "k1" all hash to
	// the same shard.
	c := New(1)
	var evicted []string
	deleter := func(key, value []byte) { evicted = append(evicted, string(key)) }

	h1 := c.Insert([]byte("a"), []byte("1"), 1, deleter)
	// h1 is still held (refcount 2); inserting "f" should not evict "a"
	// since "a" never enters the lru list while referenced.
	h2 := c.Insert([]byte("f"), []byte("2"), 1, deleter)
	defer h2.Release()

	require.Empty(t, evicted)
	h1.Release()
	// Releasing drops "a" to refs==1 in lru; it's now over capacity (usage
	// 2 > cap 1) and should be evicted on its own release path... but
	// eviction only runs from Insert, so "a" simply rests in lru until the
	// next Insert triggers the over-capacity sweep.
	require.Empty(t, evicted)

	c.Insert([]byte("k1"), []byte("3"), 1, deleter).Release()
	require.Contains(t, evicted, "a")
}

func TestZeroCapacityDisablesRetention(t *testing.T) {
	c := New(0)
	var deleted []string
	h := c.Insert([]byte("a"), []byte("1"), 1, func(key, value []byte) {
		deleted = append(deleted, string(key))
	})
	require.Empty(t, deleted)
	h.Release()
	require.Equal(t, []string{"a"}, deleted)

	_, ok := c.Lookup([]byte("a"))
	require.False(t, ok)
}

func TestNewIdIsMonotonicAndUnique(t *testing.T) {
	c := New(16)
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		id := c.NewId()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestPruneRemovesUnreferencedEntries(t *testing.T) {
	c := New(16)
	c.Insert([]byte("a"), []byte("1"), 1, nil).Release()
	c.Insert([]byte("b"), []byte("2"), 1, nil).Release()
	held := c.Insert([]byte("c"), []byte("3"), 1, nil)
	defer held.Release()

	n := c.Prune()
	require.Equal(t, 2, n)

	_, ok := c.Lookup([]byte("a"))
	require.False(t, ok)
	_, ok = c.Lookup([]byte("c"))
	require.True(t, ok)
}

func TestBlockCacheAdapterRoundTrip(t *testing.T) {
	adapter := BlockCacheAdapter{C: New(1 << 20)}

	release := adapter.Insert([]byte("block-0"), []byte("payload"), 7)
	defer release()

	value, ok, rel := adapter.Lookup([]byte("block-0"))
	require.True(t, ok)
	require.Equal(t, "payload", string(value))
	rel()

	_, ok, _ = adapter.Lookup([]byte("missing"))
	require.False(t, ok)
}
