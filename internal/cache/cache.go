// Package cache implements the sharded, reference-counted LRU cache (C7):
// a fixed number of independently-locked shards, each a chained hash table
// plus the classic "refs==1 lives in lru, refs>=2 lives in in_use"
// two-list design from leveldb's cache.cc.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const numShards = 16

// Deleter is invoked exactly once, when an entry's reference count drops to
// zero after having been erased (or evicted) from the cache. It must not
// call back into the cache that owns the entry.
type Deleter func(key []byte, value []byte)

// entry is a single cached item. Allocation is conceptually a single
// variable-length block in the original; a Go port keeps key and value as
// separate slices for simplicity and lets the GC reclaim them once the
// refcount based linked-list unlinking is done.
type entry struct {
	key     []byte
	hash    uint64
	value   []byte
	charge  int
	deleter Deleter

	refs     int32
	inCache  bool
	next     *entry // lru/in_use list link
	prev     *entry
	hashNext *entry // hash-bucket chain link
}

// shard is one independently-locked partition of the cache.
type shard struct {
	mu sync.Mutex

	table  []*entry // hash buckets, power-of-two length
	elems  int
	usage  int64
	cap    int64

	lruHead, lruTail       entry // sentinels; refs == 1 (cache-only)
	inUseHead, inUseTail   entry // sentinels; refs >= 2 (externally referenced)
}

func newShard(capacity int64) *shard {
	s := &shard{table: make([]*entry, 16), cap: capacity}
	s.lruHead.next, s.lruHead.prev = &s.lruTail, &s.lruTail
	s.lruTail.next, s.lruTail.prev = &s.lruHead, &s.lruHead
	s.inUseHead.next, s.inUseHead.prev = &s.inUseTail, &s.inUseTail
	s.inUseTail.next, s.inUseTail.prev = &s.inUseHead, &s.inUseHead
	return s
}

// Cache is a sharded LRU cache of decoded blocks and open tables, keyed by
// arbitrary byte-string keys (callers namespace their own key space, e.g.
// with NewId()).
type Cache struct {
	shards  [numShards]*shard
	idMu    sync.Mutex
	nextID  uint64
}

// New constructs a Cache with the given total capacity, split evenly across
// shards with each shard's share rounded up. A capacity of 0 disables
// caching: Insert still returns a valid handle, but nothing is retained past
// the final Release.
func New(capacity int64) *Cache {
	c := &Cache{}
	perShard := (capacity + numShards - 1) / numShards
	for i := range c.shards {
		c.shards[i] = newShard(perShard)
	}
	return c
}

// NewId hands out a process-unique 64-bit identifier for namespacing cache
// keys, guarded by a dedicated mutex distinct from any shard's.
func (c *Cache) NewId() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.nextID++
	return c.nextID
}

func (c *Cache) shardFor(key []byte) *shard {
	h := xxhash.Sum64(key)
	return c.shards[h>>(64-4)] // top 4 bits select one of 16 shards
}

// Handle is a caller's reference to a cached entry. The zero Handle is not
// valid; every Handle returned by Insert or Lookup must eventually be
// released exactly once via Release.
type Handle struct {
	s *shard
	e *entry
}

// Value returns the handle's cached value. Valid until Release.
func (h Handle) Value() []byte { return h.e.value }

// Release drops the caller's reference. If the entry has been erased and
// this was the last reference, its deleter fires.
func (h Handle) Release() {
	h.s.release(h.e)
}

// Insert adds (key, value) with the given charge against the shard's
// capacity, returning a handle holding one of the entry's two initial
// references (the other belongs to the cache itself). If a previous entry
// existed under key, it is unlinked and its reference dropped — firing its
// deleter if that was its last reference.
func (c *Cache) Insert(key, value []byte, charge int, deleter Deleter) Handle {
	s := c.shardFor(key)
	h := xxhash.Sum64(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{key: append([]byte{}, key...), hash: h, value: value, charge: int(charge), deleter: deleter, refs: 2, inCache: true}
	s.insertInUse(e)

	if old := s.tableLookup(h, key); old != nil {
		s.tableRemove(old)
		s.unlink(old)
		old.inCache = false
		s.usage -= int64(old.charge)
		s.derefLocked(old)
	}
	s.tableInsert(e)
	s.usage += int64(e.charge)

	for s.usage > s.cap && s.lruHead.next != &s.lruTail {
		victim := s.lruHead.next
		s.evictLocked(victim)
	}

	return Handle{s: s, e: e}
}

// Lookup returns a handle with one additional reference to the entry stored
// under key, or ok=false if no entry exists. A first external reference
// promotes the entry from the lru list to in_use.
func (c *Cache) Lookup(key []byte) (h Handle, ok bool) {
	s := c.shardFor(key)
	hv := xxhash.Sum64(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.tableLookup(hv, key)
	if e == nil {
		return Handle{}, false
	}
	if atomic.AddInt32(&e.refs, 1) == 2 {
		// First external ref: move lru -> in_use.
		s.unlink(e)
		s.insertInUse(e)
	}
	return Handle{s: s, e: e}, true
}

// Erase removes any entry stored under key from the hash table and the lru
// list. An entry still externally referenced survives until its last
// Release, at which point its deleter fires.
func (c *Cache) Erase(key []byte) {
	s := c.shardFor(key)
	h := xxhash.Sum64(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.tableLookup(h, key)
	if e == nil {
		return
	}
	s.tableRemove(e)
	if e.inCache {
		s.unlink(e)
		e.inCache = false
		s.usage -= int64(e.charge)
		s.derefLocked(e)
	}
}

// Prune drops every entry this shard set currently holds with no external
// references, returning the number of entries removed.
func (c *Cache) Prune() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for s.lruHead.next != &s.lruTail {
			victim := s.lruHead.next
			s.evictLocked(victim)
			n++
		}
		s.mu.Unlock()
	}
	return n
}

func (s *shard) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derefLocked(e)
}

// derefLocked drops one reference from e. If the reference count falls to
// 1 and the entry is still cached, it moves from in_use to the lru tail
// (most-recently-used end). If it falls to 0, the entry is already absent
// from the hash table (either erased or evicted) and its deleter fires.
func (s *shard) derefLocked(e *entry) {
	refs := atomic.AddInt32(&e.refs, -1)
	switch {
	case refs == 1 && e.inCache && s.cap <= 0:
		// Capacity 0 disables retention: drop straight out of the cache
		// instead of resting on the lru list.
		s.tableRemove(e)
		s.unlink(e)
		e.inCache = false
		s.usage -= int64(e.charge)
		s.derefLocked(e)
	case refs == 1 && e.inCache:
		s.unlink(e)
		s.insertLRU(e)
	case refs == 0:
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
}

// evictLocked removes e — which must currently be the lru list's oldest
// entry, refs == 1 — from the hash table and lru list, and drops the
// cache's own reference, firing its deleter.
func (s *shard) evictLocked(e *entry) {
	s.tableRemove(e)
	s.unlink(e)
	e.inCache = false
	s.usage -= int64(e.charge)
	s.derefLocked(e)
}

func (s *shard) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev = nil, nil
}

func (s *shard) insertLRU(e *entry) {
	e.prev = s.lruTail.prev
	e.next = &s.lruTail
	e.prev.next = e
	s.lruTail.prev = e
}

func (s *shard) insertInUse(e *entry) {
	e.prev = s.inUseTail.prev
	e.next = &s.inUseTail
	e.prev.next = e
	s.inUseTail.prev = e
}

func (s *shard) tableLookup(hash uint64, key []byte) *entry {
	bucket := s.table[hash&uint64(len(s.table)-1)]
	for e := bucket; e != nil; e = e.hashNext {
		if e.hash == hash && string(e.key) == string(key) {
			return e
		}
	}
	return nil
}

func (s *shard) tableInsert(e *entry) {
	if s.elems >= len(s.table) {
		s.resize()
	}
	idx := e.hash & uint64(len(s.table)-1)
	e.hashNext = s.table[idx]
	s.table[idx] = e
	s.elems++
}

func (s *shard) tableRemove(e *entry) {
	idx := e.hash & uint64(len(s.table)-1)
	cur := s.table[idx]
	if cur == e {
		s.table[idx] = e.hashNext
		e.hashNext = nil
		s.elems--
		return
	}
	for cur != nil {
		if cur.hashNext == e {
			cur.hashNext = e.hashNext
			e.hashNext = nil
			s.elems--
			return
		}
		cur = cur.hashNext
	}
}

// resize doubles the bucket count once elems exceeds it, rehashing every
// entry in place.
func (s *shard) resize() {
	newTable := make([]*entry, len(s.table)*2)
	mask := uint64(len(newTable) - 1)
	for _, head := range s.table {
		for e := head; e != nil; {
			next := e.hashNext
			idx := e.hash & mask
			e.hashNext = newTable[idx]
			newTable[idx] = e
			e = next
		}
	}
	s.table = newTable
}
