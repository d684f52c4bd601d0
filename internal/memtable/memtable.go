// Package memtable implements the concurrent, arena-backed ordered map
// writes land in before they're flushed to an sstable (§4.6/C6). It wraps a
// skiplist.Skiplist the way leveldb's MemTable wraps a SkipList<const
// char*, KeyComparator>, but stores the arena allocation's key/value split
// on the node itself instead of a single length-prefixed blob, since
// skiplist.Skiplist already performs exactly the "one arena allocation per
// entry" the original's EncodeKey does.
package memtable

import (
	"sync"
	"sync/atomic"

	"keelson/internal/arena"
	"keelson/internal/base"
	"keelson/internal/compare"
	"keelson/internal/skiplist"
	"keelson/internal/status"
)

// MemTable is a single generation of in-memory writes. Once full, it is
// marked read-only and handed off for flushing to an sstable; subsequent
// writes go to a newly constructed MemTable.
type MemTable struct {
	skl       *skiplist.Skiplist
	cmp       compare.UserComparator
	readOnly  atomic.Bool
	writers   sync.WaitGroup
	flushOnce sync.Once
}

// New constructs an empty MemTable backed by an arena of the given size.
func New(size uint, cmp compare.UserComparator) *MemTable {
	return &MemTable{
		skl: skiplist.New(size, cmp.Compare),
		cmp: cmp,
	}
}

// Add inserts (userKey, value) at seqNum with the given kind. It fails with
// a Corruption status if an entry with the same userKey, seqNum and kind
// already exists —
// the caller is expected to never reuse a sequence number — and with a
// NotSupported status once the table has been marked read-only for flush.
func (m *MemTable) Add(seqNum base.SeqNum, kind base.InternalKeyKind, userKey, value []byte) error {
	if m.readOnly.Load() {
		return status.New(status.NotSupported, "memtable: table is read-only and pending flush")
	}
	m.writers.Add(1)
	defer m.writers.Done()

	key := base.MakeInternalKey(userKey, seqNum, kind)
	err := m.skl.Add(key, value)
	switch {
	case err == nil:
		return nil
	case err == skiplist.ErrBufferFull:
		return status.Wrap(status.NotSupported, ErrMemtableFull)
	case err == skiplist.ErrRecordExists:
		return status.New(status.Corruption, "memtable: sequence number %d reused for key %q", seqNum, userKey)
	default:
		return status.Wrap(status.IOError, err)
	}
}

// Get looks up the newest value for userKey visible at or below seqNum.
// found is false if userKey is not present in this memtable at any visible
// sequence number (the caller should keep searching older memtables or
// sstables). When found is true, kind distinguishes a live Put from a
// Delete tombstone — a tombstone is a definitive "not present" answer that
// must not fall through to older sources. For a tombstone, value is nil.
func (m *MemTable) Get(userKey []byte, seqNum base.SeqNum) (value []byte, kind base.InternalKeyKind, found bool) {
	var it skiplist.Iterator
	it.Init(m.skl)
	it.SeekGE(base.LookupKey(userKey, seqNum))
	if !it.Valid() {
		return nil, 0, false
	}
	if m.cmp.Compare(it.Key().UserKey, userKey) != 0 {
		return nil, 0, false
	}
	if it.Key().Kind() == base.InternalKeyKindDelete {
		return nil, base.InternalKeyKindDelete, true
	}
	return it.Value(), it.Key().Kind(), true
}

// Empty reports whether any entries have been added.
func (m *MemTable) Empty() bool {
	var it skiplist.Iterator
	it.Init(m.skl)
	it.First()
	return !it.Valid()
}

// Size returns the number of bytes consumed from the backing arena.
func (m *MemTable) Size() uint {
	return m.skl.Len()
}

// ApproximateMemoryUsage is an alias for Size kept for callers that think of
// the memtable in terms of a flush-size threshold rather than arena
// bookkeeping.
func (m *MemTable) ApproximateMemoryUsage() uint {
	return m.skl.Len()
}

// ShouldFlush reports whether the memtable has grown beyond the given
// threshold.
func (m *MemTable) ShouldFlush(threshold uint) bool {
	return m.skl.Len() >= threshold
}

// MarkReadOnly flips the memtable into read-only mode, rejecting further
// Adds, and waits for any in-flight writers to finish before returning —
// safe to call concurrently, idempotent.
func (m *MemTable) MarkReadOnly() {
	m.flushOnce.Do(func() {
		m.readOnly.Store(true)
		m.writers.Wait()
	})
}

// NewFlushIterator returns an iterator over every entry in ascending
// internal-key order, the order a flush to sstable needs (builder.Add
// requires strictly increasing keys).
func (m *MemTable) NewFlushIterator() *skiplist.Iterator {
	it := &skiplist.Iterator{}
	it.Init(m.skl)
	it.First()
	return it
}

// ReleaseArena returns the backing arena to the caller, e.g. to recycle it
// into a fresh MemTable via NewWithArena. The memtable must not be used
// afterward.
func (m *MemTable) ReleaseArena() *arena.Arena {
	return m.skl.Arena()
}

// NewWithArena constructs an empty MemTable over an arena a caller already
// owns — typically one just released from a flushed generation via
// ReleaseArena — instead of allocating a fresh one. a's contents are
// discarded.
func NewWithArena(a *arena.Arena, cmp compare.UserComparator) (*MemTable, error) {
	skl, err := skiplist.NewFromArena(a, cmp.Compare)
	if err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	return &MemTable{skl: skl, cmp: cmp}, nil
}

// ErrMemtableFull is the underlying sentinel wrapped into a NotSupported
// status when an Add doesn't fit in the remaining arena space — the signal
// the façade uses to decide it's time to rotate in a fresh memtable and
// flush this one.
var ErrMemtableFull = memtableFullError{}

type memtableFullError struct{}

func (memtableFullError) Error() string { return "memtable: arena is full" }
