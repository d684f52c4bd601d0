// Package skiplist implements a lock-free concurrent skip list over an
// arena, keyed by internal key. Keys and values are immutable once added;
// there is no delete — higher-level code (the memtable) models deletion as
// a tombstone entry that shadows older versions of the same user key.
package skiplist

import (
	"errors"
	"math"
	"unsafe"

	"keelson/internal/arch"
	"keelson/internal/arena"
	"keelson/internal/base"
	"keelson/internal/compare"
	"keelson/internal/fastrand"
)

const (
	NodeAlignment = uint(unsafe.Sizeof(arch.UintToArchSize(0)))
	NodeSize      = uint(unsafe.Sizeof(node{}))
	LinkSize      = uint(unsafe.Sizeof(links{}))
	MaxHeight     = uint(20)
	pValue        = 1 / math.E
)

var probabilities [MaxHeight]uint32

func init() {
	// Precompute the skiplist probabilities so that only a single random
	// number needs to be generated, using the optimal pvalue (inverse of
	// Euler's number).
	p := 1.0
	for i := uint(0); i < MaxHeight; i++ {
		probabilities[i] = uint32(float64(math.MaxUint32) * p)
		p *= pValue
	}
}

var (
	ErrNoBuffer     = errors.New("skiplist does not have an arena")
	ErrBufferFull   = arena.ErrArenaFull
	ErrRecordExists = errors.New("record with this key already exists")
)

// Skiplist is a fast, concurrent skip list supporting forward and backward
// iteration. Keys and values are immutable once added, and deletion is not
// supported.
type Skiplist struct {
	arena   *arena.Arena
	head    *node
	tail    *node
	height  arch.AtomicUint // Current height. 1 <= height <= MaxHeight. CAS.
	compare compare.Compare
}

// New allocates a fresh arena of the given size and builds a Skiplist over
// it.
func New(size uint, compare compare.Compare) *Skiplist {
	skl := &Skiplist{
		compare: compare,
		arena:   arena.WithOverflow(size, NodeSize),
	}
	_ = skl.Reset()
	return skl
}

// NewFromArena builds a Skiplist over an arena the caller already owns.
func NewFromArena(a *arena.Arena, compare compare.Compare) (*Skiplist, error) {
	skl := &Skiplist{
		compare: compare,
		arena:   a,
	}
	if err := skl.Reset(); err != nil {
		return nil, err
	}
	return skl, nil
}

// Reset reinitializes the skip list over its arena's current contents,
// discarding any existing entries.
func (s *Skiplist) Reset() error {
	if s.arena == nil {
		return ErrNoBuffer
	}
	s.arena.Reset()

	head := s.newEmptyNode()
	tail := s.newEmptyNode()

	headOffset := s.arena.GetPointerOffset(unsafe.Pointer(head))
	tailOffset := s.arena.GetPointerOffset(unsafe.Pointer(tail))
	for i := uint(0); i < MaxHeight; i++ {
		head.tower[i].next.Store(arch.UintToArchSize(tailOffset))
		tail.tower[i].prev.Store(arch.UintToArchSize(headOffset))
	}

	s.head = head
	s.tail = tail
	s.height.Store(1)

	return nil
}

// inserter holds the per-level splices findSplice computes for a single Add;
// Add builds a fresh one on every call, so nothing carries over between
// Adds.
type inserter struct {
	height  uint
	splices [MaxHeight]splice
}

// Add adds a new key if it does not yet exist. If the key already exists,
// Add returns ErrRecordExists. If there isn't enough room in the arena, Add
// returns ErrBufferFull.
func (s *Skiplist) Add(key base.InternalKey, value []byte) error {
	var ins inserter
	if s.findSplice(key, &ins) {
		return ErrRecordExists
	}

	nd, height, err := s.newNode(key, value)
	if err != nil {
		return err
	}

	ndOffset := s.arena.GetPointerOffset(unsafe.Pointer(nd))

	// Insert from the base level up: once a node exists at the base level,
	// it can't be re-created at a level above without having first been
	// discovered there.
	var found bool
	var invalidateSplice bool
	for i := 0; i < int(height); i++ {
		prev := ins.splices[i].prev
		next := ins.splices[i].next

		if prev == nil {
			if next != nil {
				panic("next is expected to be nil, since prev is nil")
			}
			prev = s.head
			next = s.tail
		}

		for {
			prevOffset := s.arena.GetPointerOffset(unsafe.Pointer(prev))
			nextOffset := s.arena.GetPointerOffset(unsafe.Pointer(next))
			nd.tower[i].prev.Store(arch.UintToArchSize(prevOffset))
			nd.tower[i].next.Store(arch.UintToArchSize(nextOffset))

			nextPrevOffset := next.prevOffset(i)
			if nextPrevOffset != prevOffset {
				prevNextOffset := prev.nextOffset(i)
				if prevNextOffset == nextOffset {
					next.prevOffsetCAS(i, nextPrevOffset, prevOffset)
				}
			}

			if prev.nextOffsetCAS(i, nextOffset, ndOffset) {
				next.prevOffsetCAS(i, prevOffset, ndOffset)
				break
			}

			// CAS failed; recompute prev/next for this level and retry.
			prev, next, found = s.findSpliceForLevel(key, i, prev)
			if found {
				if i != 0 {
					panic("how can another thread have inserted a node at a non-base level?")
				}
				return ErrRecordExists
			}
			invalidateSplice = true
		}
	}

	if invalidateSplice {
		ins.height = 0
	} else {
		for i := uint(0); i < height; i++ {
			ins.splices[i].prev = nd
		}
	}

	return nil
}

// Height returns the tallest tower among all nodes ever allocated.
func (s *Skiplist) Height() uint {
	return uint(s.height.Load())
}

// Len returns the number of bytes allocated from the arena so far.
func (s *Skiplist) Len() uint {
	return s.arena.Len()
}

// Cap returns the arena's usable capacity in bytes.
func (s *Skiplist) Cap() uint {
	return s.arena.Cap()
}

// Arena returns the arena backing this skip list.
func (s *Skiplist) Arena() *arena.Arena {
	return s.arena
}

func (s *Skiplist) newEmptyNode() *node {
	nodeOffset, err := s.arena.Allocate(NodeSize, NodeAlignment)
	if err != nil {
		panic("arena is not large enough to hold the head/tail sentinel nodes")
	}

	nd := (*node)(s.arena.GetPointer(nodeOffset))
	nd.keyTrailer = 0
	nd.keyOffset = 0
	nd.keySize = 0
	nd.valSize = 0

	return nd
}

func (s *Skiplist) newNode(key base.InternalKey, value []byte) (nd *node, height uint, err error) {
	rnd := fastrand.Uint32()

	height = uint(1)
	for height < MaxHeight && rnd <= probabilities[height] {
		height++
	}

	keySize := uint(len(key.UserKey))
	valueSize := uint(len(value))
	truncated := NodeSize - (MaxHeight-height)*LinkSize
	totalSize := truncated + keySize + valueSize

	nodeOffset, err := s.arena.Allocate(totalSize, NodeAlignment)
	if err != nil {
		return nil, 0, ErrBufferFull
	}

	nd = (*node)(s.arena.GetPointer(nodeOffset))
	nd.keyOffset = nodeOffset + truncated
	nd.keySize = keySize
	nd.valSize = valueSize
	nd.keyTrailer = key.Trailer

	copy(nd.getKey(s.arena), key.UserKey)
	copy(nd.getValue(s.arena), value)

	listHeight := s.Height()
	for height > listHeight {
		if s.height.CompareAndSwap(arch.UintToArchSize(listHeight), arch.UintToArchSize(height)) {
			break
		}
		listHeight = s.Height()
	}

	return
}

func (s *Skiplist) findSplice(key base.InternalKey, ins *inserter) (found bool) {
	listHeight := s.Height()
	var level int

	prev := s.head
	if ins.height < listHeight {
		ins.height = listHeight
		level = int(ins.height)
	} else {
		for ; level < int(listHeight); level++ {
			spl := &ins.splices[level]
			if s.getNext(spl.prev, level) != spl.next {
				continue
			}
			if spl.prev != s.head && !s.keyIsAfterNode(spl.prev, key) {
				level = int(listHeight)
				break
			}
			if spl.next != s.tail && s.keyIsAfterNode(spl.next, key) {
				level = int(listHeight)
				break
			}
			prev = spl.prev
			break
		}
	}

	for level = level - 1; level >= 0; level-- {
		var next *node
		prev, next, found = s.findSpliceForLevel(key, level, prev)
		if next == nil {
			next = s.tail
		}
		ins.splices[level].prev = prev
		ins.splices[level].next = next
	}

	return
}

func (s *Skiplist) findSpliceForLevel(
	key base.InternalKey, level int, start *node,
) (prev, next *node, found bool) {
	prev = start

	for {
		next = s.getNext(prev, level)
		if next == s.tail {
			break
		}

		nextKey := s.arena.GetBytes(next.keyOffset, next.keySize)
		cmp := s.compare(key.UserKey, nextKey)
		if cmp < 0 {
			break
		}
		if cmp == 0 {
			if key.Trailer == next.keyTrailer {
				found = true
				break
			}
			if key.Trailer > next.keyTrailer {
				break
			}
		}

		prev = next
	}

	return
}

func (s *Skiplist) keyIsAfterNode(nd *node, key base.InternalKey) bool {
	ndKey := s.arena.GetBytes(nd.keyOffset, nd.keySize)
	cmp := s.compare(ndKey, key.UserKey)
	if cmp < 0 {
		return true
	}
	if cmp > 0 {
		return false
	}
	if key.Trailer == nd.keyTrailer {
		return false
	}
	return key.Trailer < nd.keyTrailer
}

func (s *Skiplist) getNext(nd *node, h int) *node {
	offset := nd.tower[h].next.Load()
	return (*node)(s.arena.GetPointer(uint(offset)))
}

func (s *Skiplist) getPrev(nd *node, h int) *node {
	offset := nd.tower[h].prev.Load()
	return (*node)(s.arena.GetPointer(uint(offset)))
}
