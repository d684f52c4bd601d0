package skiplist

import "keelson/internal/base"

// Iterator walks a Skiplist's entries in key order. It is not safe for
// concurrent use by multiple goroutines, though multiple iterators may walk
// the same list concurrently with each other and with writers.
type Iterator struct {
	list *Skiplist
	nd   *node
}

// Init (re)binds it to list, positioned before the first entry.
func (it *Iterator) Init(list *Skiplist) {
	it.list = list
	it.nd = nil
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.nd != nil
}

// Key returns the current entry's internal key. Valid must be true.
func (it *Iterator) Key() base.InternalKey {
	return base.InternalKey{
		UserKey: it.nd.getKey(it.list.arena),
		Trailer: it.nd.keyTrailer,
	}
}

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() []byte {
	return it.nd.getValue(it.list.arena)
}

// Next advances to the following entry.
func (it *Iterator) Next() {
	it.setNode(it.list.getNext(it.nd, 0))
}

// Prev moves to the preceding entry.
func (it *Iterator) Prev() {
	it.setNode(it.list.getPrev(it.nd, 0))
}

// First positions the iterator at the list's first entry.
func (it *Iterator) First() {
	it.setNode(it.list.getNext(it.list.head, 0))
}

// Last positions the iterator at the list's last entry.
func (it *Iterator) Last() {
	it.setNode(it.list.getPrev(it.list.tail, 0))
}

// SeekGE positions the iterator at the first entry whose key is >= key.
func (it *Iterator) SeekGE(key base.InternalKey) {
	_, next, _ := it.list.findSpliceForLevel(key, 0, it.seekForBaseSplice(key))
	it.setNode(next)
}

// SeekLE positions the iterator at the last entry whose key is <= key.
func (it *Iterator) SeekLE(key base.InternalKey) {
	prev, next, found := it.list.findSpliceForLevel(key, 0, it.seekForBaseSplice(key))
	if found {
		it.setNode(next)
		return
	}
	it.setNode(prev)
}

// seekForBaseSplice descends from the list's current top level down to
// level 0, narrowing the search window at each level, and returns a node at
// level 0 from which a final linear scan for key can start. This avoids
// walking the entire level-0 chain from head on every seek.
func (it *Iterator) seekForBaseSplice(key base.InternalKey) *node {
	list := it.list
	prev := list.head
	for level := int(list.Height()) - 1; level > 0; level-- {
		prev, _, _ = list.findSpliceForLevel(key, level, prev)
	}
	return prev
}

// setNode positions the iterator at nd, treating the head/tail sentinels as
// "no current entry".
func (it *Iterator) setNode(nd *node) {
	if nd == it.list.head || nd == it.list.tail {
		it.nd = nil
		return
	}
	it.nd = nd
}
