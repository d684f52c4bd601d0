package sstable

import (
	"bytes"

	"keelson/internal/block"
)

// Iterator streams an opened table as one ordered sequence of internal
// keys, nesting a data-block iterator inside an index iterator (C5). It is
// not safe for concurrent use; separate Iterators over the same Reader are
// safe to use concurrently with each other.
type Iterator struct {
	r   *Reader
	idx *block.Iterator

	dataBlock   *block.Reader
	dataIt      *block.Iterator
	dataRelease func()
	dataHandle  []byte // memoized index value bytes the current data block was built from

	err error
}

// NewIterator returns an iterator over r, positioned before the first
// entry.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r, idx: r.index.NewIterator()}
}

// Key returns the current entry's encoded internal key (UserKey || trailer).
// Valid must be true.
func (it *Iterator) Key() []byte { return it.dataIt.Key() }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() []byte { return it.dataIt.Value() }

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.dataIt != nil && it.dataIt.Valid() }

// Error surfaces the first non-nil status encountered by either the index
// iterator or a data iterator.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.idx.Error() != nil {
		return it.idx.Error()
	}
	if it.dataIt != nil {
		return it.dataIt.Error()
	}
	return nil
}

func (it *Iterator) releaseData() {
	if it.dataRelease != nil {
		it.dataRelease()
		it.dataRelease = nil
	}
	it.dataBlock = nil
	it.dataIt = nil
}

// loadDataBlockFromIndex (re)loads the data block the index iterator
// currently points at, reusing the existing block unchanged if the index
// value is byte-identical to the one last used (the memoization §4.5 calls
// for). It does not position the data iterator; callers do that.
func (it *Iterator) loadDataBlockFromIndex() {
	if !it.idx.Valid() {
		it.releaseData()
		it.dataHandle = nil
		return
	}
	handleBytes := it.idx.Value()
	if it.dataBlock != nil && bytes.Equal(handleBytes, it.dataHandle) {
		return
	}

	handle, _, err := DecodeBlockHandle(handleBytes)
	if err != nil {
		it.err = err
		it.releaseData()
		return
	}
	br, release, err := it.r.readDataBlock(handle)
	if err != nil {
		it.err = err
		it.releaseData()
		return
	}
	it.releaseData()
	it.dataBlock = br
	it.dataRelease = release
	it.dataHandle = append(it.dataHandle[:0], handleBytes...)
}

// skipEmptyForward advances the index iterator forward past any data blocks
// that turn out to hold no entries, positioning the final data iterator at
// its first entry.
func (it *Iterator) skipEmptyForward() {
	for it.dataIt == nil || !it.dataIt.Valid() {
		if it.dataIt != nil {
			if err := it.dataIt.Error(); err != nil {
				it.err = err
				return
			}
		}
		it.idx.Next()
		it.loadDataBlockFromIndex()
		if it.dataBlock == nil {
			it.dataIt = nil
			return
		}
		it.dataIt = it.dataBlock.NewIterator()
		it.dataIt.SeekToFirst()
	}
}

// skipEmptyBackward is skipEmptyForward's mirror for backward iteration.
func (it *Iterator) skipEmptyBackward() {
	for it.dataIt == nil || !it.dataIt.Valid() {
		if it.dataIt != nil {
			if err := it.dataIt.Error(); err != nil {
				it.err = err
				return
			}
		}
		it.idx.Prev()
		it.loadDataBlockFromIndex()
		if it.dataBlock == nil {
			it.dataIt = nil
			return
		}
		it.dataIt = it.dataBlock.NewIterator()
		it.dataIt.SeekToLast()
	}
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.idx.SeekToFirst()
	it.loadDataBlockFromIndex()
	if it.dataBlock == nil {
		it.dataIt = nil
		return
	}
	it.dataIt = it.dataBlock.NewIterator()
	it.dataIt.SeekToFirst()
	it.skipEmptyForward()
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.idx.SeekToLast()
	it.loadDataBlockFromIndex()
	if it.dataBlock == nil {
		it.dataIt = nil
		return
	}
	it.dataIt = it.dataBlock.NewIterator()
	it.dataIt.SeekToLast()
	it.skipEmptyBackward()
}

// Seek positions the iterator at the first entry whose encoded internal key
// is >= target.
func (it *Iterator) Seek(target []byte) {
	it.idx = it.r.index.SeekToKey(target, it.r.opts.Comparator.CompareEncoded)
	it.loadDataBlockFromIndex()
	if it.dataBlock == nil {
		it.dataIt = nil
		return
	}
	it.dataIt = it.dataBlock.SeekToKey(target, it.r.opts.Comparator.CompareEncoded)
	it.skipEmptyForward()
}

// Next advances to the following entry.
func (it *Iterator) Next() {
	if it.dataIt == nil {
		return
	}
	it.dataIt.Next()
	it.skipEmptyForward()
}

// Prev moves to the preceding entry.
func (it *Iterator) Prev() {
	if it.dataIt == nil {
		return
	}
	it.dataIt.Prev()
	it.skipEmptyBackward()
}

// Close releases the current data block's cache handle, if any.
func (it *Iterator) Close() error {
	it.releaseData()
	return it.err
}
