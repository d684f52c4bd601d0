package block

import (
	"keelson/internal/coding"
	"keelson/internal/status"
)

// Reader parses a finished block body (Builder.Finish's output, without any
// sstable trailer) and produces iterators over its records.
type Reader struct {
	data         []byte
	restarts     []byte // the raw restart-offset array, 4 bytes each
	numRestarts  int
	restartStart int // offset where the restart array begins within data
}

// NewReader parses data as a block body. It fails with a Corruption status
// if the restart count or offsets don't fit inside data.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < 4 {
		return nil, status.New(status.Corruption, "block: body too short to hold restart count")
	}
	numRestarts := int(coding.GetFixed32(data[len(data)-4:]))
	restartStart := len(data) - 4 - numRestarts*4
	if numRestarts < 0 || restartStart < 0 {
		return nil, status.New(status.Corruption, "block: restart count %d overflows body", numRestarts)
	}
	for i := 0; i < numRestarts; i++ {
		if off := int(coding.GetFixed32(data[restartStart+4*i:])); off > restartStart {
			return nil, status.New(status.Corruption, "block: restart offset %d outside body", off)
		}
	}
	return &Reader{
		data:         data,
		restarts:     data[restartStart : len(data)-4],
		numRestarts:  numRestarts,
		restartStart: restartStart,
	}, nil
}

func (r *Reader) restartOffset(i int) int {
	return int(coding.GetFixed32(r.restarts[i*4:]))
}

// record holds one decoded entry plus the offset immediately following it.
type record struct {
	key   []byte
	value []byte
	next  int
}

// decodeRecord decodes one record starting at offset, given the key
// carried over from the previous record (nil/empty at a restart point). At
// end-of-block (offset == restartStart) it returns ok=false with a nil
// error, distinguishing "no more records" from corruption.
func (r *Reader) decodeRecord(offset int, prevKey []byte) (rec record, ok bool, err error) {
	if offset == r.restartStart {
		return record{}, false, nil
	}
	if offset > r.restartStart {
		return record{}, false, status.New(status.Corruption, "block: record offset %d beyond body", offset)
	}
	p := r.data[offset:r.restartStart]

	shared, n1, err := coding.GetUvarint32(p)
	if err != nil {
		return record{}, false, status.Wrap(status.Corruption, err)
	}
	nonShared, n2, err := coding.GetUvarint32(p[n1:])
	if err != nil {
		return record{}, false, status.Wrap(status.Corruption, err)
	}
	valLen, n3, err := coding.GetUvarint32(p[n1+n2:])
	if err != nil {
		return record{}, false, status.Wrap(status.Corruption, err)
	}
	header := n1 + n2 + n3
	if int(shared) > len(prevKey) {
		return record{}, false, status.New(status.Corruption, "block: shared prefix %d exceeds previous key", shared)
	}
	need := header + int(nonShared) + int(valLen)
	if need > len(p) {
		return record{}, false, status.New(status.Corruption, "block: truncated record")
	}

	key := make([]byte, int(shared)+int(nonShared))
	copy(key, prevKey[:shared])
	copy(key[shared:], p[header:header+int(nonShared)])
	value := p[header+int(nonShared) : need]

	return record{key: key, value: value, next: offset + need}, true, nil
}

// Iterator walks a block's records in order. It is not safe for concurrent
// use; callers needing concurrent access create separate iterators over the
// same Reader.
type Iterator struct {
	r      *Reader
	start  int // offset where the current record begins
	offset int // offset immediately following the current record
	key    []byte
	value  []byte
	valid  bool
	err    error
}

// NewIterator returns an iterator positioned before the first record.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r}
}

func (it *Iterator) Valid() bool  { return it.valid }
func (it *Iterator) Error() error { return it.err }
func (it *Iterator) Key() []byte  { return it.key }
func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) setInvalid(err error) {
	it.valid = false
	it.key, it.value = nil, nil
	it.err = err
}

// SeekToFirst positions the iterator at the block's first record.
func (it *Iterator) SeekToFirst() {
	if it.r.numRestarts == 0 {
		it.setInvalid(nil)
		return
	}
	it.offset = it.r.restartOffset(0)
	it.key, it.value = nil, nil
	it.scanOneForward()
}

// SeekToLast positions the iterator at the block's last record.
func (it *Iterator) SeekToLast() {
	if it.r.numRestarts == 0 {
		it.setInvalid(nil)
		return
	}
	it.offset = it.r.restartOffset(it.r.numRestarts - 1)
	it.key, it.value = nil, nil
	it.scanOneForward()
	for it.valid {
		save := *it
		it.scanOneForward()
		if !it.valid {
			*it = save
			it.valid = true
			break
		}
	}
}

// Next advances to the following record.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	it.scanOneForward()
}

func (it *Iterator) scanOneForward() {
	rec, ok, err := it.r.decodeRecord(it.offset, it.key)
	if err != nil {
		it.setInvalid(err)
		return
	}
	if !ok {
		it.setInvalid(nil)
		return
	}
	it.start = it.offset
	it.key = rec.key
	it.value = rec.value
	it.offset = rec.next
	it.valid = true
}

// Prev moves to the preceding record: binary-search the restart array for
// the last restart offset strictly before the current record, then
// linearly scan forward from there, stopping one record short of the
// current position.
func (it *Iterator) Prev() {
	if !it.valid {
		return
	}
	target := it.start

	lo, hi := 0, it.r.numRestarts-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if it.r.restartOffset(mid) < target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	offset := it.r.restartOffset(lo)
	var prevRec record
	var prevStart int
	var havePrev bool
	var key []byte
	for offset < target {
		rec, ok, err := it.r.decodeRecord(offset, key)
		if err != nil {
			it.setInvalid(err)
			return
		}
		if !ok {
			break
		}
		prevRec = rec
		prevStart = offset
		havePrev = true
		key = rec.key
		offset = rec.next
	}
	if !havePrev {
		it.setInvalid(nil)
		return
	}
	it.start = prevStart
	it.key = prevRec.key
	it.value = prevRec.value
	it.offset = prevRec.next
	it.valid = true
}

// SeekToKey binary-searches the restart array for the last restart point
// whose key is <= target under cmp, then linearly scans forward from there
// for the first record whose key is >= target. cmp is the block's key
// comparator: an internal-key comparator for data and index blocks.
func (r *Reader) SeekToKey(target []byte, cmp func(a, b []byte) int) *Iterator {
	it := &Iterator{r: r}
	if r.numRestarts == 0 {
		it.setInvalid(nil)
		return it
	}

	lo, hi := 0, r.numRestarts-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		rec, ok, err := r.decodeRecord(r.restartOffset(mid), nil)
		if err != nil {
			it.setInvalid(err)
			return it
		}
		if !ok || cmp(rec.key, target) > 0 {
			hi = mid - 1
		} else {
			lo = mid
		}
	}

	it.offset = r.restartOffset(lo)
	for {
		start := it.offset
		rec, ok, err := r.decodeRecord(it.offset, it.key)
		if err != nil {
			it.setInvalid(err)
			return it
		}
		if !ok {
			it.setInvalid(nil)
			return it
		}
		it.start, it.key, it.value, it.offset, it.valid = start, rec.key, rec.value, rec.next, true
		if cmp(rec.key, target) >= 0 {
			return it
		}
	}
}
