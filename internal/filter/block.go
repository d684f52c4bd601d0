package filter

import (
	"keelson/internal/coding"
	"keelson/internal/status"
)

// BaseLg is the log2 of the byte range each per-range filter covers: 1<<11 =
// 2 KiB, matching leveldb's default filter_block granularity.
const BaseLg = 11

// BlockBuilder accumulates keys into per-range filters as data blocks are
// written, producing the filter block format described in §4.4:
//
//	filter_0 || ... || filter_K || u32 offset_0 || ... || u32 offset_K ||
//	u32 offset_to_offsets_array || u8 base_lg
//
// Filter i covers all keys added between the StartBlock calls that bracket
// data-block byte offsets [i<<base_lg, (i+1)<<base_lg).
type BlockBuilder struct {
	policy Policy

	filters [][]byte // one entry per range, completed filters
	pending [][]byte // keys accumulated for the range not yet flushed
}

// NewBlockBuilder constructs a filter block builder using policy.
func NewBlockBuilder(policy Policy) *BlockBuilder {
	return &BlockBuilder{policy: policy}
}

// StartBlock is called with the byte offset a new data block begins at. It
// materializes filters for any byte ranges fully covered by offsets seen so
// far, including empty ranges (so filter index i always exists for any data
// block whose offset falls in range i).
func (b *BlockBuilder) StartBlock(blockOffset int64) {
	targetRange := int(blockOffset >> BaseLg)
	for targetRange > len(b.filters) {
		b.generateFilter()
	}
}

// AddKey records key as belonging to the range currently being
// accumulated (the one StartBlock most recently opened).
func (b *BlockBuilder) AddKey(key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)
	b.pending = append(b.pending, cp)
}

func (b *BlockBuilder) generateFilter() {
	if len(b.pending) == 0 {
		b.filters = append(b.filters, []byte{})
		return
	}
	b.filters = append(b.filters, b.policy.CreateFilter(b.pending))
	b.pending = b.pending[:0]
}

// Finish flushes any pending range and serializes the complete filter
// block. The caller is responsible for never compressing it (§4.4: "trailer
// compression = None").
func (b *BlockBuilder) Finish() []byte {
	if len(b.pending) > 0 {
		b.generateFilter()
	}

	var buf []byte
	offsets := make([]uint32, len(b.filters))
	for i, f := range b.filters {
		offsets[i] = uint32(len(buf))
		buf = append(buf, f...)
	}
	offsetArrayStart := uint32(len(buf))
	for _, off := range offsets {
		buf = coding.PutFixed32(buf, off)
	}
	buf = coding.PutFixed32(buf, offsetArrayStart)
	buf = append(buf, byte(BaseLg))
	return buf
}

// Reader answers KeyMayMatch queries against a parsed filter block.
type Reader struct {
	policy  Policy
	data    []byte
	offsets []byte // the raw offset array, num*4 bytes
	num     int
	baseLg  byte
}

// NewReader parses a filter block previously produced by BlockBuilder.
func NewReader(policy Policy, data []byte) (*Reader, error) {
	if len(data) < 5 {
		return nil, status.New(status.Corruption, "filter: block too short")
	}
	baseLg := data[len(data)-1]
	offsetArrayStart := coding.GetFixed32(data[len(data)-5 : len(data)-1])
	if int(offsetArrayStart) > len(data)-5 {
		return nil, status.New(status.Corruption, "filter: offset array start out of range")
	}
	n := (len(data) - 5 - int(offsetArrayStart)) / 4
	return &Reader{
		policy:  policy,
		data:    data[:offsetArrayStart],
		offsets: data[offsetArrayStart : len(data)-5],
		num:     n,
		baseLg:  baseLg,
	}, nil
}

// KeyMayMatch reports whether key might be present among the keys recorded
// for the data block starting at blockOffset.
func (r *Reader) KeyMayMatch(blockOffset int64, key []byte) bool {
	idx := int(blockOffset >> r.baseLg)
	if idx >= r.num {
		// No filter was ever generated for this range; fail open rather
		// than incorrectly reporting "definitely absent".
		return true
	}
	start := coding.GetFixed32(r.offsets[idx*4:])
	var end uint32
	if idx+1 < r.num {
		end = coding.GetFixed32(r.offsets[(idx+1)*4:])
	} else {
		end = uint32(len(r.data))
	}
	if start > end || end > uint32(len(r.data)) {
		return true
	}
	filter := r.data[start:end]
	if len(filter) == 0 {
		return false
	}
	return r.policy.KeyMayMatch(key, filter)
}
