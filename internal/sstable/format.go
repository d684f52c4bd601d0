// Package sstable assembles and reads the immutable on-disk sorted-string
// table: data blocks, an optional filter block, a meta-index block, an
// index block, and a fixed 48-byte footer.
package sstable

import (
	"encoding/binary"

	"keelson/internal/coding"
	"keelson/internal/status"
)

// Magic occupies the last 8 bytes of every table file, little-endian.
const Magic uint64 = 0xdb4775248b80fb57

// FooterSize is the fixed, handle-length-independent size of the footer.
const FooterSize = 48

// BlockHandle locates a block within a table file.
type BlockHandle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the handle's varint64 pair to dst.
func (h BlockHandle) EncodeTo(dst []byte) []byte {
	dst = coding.PutUvarint64(dst, h.Offset)
	dst = coding.PutUvarint64(dst, h.Size)
	return dst
}

// DecodeBlockHandle decodes a varint64 pair from the front of src, returning
// the handle and the number of bytes consumed.
func DecodeBlockHandle(src []byte) (BlockHandle, int, error) {
	offset, n1, err := coding.GetUvarint64(src)
	if err != nil {
		return BlockHandle{}, 0, status.Wrap(status.Corruption, err)
	}
	size, n2, err := coding.GetUvarint64(src[n1:])
	if err != nil {
		return BlockHandle{}, 0, status.Wrap(status.Corruption, err)
	}
	return BlockHandle{Offset: offset, Size: size}, n1 + n2, nil
}

// Footer is the fixed-size tail of every table file.
type Footer struct {
	MetaIndexHandle BlockHandle
	IndexHandle     BlockHandle
}

// EncodeTo returns the 48-byte encoding of f.
func (f Footer) EncodeTo() []byte {
	buf := make([]byte, 0, FooterSize)
	buf = f.MetaIndexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)
	if len(buf) > FooterSize-8 {
		panic("sstable: encoded handles overflow footer padding")
	}
	out := make([]byte, FooterSize)
	copy(out, buf)
	binary.LittleEndian.PutUint64(out[FooterSize-8:], Magic)
	return out
}

// DecodeFooter parses a 48-byte footer, validating the magic trailer.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) != FooterSize {
		return Footer{}, status.New(status.Corruption, "sstable: footer must be %d bytes, got %d", FooterSize, len(data))
	}
	magic := binary.LittleEndian.Uint64(data[FooterSize-8:])
	if magic != Magic {
		return Footer{}, status.New(status.NotSupported, "sstable: not an sstable (bad magic %#x)", magic)
	}
	metaIndex, n1, err := DecodeBlockHandle(data)
	if err != nil {
		return Footer{}, err
	}
	indexHandle, _, err := DecodeBlockHandle(data[n1:])
	if err != nil {
		return Footer{}, err
	}
	return Footer{MetaIndexHandle: metaIndex, IndexHandle: indexHandle}, nil
}
