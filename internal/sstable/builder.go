package sstable

import (
	"io"

	"keelson/internal/base"
	"keelson/internal/block"
	"keelson/internal/compress"
	"keelson/internal/filter"
	"keelson/internal/status"
)

// BuilderOptions configures a Builder. The zero value is not usable;
// construct via DefaultBuilderOptions.
type BuilderOptions struct {
	Comparator       base.InternalKeyComparator
	BlockSize        int
	RestartInterval  int
	Compression      compress.Type
	FilterPolicy     filter.Policy // nil disables the filter block
}

// DefaultBuilderOptions returns sensible defaults: a 4 KiB block size, a
// restart interval of 16, and no compression.
func DefaultBuilderOptions(cmp base.InternalKeyComparator) BuilderOptions {
	return BuilderOptions{
		Comparator:      cmp,
		BlockSize:       4096,
		RestartInterval: block.DefaultRestartInterval,
		Compression:     compress.TypeNone,
	}
}

// Builder assembles one sstable file: a run of data blocks, an optional
// filter block, a meta-index block, an index block, and a footer. It
// mirrors leveldb's TableBuilder — a single sticky status makes every
// method after the first failure a no-op.
type Builder struct {
	opts BuilderOptions
	w    io.Writer
	off  uint64

	dataBlock  *block.Builder
	indexBlock *block.Builder
	filterBlk  *filter.BlockBuilder

	lastKey    base.InternalKey
	haveLast   bool
	numEntries int

	pendingIndexEntry  bool
	pendingHandle      BlockHandle

	closed bool
	err    error
}

// NewBuilder wraps w (a file opened for append, positioned at offset 0)
// with a fresh table Builder.
func NewBuilder(w io.Writer, opts BuilderOptions) *Builder {
	b := &Builder{
		opts:       opts,
		w:          w,
		dataBlock:  block.NewBuilder(opts.RestartInterval),
		indexBlock: block.NewBuilder(1), // index blocks always restart every entry
	}
	if opts.FilterPolicy != nil {
		b.filterBlk = filter.NewBlockBuilder(filter.InternalPolicy{User: opts.FilterPolicy})
		b.filterBlk.StartBlock(0)
	}
	return b
}

// Add appends (key, value). key must compare strictly greater than the
// previously added key under the builder's comparator.
func (b *Builder) Add(key base.InternalKey, value []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return status.New(status.NotSupported, "sstable: builder already finished or abandoned")
	}
	if b.haveLast && b.opts.Comparator.Compare(b.lastKey, key) >= 0 {
		return b.fail(status.New(status.InvalidArgument, "sstable: keys must be added in strictly increasing order"))
	}

	if b.pendingIndexEntry {
		sep := b.opts.Comparator.FindShortestSeparator(b.lastKey, key)
		buf := b.pendingHandle.EncodeTo(nil)
		b.indexBlock.Add(sep.Encode(), buf)
		b.pendingIndexEntry = false
	}

	if b.filterBlk != nil {
		b.filterBlk.AddKey(key.Encode())
	}

	b.lastKey = key.Clone()
	b.haveLast = true
	b.numEntries++
	b.dataBlock.Add(key.Encode(), value)

	if b.dataBlock.EstimatedSize() >= b.opts.BlockSize {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Flush forces the current data block to be written out, even if it hasn't
// reached the target block size. Finish calls this implicitly for any
// trailing partial block.
func (b *Builder) Flush() error {
	if b.err != nil {
		return b.err
	}
	if b.dataBlock.Empty() {
		return nil
	}
	if b.pendingIndexEntry {
		return b.fail(status.New(status.InvalidArgument, "sstable: Flush called with a pending index entry outstanding"))
	}

	handle, err := b.writeBlock(b.dataBlock)
	if err != nil {
		return b.fail(err)
	}
	b.pendingHandle = handle
	b.pendingIndexEntry = true
	if b.filterBlk != nil {
		b.filterBlk.StartBlock(int64(b.off))
	}
	return nil
}

func (b *Builder) writeBlock(bb *block.Builder) (BlockHandle, error) {
	raw := bb.Finish()
	framed := block.Frame(raw, b.opts.Compression)
	handle := BlockHandle{Offset: b.off, Size: uint64(len(framed)) - block.TrailerSize}

	if _, err := b.w.Write(framed); err != nil {
		return BlockHandle{}, status.Wrap(status.IOError, err)
	}
	b.off += uint64(len(framed))
	bb.Reset()
	return handle, nil
}

// writeRawBlock frames and writes a block that isn't produced by a
// block.Builder (the filter block, which is never compressed).
func (b *Builder) writeRawBlock(raw []byte, compression compress.Type) (BlockHandle, error) {
	framed := block.Frame(raw, compression)
	handle := BlockHandle{Offset: b.off, Size: uint64(len(framed)) - block.TrailerSize}
	if _, err := b.w.Write(framed); err != nil {
		return BlockHandle{}, status.Wrap(status.IOError, err)
	}
	b.off += uint64(len(framed))
	return handle, nil
}

// Finish emits any pending data block, the filter block, the meta-index
// block, the index block, and the footer, in that order.
func (b *Builder) Finish() error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return status.New(status.NotSupported, "sstable: Finish called twice")
	}
	b.closed = true

	if err := b.Flush(); err != nil {
		return err
	}
	if b.pendingIndexEntry {
		sep := b.opts.Comparator.FindShortSuccessor(b.lastKey)
		buf := b.pendingHandle.EncodeTo(nil)
		b.indexBlock.Add(sep.Encode(), buf)
		b.pendingIndexEntry = false
	}

	var filterHandle BlockHandle
	haveFilter := b.filterBlk != nil
	if haveFilter {
		fb := b.filterBlk.Finish()
		h, err := b.writeRawBlock(fb, compress.TypeNone)
		if err != nil {
			return b.fail(err)
		}
		filterHandle = h
	}

	metaBlock := block.NewBuilder(1)
	if haveFilter {
		key := "filter." + b.opts.FilterPolicy.Name()
		metaBlock.Add([]byte(key), filterHandle.EncodeTo(nil))
	}
	metaHandle, err := b.writeBlock(metaBlock)
	if err != nil {
		return b.fail(err)
	}

	indexHandle, err := b.writeBlock(b.indexBlock)
	if err != nil {
		return b.fail(err)
	}

	footer := Footer{MetaIndexHandle: metaHandle, IndexHandle: indexHandle}
	if _, err := b.w.Write(footer.EncodeTo()); err != nil {
		return b.fail(status.Wrap(status.IOError, err))
	}
	b.off += FooterSize

	return nil
}

// Abandon discards the builder without emitting a footer. The caller is
// responsible for removing the partially-written file.
func (b *Builder) Abandon() {
	b.closed = true
	if b.err == nil {
		b.err = status.New(status.NotSupported, "sstable: builder was abandoned")
	}
}

// FileSize returns the number of bytes written so far.
func (b *Builder) FileSize() uint64 {
	return b.off
}

// NumEntries returns the number of key/value pairs added so far.
func (b *Builder) NumEntries() int {
	return b.numEntries
}

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return b.err
}
