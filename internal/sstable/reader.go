package sstable

import (
	"io"

	"keelson/internal/base"
	"keelson/internal/block"
	"keelson/internal/filter"
	"keelson/internal/status"
)

// ReaderOptions configures how an opened table interprets its contents.
type ReaderOptions struct {
	Comparator   base.InternalKeyComparator
	FilterPolicy filter.Policy // must match the policy the table was built with, by name
	// BlockCache, when non-nil, is consulted before reading a data block from
	// disk and populated after. It is declared as a small capability
	// interface rather than a concrete cache.Cache so the sstable package
	// doesn't have to import the cache package directly;
	// cache.BlockCacheAdapter satisfies it.
	BlockCache BlockCache
}

// BlockCache is the subset of the sharded block cache (C7) a table reader
// needs: look up a previously decoded block by a process-unique cache key,
// or insert a freshly decoded one.
type BlockCache interface {
	Lookup(key []byte) (value []byte, ok bool, release func())
	Insert(key []byte, value []byte, charge int) (release func())
}

// Reader is an opened, immutable sstable ready for point lookups and
// iteration. Opening reads the footer, the meta-index block, the index
// block and the filter block (if any); the index and filter blocks are kept
// for the reader's lifetime, the meta-index block is not.
type Reader struct {
	opts ReaderOptions
	raf  io.ReaderAt
	size int64

	index        *block.Reader
	filterReader *filter.Reader
	cacheFileID  uint64 // namespaces this table's block-cache keys
}

// Open parses the footer and index/meta-index/filter blocks of a table
// occupying raf[0:size). cacheFileID should be a process-unique identifier
// (e.g. from the block cache's NewId) used to namespace this table's
// cache-key space from every other open table sharing the same cache.
func Open(raf io.ReaderAt, size int64, opts ReaderOptions, cacheFileID uint64) (*Reader, error) {
	if size < FooterSize {
		return nil, status.New(status.NotSupported, "sstable: file shorter than footer")
	}

	footerBuf := make([]byte, FooterSize)
	if _, err := raf.ReadAt(footerBuf, size-FooterSize); err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	footer, err := DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	r := &Reader{opts: opts, raf: raf, size: size, cacheFileID: cacheFileID}

	indexRaw, err := r.readBlockRaw(footer.IndexHandle)
	if err != nil {
		return nil, status.Wrap(status.Corruption, err)
	}
	idx, err := block.NewReader(indexRaw)
	if err != nil {
		return nil, err
	}
	r.index = idx

	metaRaw, err := r.readBlockRaw(footer.MetaIndexHandle)
	if err != nil {
		return nil, status.Wrap(status.Corruption, err)
	}
	metaBlock, err := block.NewReader(metaRaw)
	if err != nil {
		return nil, err
	}
	if opts.FilterPolicy != nil {
		wantKey := []byte("filter." + opts.FilterPolicy.Name())
		mit := metaBlock.NewIterator()
		for mit.SeekToFirst(); mit.Valid(); mit.Next() {
			if string(mit.Key()) != string(wantKey) {
				continue // unknown meta entries are skipped defensively
			}
			handle, _, derr := DecodeBlockHandle(mit.Value())
			if derr != nil {
				return nil, derr
			}
			filterRaw, rerr := r.readBlockRawUncompressedOnly(handle)
			if rerr != nil {
				return nil, rerr
			}
			fr, ferr := filter.NewReader(filter.InternalPolicy{User: opts.FilterPolicy}, filterRaw)
			if ferr != nil {
				return nil, ferr
			}
			r.filterReader = fr
			break
		}
	}

	return r, nil
}

func (r *Reader) readBlockRaw(handle BlockHandle) ([]byte, error) {
	framed := make([]byte, handle.Size+block.TrailerSize)
	if _, err := r.raf.ReadAt(framed, int64(handle.Offset)); err != nil {
		return nil, status.Wrap(status.IOError, err)
	}
	return block.Unframe(framed)
}

// readBlockRawUncompressedOnly reads the filter block, which per §4.4 is
// always framed with compression type None but is still checksum-framed
// like any other block.
func (r *Reader) readBlockRawUncompressedOnly(handle BlockHandle) ([]byte, error) {
	return r.readBlockRaw(handle)
}

// cacheKey namespaces a data-block offset by this table's cache file ID so
// two open tables never collide in a shared cache.
func (r *Reader) cacheKey(offset uint64) []byte {
	key := make([]byte, 16)
	putFixed64(key, r.cacheFileID)
	putFixed64(key[8:], offset)
	return key
}

func putFixed64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// readDataBlock loads the data block at handle, consulting/populating the
// block cache if one is configured.
func (r *Reader) readDataBlock(handle BlockHandle) (*block.Reader, func(), error) {
	if r.opts.BlockCache != nil {
		key := r.cacheKey(handle.Offset)
		if raw, ok, release := r.opts.BlockCache.Lookup(key); ok {
			br, err := block.NewReader(raw)
			if err != nil {
				release()
				return nil, nil, err
			}
			return br, release, nil
		}
		raw, err := r.readBlockRaw(handle)
		if err != nil {
			return nil, nil, err
		}
		release := r.opts.BlockCache.Insert(key, raw, len(raw))
		br, err := block.NewReader(raw)
		if err != nil {
			release()
			return nil, nil, err
		}
		return br, release, nil
	}

	raw, err := r.readBlockRaw(handle)
	if err != nil {
		return nil, nil, err
	}
	br, err := block.NewReader(raw)
	if err != nil {
		return nil, nil, err
	}
	return br, func() {}, nil
}

// Get performs a point lookup for the newest version of userKey visible at
// or below seqNum. found is false when the key is absent from this table;
// when its newest visible version is a Delete tombstone, found is true and
// kind is InternalKeyKindDelete, so the caller can tell "definitely absent"
// (tombstone) from "consult an older source".
func (r *Reader) Get(userKey []byte, seqNum base.SeqNum) (value []byte, kind base.InternalKeyKind, found bool, err error) {
	target := base.LookupKey(userKey, seqNum)
	encoded := target.Encode()

	iit := r.index.SeekToKey(encoded, r.opts.Comparator.CompareEncoded)
	if !iit.Valid() {
		if err := iit.Error(); err != nil {
			return nil, 0, false, err
		}
		return nil, 0, false, nil
	}
	handle, _, derr := DecodeBlockHandle(iit.Value())
	if derr != nil {
		return nil, 0, false, derr
	}

	if r.filterReader != nil && !r.filterReader.KeyMayMatch(int64(handle.Offset), encoded) {
		return nil, 0, false, nil
	}

	br, release, rerr := r.readDataBlock(handle)
	if rerr != nil {
		return nil, 0, false, rerr
	}
	defer release()

	dit := br.SeekToKey(encoded, r.opts.Comparator.CompareEncoded)
	if !dit.Valid() {
		return nil, 0, false, dit.Error()
	}
	foundKey := base.DecodeInternalKey(dit.Key())
	if r.opts.Comparator.User.Compare(foundKey.UserKey, userKey) != 0 {
		return nil, 0, false, nil
	}
	return dit.Value(), foundKey.Kind(), true, nil
}

// Size returns the table file's total byte size, footer included.
func (r *Reader) Size() int64 { return r.size }
