// Package keelson glues the core components (C1–C7) into the minimal
// database boulder's own pkg/boulder.go / pkg/db/db.go demonstrate: one
// active memtable, a list of flushed sstables, and a shared block cache,
// with no compaction and no manifest persistence. It exists so the core can
// be exercised end-to-end from a single call site, not as a production
// storage engine.
package keelson

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"keelson/internal/base"
	"keelson/internal/cache"
	"keelson/internal/filter"
	"keelson/internal/memtable"
	"keelson/internal/sstable"
	"keelson/internal/status"
	"keelson/internal/storage"
	"keelson/internal/walog"
)

const (
	dataDirName = "data"
	walDirName  = "wal"
)

// table is one flushed, immutable sstable generation together with the
// resources its Reader needs kept open.
type table struct {
	raf    storage.RandomAccessFile
	reader *sstable.Reader
}

// DB is a single-directory, single-process key-value store composing a
// memtable, a chain of flushed sstables, and a shared block cache behind a
// mutex. It is not safe to open the same directory from two processes.
type DB struct {
	dir  string
	opts Options

	mu       sync.Mutex
	seqNum   base.AtomicSeqNum
	nextFile uint64
	mem      *memtable.MemTable
	wal      *walog.Writer
	tables   []*table // newest first
	cache    *cache.Cache
	closed   bool
}

// noopCloser satisfies io.Closer for Get results: Get copies every value
// out of the memtable arena or the table's block before returning it, so
// the caller owns the bytes and there is nothing to release.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Open opens the database rooted at dir, creating it if it does not already
// exist.
func Open(dir string, options ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	dataDir := filepath.Join(dir, dataDirName)
	walDir := filepath.Join(dir, walDirName)
	if err := storage.MkdirAll(dataDir); err != nil {
		return nil, err
	}
	if err := storage.MkdirAll(walDir); err != nil {
		return nil, err
	}

	db := &DB{
		dir:      dir,
		opts:     opts,
		mem:      memtable.New(opts.MemTableSize, opts.Comparator),
		cache:    cache.New(opts.CacheCapacity),
		nextFile: nextFileNumber(dataDir, walDir),
	}

	wal, err := walog.Create(db.walPath(db.nextFile))
	if err != nil {
		return nil, err
	}
	db.wal = wal
	db.nextFile++

	return db, nil
}

// nextFileNumber scans dataDir and walDir for the largest "NNNNNN.ext"
// generation number already on disk and returns one past it, so reopening
// a directory a prior process wrote to never collides with an existing
// file. There is no manifest to consult (persistence of the table/WAL list
// across restarts is out of scope), so this directory scan is Open's only
// source of truth for the next generation number.
func nextFileNumber(dirs ...string) uint64 {
	var max uint64
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			idx := strings.IndexByte(name, '.')
			if idx <= 0 {
				continue
			}
			n, err := strconv.ParseUint(name[:idx], 10, 64)
			if err != nil {
				continue
			}
			if n > max {
				max = n
			}
		}
	}
	return max + 1
}

func (db *DB) walPath(gen uint64) string {
	return filepath.Join(db.dir, walDirName, fmt.Sprintf("%06d.log", gen))
}

func (db *DB) tablePath(gen uint64) string {
	return filepath.Join(db.dir, dataDirName, fmt.Sprintf("%06d.sst", gen))
}

// Set writes (key, value), overwriting any existing value for key.
func (db *DB) Set(key, value []byte) error {
	return db.apply(base.InternalKeyKindPut, key, value)
}

// Delete records a tombstone for key. It does not report an error if key
// does not currently exist, matching boulder's Writer.Delete contract.
func (db *DB) Delete(key []byte) error {
	return db.apply(base.InternalKeyKindDelete, key, nil)
}

func (db *DB) apply(kind base.InternalKeyKind, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return status.New(status.InvalidArgument, "keelson: db closed")
	}

	seq := db.seqNum.Add(1)
	if err := db.wal.Append(encodeWALRecord(seq, kind, key, value)); err != nil {
		return err
	}
	if err := db.wal.Flush(); err != nil {
		return err
	}

	if err := db.mem.Add(seq, kind, key, value); err != nil {
		if !status.Is(err, status.NotSupported) {
			return err
		}
		// Memtable is full: flush the current generation and retry against
		// a fresh one.
		if err := db.flushLocked(); err != nil {
			return err
		}
		return db.mem.Add(seq, kind, key, value)
	}

	if db.mem.ShouldFlush(db.opts.MemTableFlushBytes) {
		return db.flushLocked()
	}
	return nil
}

// Get returns the value most recently written for key, searching the
// active memtable and then each flushed sstable from newest to oldest. The
// returned Closer must be released by the caller.
func (db *DB) Get(key []byte) ([]byte, io.Closer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	seq := db.seqNum.Load()

	if value, kind, found := db.mem.Get(key, seq); found {
		if kind == base.InternalKeyKindDelete {
			return nil, nil, status.New(status.NotFound, "keelson: key not found")
		}
		return append([]byte(nil), value...), noopCloser{}, nil
	}

	for _, t := range db.tables {
		value, kind, found, err := t.reader.Get(key, seq)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		if kind == base.InternalKeyKindDelete {
			return nil, nil, status.New(status.NotFound, "keelson: key not found")
		}
		return append([]byte(nil), value...), noopCloser{}, nil
	}

	return nil, nil, status.New(status.NotFound, "keelson: key not found")
}

// Flush forces the active memtable to a new sstable, whether or not it has
// reached MemTableFlushBytes.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.flushLocked()
}

func (db *DB) flushLocked() error {
	if db.mem.Empty() {
		return nil
	}
	db.mem.MarkReadOnly()

	gen := db.nextFile
	db.nextFile++

	path := db.tablePath(gen)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return status.Wrap(status.IOError, err)
	}

	cmp := *base.NewInternalKeyComparator(db.opts.Comparator)
	bopts := sstable.DefaultBuilderOptions(cmp)
	bopts.Compression = db.opts.Compression
	if db.opts.FilterBitsPerKey > 0 {
		bopts.FilterPolicy = filter.NewBloomPolicy(db.opts.FilterBitsPerKey)
	}
	builder := sstable.NewBuilder(f, bopts)

	it := db.mem.NewFlushIterator()
	for it.First(); it.Valid(); it.Next() {
		if err := builder.Add(it.Key(), it.Value()); err != nil {
			builder.Abandon()
			_ = f.Close()
			_ = os.Remove(path)
			return err
		}
	}
	if err := builder.Finish(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return status.Wrap(status.IOError, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return status.Wrap(status.IOError, err)
	}
	if err := storage.SyncDir(filepath.Join(db.dir, dataDirName)); err != nil {
		_ = os.Remove(path)
		return err
	}

	raf, err := storage.OpenRandomAccess(path)
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	reader, err := sstable.Open(raf, int64(builder.FileSize()), sstable.ReaderOptions{
		Comparator:   cmp,
		FilterPolicy: bopts.FilterPolicy,
		BlockCache:   cache.BlockCacheAdapter{C: db.cache},
	}, db.cache.NewId())
	if err != nil {
		_ = raf.Close()
		_ = os.Remove(path)
		return err
	}

	db.tables = append([]*table{{raf: raf, reader: reader}}, db.tables...)

	oldWAL := db.wal
	wal, err := walog.Create(db.walPath(db.nextFile))
	if err != nil {
		return err
	}
	db.wal = wal
	db.nextFile++

	// builder.Add has already copied every key/value into the sstable's own
	// block buffers by this point, so the old memtable's arena holds nothing
	// a reader still needs — recycle it into the next generation instead of
	// allocating a fresh one.
	newMem, err := memtable.NewWithArena(db.mem.ReleaseArena(), db.opts.Comparator)
	if err != nil {
		return err
	}
	db.mem = newMem

	return oldWAL.Close()
}

// Close releases every resource the database holds: the active WAL
// segment and every flushed sstable's file handle. Errors from each are
// aggregated rather than short-circuited, following boulder's own
// pkg/db/db.go Close.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	var errs *multierror.Error
	if err := db.wal.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, t := range db.tables {
		if err := t.raf.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
