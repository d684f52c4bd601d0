package keelson

import (
	"keelson/internal/compare"
	"keelson/internal/compress"
)

// Options configures an Open call. The zero value is not used directly;
// Open starts from defaultOptions and applies each Option in order.
type Options struct {
	Comparator         compare.UserComparator
	MemTableSize       uint
	MemTableFlushBytes uint
	CacheCapacity      int64
	Compression        compress.Type
	FilterBitsPerKey   int
}

func defaultOptions() Options {
	return Options{
		Comparator:         compare.Bytewise,
		MemTableSize:       4 << 20,
		MemTableFlushBytes: 1 << 20,
		CacheCapacity:      8 << 20,
		Compression:        compress.TypeSnappy,
		FilterBitsPerKey:   10,
	}
}

// Option mutates Options before Open constructs a DB, following boulder's
// own functional-option shape (pkg/options.go, pkg/db/option.go).
type Option func(*Options)

// WithComparator overrides the default bytewise user-key comparator.
func WithComparator(cmp compare.UserComparator) Option {
	return func(o *Options) { o.Comparator = cmp }
}

// WithMemTableSize sets the arena size backing each memtable generation.
func WithMemTableSize(size uint) Option {
	return func(o *Options) { o.MemTableSize = size }
}

// WithMemTableFlushBytes sets the approximate memory usage threshold at
// which Set/Delete trigger an automatic Flush.
func WithMemTableFlushBytes(n uint) Option {
	return func(o *Options) { o.MemTableFlushBytes = n }
}

// WithCacheCapacity sets the block cache's total capacity in bytes, split
// across its shards.
func WithCacheCapacity(n int64) Option {
	return func(o *Options) { o.CacheCapacity = n }
}

// WithCompression selects the codec new sstables are written with.
func WithCompression(t compress.Type) Option {
	return func(o *Options) { o.Compression = t }
}

// WithFilterBitsPerKey sets the Bloom filter's bits-per-key; 0 disables
// filter construction entirely.
func WithFilterBitsPerKey(n int) Option {
	return func(o *Options) { o.FilterBitsPerKey = n }
}
