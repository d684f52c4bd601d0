package cache

// BlockCacheAdapter exposes a Cache through the narrow Lookup/Insert shape
// sstable.Reader wants, so the sstable package need not import cache
// directly (it depends only on the small interface it declares).
type BlockCacheAdapter struct {
	C *Cache
}

// Lookup satisfies sstable.BlockCache.
func (a BlockCacheAdapter) Lookup(key []byte) (value []byte, ok bool, release func()) {
	h, found := a.C.Lookup(key)
	if !found {
		return nil, false, nil
	}
	return h.Value(), true, h.Release
}

// Insert satisfies sstable.BlockCache. The returned release func drops the
// caller's own reference; the cache retains its own reference as usual.
func (a BlockCacheAdapter) Insert(key, value []byte, charge int) (release func()) {
	h := a.C.Insert(key, value, charge, nil)
	return h.Release
}
