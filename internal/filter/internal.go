package filter

// InternalPolicy wraps a user Policy so it can be applied to internal keys:
// CreateFilter and KeyMayMatch strip the 8-byte trailer before delegating,
// so the filter is built over (and queried with) user keys only, matching
// leveldb's InternalFilterPolicy.
type InternalPolicy struct {
	User Policy
}

func (p InternalPolicy) Name() string { return p.User.Name() }

func (p InternalPolicy) CreateFilter(keys [][]byte) []byte {
	stripped := make([][]byte, len(keys))
	for i, k := range keys {
		stripped[i] = stripTrailer(k)
	}
	return p.User.CreateFilter(stripped)
}

func (p InternalPolicy) KeyMayMatch(key, filter []byte) bool {
	return p.User.KeyMayMatch(stripTrailer(key), filter)
}

func stripTrailer(internalKey []byte) []byte {
	if len(internalKey) < 8 {
		return internalKey
	}
	return internalKey[:len(internalKey)-8]
}
