package base

import "keelson/internal/compare"

// InternalKeyComparator orders InternalKeys: ascending by user key (via the
// wrapped user comparator), then descending by sequence number, then
// descending by kind. Descending sequence number means that for a fixed
// user key, the newest write sorts first — exactly the order a lookup wants
// to scan in.
type InternalKeyComparator struct {
	User compare.UserComparator
}

// NewInternalKeyComparator wraps a user comparator.
func NewInternalKeyComparator(user compare.UserComparator) *InternalKeyComparator {
	return &InternalKeyComparator{User: user}
}

func (c *InternalKeyComparator) Name() string {
	return "keelson.InternalKeyComparator"
}

// Compare orders a and b as described above.
func (c *InternalKeyComparator) Compare(a, b InternalKey) int {
	if r := c.User.Compare(a.UserKey, b.UserKey); r != 0 {
		return r
	}
	// Trailers pack (seqNum<<8 | kind); a larger trailer means a higher
	// sequence number, or an equal sequence number and higher kind. Both
	// should sort first, so trailer order is reversed.
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}

// CompareEncoded orders two on-disk encoded internal keys (InternalKey.Encode()
// output: user key followed by the 8-byte trailer) the same way Compare
// orders the decoded form. Block and index readers operate on raw bytes, so
// this is the comparator they're handed.
func (c *InternalKeyComparator) CompareEncoded(a, b []byte) int {
	return c.Compare(DecodeInternalKey(a), DecodeInternalKey(b))
}

// FindShortestSeparator shortens start's user-key portion against limit's,
// using the wrapped user comparator, then reattaches a trailer that sorts
// before any real key sharing the shortened user key. It is applied only
// when the shortened key is both shorter and still strictly greater than
// start's original user key: a shortened key that no longer compares after
// start would no longer be a valid separator.
func (c *InternalKeyComparator) FindShortestSeparator(start, limit InternalKey) InternalKey {
	userStart := start.UserKey
	shortened := c.User.FindShortestSeparator(userStart, limit.UserKey)
	if len(shortened) < len(userStart) && c.User.Compare(userStart, shortened) < 0 {
		return MakeInternalKey(shortened, SeqNumMax, InternalKeyKindMax)
	}
	return start
}

// FindShortSuccessor shortens key's user-key portion to the shortest key
// that is still >= it, reattaching a trailer that sorts first among real
// keys sharing that user key.
func (c *InternalKeyComparator) FindShortSuccessor(key InternalKey) InternalKey {
	userKey := key.UserKey
	shortened := c.User.FindShortSuccessor(userKey)
	if len(shortened) < len(userKey) {
		return MakeInternalKey(shortened, SeqNumMax, InternalKeyKindMax)
	}
	return key
}
