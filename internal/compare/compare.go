// Package compare defines the user-key comparator contract and the default
// lexicographic implementation. The comparator is pluggable the way
// leveldb's Comparator is: a named total order over user keys, plus the two
// separator-shortening operations sstable index construction needs.
package compare

import "bytes"

// Compare orders two user keys, returning <0, 0, or >0 as a < b, a == b, or
// a > b.
type Compare func(a, b []byte) int

// UserComparator is a named total order over user keys. FindShortestSeparator
// and FindShortSuccessor let an index block store a key shorter than the
// true boundary while still correctly partitioning the key space; both are
// optimizations only, and returning start/key unchanged is always correct.
type UserComparator interface {
	Name() string
	Compare(a, b []byte) int

	// FindShortestSeparator returns a key in [start, limit) at least as
	// short as start, or start itself if no shortening applies. limit is
	// assumed to be strictly greater than start.
	FindShortestSeparator(start, limit []byte) []byte

	// FindShortSuccessor returns a key >= key that is at least as short as
	// key, or key itself if no shortening applies.
	FindShortSuccessor(key []byte) []byte
}

// DefaultComparator orders user keys by byte-wise lexicographic order, the
// same order bytes.Compare and the standard library's sort package use.
type DefaultComparator struct{}

// Bytewise is the default comparator instance.
var Bytewise UserComparator = DefaultComparator{}

func (DefaultComparator) Name() string { return "keelson.BytewiseComparator" }

func (DefaultComparator) Compare(a, b []byte) int { return bytes.Compare(a, b) }

// FindShortestSeparator finds the length of the common prefix of start and
// limit, then tries to increment the byte at that position in start, if
// it's less than 0xff and less than the corresponding byte in limit. This
// produces the shortest key that still separates start from anything at or
// above limit.
func (DefaultComparator) FindShortestSeparator(start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diff := 0
	for diff < minLen && start[diff] == limit[diff] {
		diff++
	}
	if diff >= minLen {
		// One is a prefix of the other; no shortening is possible.
		return start
	}
	if start[diff] < 0xff && start[diff]+1 < limit[diff] {
		shortened := append([]byte{}, start[:diff+1]...)
		shortened[diff]++
		return shortened
	}
	return start
}

// FindShortSuccessor returns the shortest key >= key: the prefix up to and
// including the first byte that isn't 0xff, with that byte incremented. If
// key is all 0xff bytes, it is returned unchanged.
func (DefaultComparator) FindShortSuccessor(key []byte) []byte {
	for i, b := range key {
		if b != 0xff {
			successor := append([]byte{}, key[:i+1]...)
			successor[i]++
			return successor
		}
	}
	return key
}
