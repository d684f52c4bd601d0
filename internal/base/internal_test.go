package base

import (
	"testing"

	"github.com/stretchr/testify/require"
	"keelson/internal/compare"
)

func TestTrailerRoundTrip(t *testing.T) {
	trailer := MakeTrailer(12345, InternalKeyKindPut)
	require.Equal(t, SeqNum(12345), trailer.SeqNum())
	require.Equal(t, InternalKeyKindPut, trailer.Kind())
}

func TestDebugString(t *testing.T) {
	k := MakeInternalKey([]byte("name"), 1234, InternalKeyKindPut)
	require.Equal(t, "'name' @ 1234 : 1", k.DebugString())
}

func TestInternalKeyComparatorOrdersBySeqNumDescending(t *testing.T) {
	cmp := NewInternalKeyComparator(compare.Bytewise)

	older := MakeInternalKey([]byte("age"), 1, InternalKeyKindPut)
	newer := MakeInternalKey([]byte("age"), 2, InternalKeyKindPut)

	require.Negative(t, cmp.Compare(newer, older))
	require.Positive(t, cmp.Compare(older, newer))
	require.Zero(t, cmp.Compare(older, older))
}

func TestInternalKeyComparatorOrdersByUserKeyFirst(t *testing.T) {
	cmp := NewInternalKeyComparator(compare.Bytewise)

	a := MakeInternalKey([]byte("age"), 100, InternalKeyKindPut)
	b := MakeInternalKey([]byte("name"), 1, InternalKeyKindPut)

	require.Negative(t, cmp.Compare(a, b))
}

func TestMakeSearchKeySortsBeforeRealKeys(t *testing.T) {
	cmp := NewInternalKeyComparator(compare.Bytewise)

	search := MakeSearchKey([]byte("age"))
	real := MakeInternalKey([]byte("age"), 1, InternalKeyKindPut)

	require.Negative(t, cmp.Compare(search, real))
}

func TestFindShortestSeparator(t *testing.T) {
	cmp := NewInternalKeyComparator(compare.Bytewise)

	start := MakeInternalKey([]byte("helloworld"), 1, InternalKeyKindPut)
	limit := MakeInternalKey([]byte("jellyfish"), 1, InternalKeyKindPut)

	sep := cmp.FindShortestSeparator(start, limit)
	require.LessOrEqual(t, len(sep.UserKey), len(start.UserKey))
	require.True(t, compare.Bytewise.Compare(sep.UserKey, start.UserKey) >= 0)
	require.True(t, compare.Bytewise.Compare(sep.UserKey, limit.UserKey) < 0)
}

func TestFindShortSuccessor(t *testing.T) {
	cmp := NewInternalKeyComparator(compare.Bytewise)

	key := MakeInternalKey([]byte("hello"), 1, InternalKeyKindPut)
	succ := cmp.FindShortSuccessor(key)
	require.True(t, compare.Bytewise.Compare(succ.UserKey, key.UserKey) >= 0)
}

func TestLookupKey(t *testing.T) {
	lk := LookupKey([]byte("age"), 42)
	require.Equal(t, SeqNum(42), lk.SeqNum())
	require.Equal(t, InternalKeyKindMax, lk.Kind())
}
