package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"
	"keelson/internal/base"
	"keelson/internal/compare"
)

func TestAddAndGetAtVaryingSeqNums(t *testing.T) {
	m := New(64<<10, compare.Bytewise)

	require.NoError(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("21")))
	require.NoError(t, m.Add(2, base.InternalKeyKindPut, []byte("age"), []byte("22")))

	value, kind, found := m.Get([]byte("age"), 1)
	require.True(t, found)
	require.Equal(t, base.InternalKeyKindPut, kind)
	require.Equal(t, "21", string(value))

	value, kind, found = m.Get([]byte("age"), 2)
	require.True(t, found)
	require.Equal(t, base.InternalKeyKindPut, kind)
	require.Equal(t, "22", string(value))

	// A lookup at a seqnum past every write sees the newest version.
	value, kind, found = m.Get([]byte("age"), 100)
	require.True(t, found)
	require.Equal(t, base.InternalKeyKindPut, kind)
	require.Equal(t, "22", string(value))

	_, _, found = m.Get([]byte("name"), 100)
	require.False(t, found)
}

func TestGetSeesDeleteTombstone(t *testing.T) {
	m := New(64<<10, compare.Bytewise)

	require.NoError(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("21")))
	require.NoError(t, m.Add(2, base.InternalKeyKindDelete, []byte("age"), nil))

	value, kind, found := m.Get([]byte("age"), 2)
	require.True(t, found)
	require.Equal(t, base.InternalKeyKindDelete, kind)
	require.Nil(t, value)

	// A lookup anchored before the delete still sees the live value.
	value, kind, found = m.Get([]byte("age"), 1)
	require.True(t, found)
	require.Equal(t, base.InternalKeyKindPut, kind)
	require.Equal(t, "21", string(value))
}

func TestGetIgnoresFutureSeqNum(t *testing.T) {
	m := New(64<<10, compare.Bytewise)
	require.NoError(t, m.Add(5, base.InternalKeyKindPut, []byte("age"), []byte("21")))

	_, _, found := m.Get([]byte("age"), 1)
	require.False(t, found)
}

func TestAddDuplicateSeqNumIsCorruption(t *testing.T) {
	m := New(64<<10, compare.Bytewise)
	require.NoError(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("21")))
	require.Error(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("22")))
}

func TestMarkReadOnlyRejectsFurtherAdds(t *testing.T) {
	m := New(64<<10, compare.Bytewise)
	require.NoError(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("21")))

	m.MarkReadOnly()
	require.Error(t, m.Add(2, base.InternalKeyKindPut, []byte("age"), []byte("22")))
}

func TestFlushIteratorVisitsEveryEntryInOrder(t *testing.T) {
	m := New(64<<10, compare.Bytewise)
	for i, k := range []string{"cherry", "apple", "banana"} {
		require.NoError(t, m.Add(base.SeqNum(i+1), base.InternalKeyKindPut, []byte(k), []byte(k)))
	}

	it := m.NewFlushIterator()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key().UserKey))
		it.Next()
	}
	require.Equal(t, []string{"apple", "banana", "cherry"}, got)
}

func TestShouldFlush(t *testing.T) {
	m := New(64<<10, compare.Bytewise)
	require.False(t, m.ShouldFlush(1 << 20))
	require.NoError(t, m.Add(1, base.InternalKeyKindPut, []byte("age"), []byte("21")))
	require.True(t, m.ShouldFlush(1))
}
