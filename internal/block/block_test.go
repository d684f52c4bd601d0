package block

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"keelson/internal/compress"
)

func buildTestBlock(restartInterval int, keys, values []string) []byte {
	b := NewBuilder(restartInterval)
	for i := range keys {
		b.Add([]byte(keys[i]), []byte(values[i]))
	}
	return b.Finish()
}

func TestBuilderReaderRoundTrip(t *testing.T) {
	keys := []string{"apple", "banana", "cherry", "date", "elderberry", "fig", "grape"}
	values := []string{"1", "2", "3", "4", "5", "6", "7"}

	data := buildTestBlock(3, keys, values)
	r, err := NewReader(data)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekToFirst()
	for i := 0; it.Valid(); i++ {
		require.Equal(t, keys[i], string(it.Key()))
		require.Equal(t, values[i], string(it.Value()))
		it.Next()
	}
	require.NoError(t, it.Error())
}

func TestBuilderReaderRestartInterval1(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	values := []string{"1", "2", "3", "4"}
	data := buildTestBlock(1, keys, values)

	r, err := NewReader(data)
	require.NoError(t, err)
	require.Equal(t, 4, r.numRestarts)
}

func TestSeekToKey(t *testing.T) {
	keys := []string{"apple", "banana", "cherry", "date", "elderberry"}
	values := []string{"1", "2", "3", "4", "5"}
	data := buildTestBlock(2, keys, values)

	r, err := NewReader(data)
	require.NoError(t, err)

	cmp := bytes.Compare
	it := r.SeekToKey([]byte("cherry"), cmp)
	require.True(t, it.Valid())
	require.Equal(t, "cherry", string(it.Key()))

	it = r.SeekToKey([]byte("cat"), cmp)
	require.True(t, it.Valid())
	require.Equal(t, "cherry", string(it.Key()))

	it = r.SeekToKey([]byte("zebra"), cmp)
	require.False(t, it.Valid())
}

func TestSeekToLast(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	values := []string{"1", "2", "3", "4", "5"}
	data := buildTestBlock(2, keys, values)

	r, err := NewReader(data)
	require.NoError(t, err)

	it := r.NewIterator()
	it.SeekToLast()
	require.True(t, it.Valid())
	require.Equal(t, "e", string(it.Key()))
}

func TestFrameUnframeRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("sstable data block contents "), 20)

	for _, typ := range []compress.Type{compress.TypeNone, compress.TypeSnappy, compress.TypeZstd} {
		framed := Frame(raw, typ)
		got, err := Unframe(framed)
		require.NoError(t, err)
		require.Equal(t, raw, got)
	}
}

func TestUnframeDetectsCorruption(t *testing.T) {
	raw := []byte("some block body")
	framed := Frame(raw, compress.TypeNone)
	framed[0] ^= 0xff

	_, err := Unframe(framed)
	require.Error(t, err)
}

func TestEmptyBlock(t *testing.T) {
	b := NewBuilder(16)
	require.True(t, b.Empty())
	data := b.Finish()

	r, err := NewReader(data)
	require.NoError(t, err)
	it := r.NewIterator()
	it.SeekToFirst()
	require.False(t, it.Valid())
	require.NoError(t, it.Error())
}
