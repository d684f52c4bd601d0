package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnappyRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 50)
	compressed := Compress(nil, TypeSnappy, raw)
	require.True(t, ShouldUseCompressed(len(raw), len(compressed)))

	got, err := Decompress(TypeSnappy, compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestZstdRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 50)
	compressed := Compress(nil, TypeZstd, raw)

	got, err := Decompress(TypeZstd, compressed)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestNoneRoundTrip(t *testing.T) {
	raw := []byte("incompressible-ish")
	out := Compress(nil, TypeNone, raw)
	got, err := Decompress(TypeNone, out)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestShouldUseCompressedRejectsWeakCompression(t *testing.T) {
	require.False(t, ShouldUseCompressed(100, 95))
	require.False(t, ShouldUseCompressed(100, 88))
	require.True(t, ShouldUseCompressed(100, 87))
}

func TestDecompressUnknownCodec(t *testing.T) {
	_, err := Decompress(Type(99), []byte("x"))
	require.ErrorIs(t, err, ErrUnknownCodec)
}
