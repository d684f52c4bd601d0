package coding

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 21, 1<<28 - 1, 1 << 28, ^uint32(0)}
	for i := 0; i < 1000; i++ {
		values = append(values, rand.Uint32())
	}

	for _, v := range values {
		buf := PutUvarint32(nil, v)
		require.Len(t, buf, Uvarint32Length(v))

		got, n, err := GetUvarint32(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestUvarint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1 << 56, 1<<56 - 1, ^uint64(0)}
	for i := 0; i < 1000; i++ {
		values = append(values, rand.Uint64())
	}

	for _, v := range values {
		buf := PutUvarint64(nil, v)
		require.Len(t, buf, Uvarint64Length(v))

		got, n, err := GetUvarint64(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestUvarintTruncated(t *testing.T) {
	buf := PutUvarint64(nil, 1<<40+12345)
	for i := 1; i < len(buf); i++ {
		_, _, err := GetUvarint64(buf[:i])
		require.ErrorIs(t, err, ErrTruncated)
	}
}

func TestFixedLittleEndian(t *testing.T) {
	buf := PutFixed32(nil, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
	require.Equal(t, uint32(0x01020304), GetFixed32(buf))

	buf64 := PutFixed64(nil, 0x0102030405060708)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, buf64)
	require.Equal(t, uint64(0x0102030405060708), GetFixed64(buf64))
}

func TestLengthPrefixedRoundTrip(t *testing.T) {
	s := []byte("hello world")
	buf := PutLengthPrefixed(nil, s)

	got, n, err := GetLengthPrefixed(buf)
	require.NoError(t, err)
	require.Equal(t, s, got)
	require.Equal(t, len(buf), n)
}
