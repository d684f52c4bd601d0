package crc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskRoundTrip(t *testing.T) {
	v := Value([]byte("hello world"))
	require.Equal(t, v, Unmask(Mask(v)))
}

func TestExtendMatchesWholeValue(t *testing.T) {
	body := []byte("block contents")
	trailerByte := []byte{1}

	whole := Value(append(append([]byte{}, body...), trailerByte...))
	extended := Extend(Value(body), trailerByte)
	require.Equal(t, whole, extended)
}

func TestBitFlipChangesChecksum(t *testing.T) {
	data := []byte("a stored block")
	v := Value(data)

	corrupt := append([]byte{}, data...)
	corrupt[3] ^= 0x01
	require.NotEqual(t, v, Value(corrupt))
}
