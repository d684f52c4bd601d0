// Package coding implements the variable-length integer encoding used by
// every persisted structure in keelson: block records, block handles, the
// footer, and the WAL record. Integers are encoded as 7-bit
// groups, little-endian, with the MSB of each byte as a continuation flag.
package coding

import "errors"

// ErrTruncated is returned when a varint-decoding function runs out of input
// before it sees a terminator byte.
var ErrTruncated = errors.New("coding: truncated varint")

// MaxVarint32Len is the maximum number of bytes a 32-bit varint can occupy.
const MaxVarint32Len = 5

// MaxVarint64Len is the maximum number of bytes a 64-bit varint can occupy.
const MaxVarint64Len = 10

// PutUvarint32 appends the varint encoding of v to dst and returns the
// extended slice.
func PutUvarint32(dst []byte, v uint32) []byte {
	const b = 0x80
	switch {
	case v < 1<<7:
		return append(dst, byte(v))
	case v < 1<<14:
		return append(dst, byte(v)|b, byte(v>>7))
	case v < 1<<21:
		return append(dst, byte(v)|b, byte(v>>7)|b, byte(v>>14))
	case v < 1<<28:
		return append(dst, byte(v)|b, byte(v>>7)|b, byte(v>>14)|b, byte(v>>21))
	default:
		return append(dst, byte(v)|b, byte(v>>7)|b, byte(v>>14)|b, byte(v>>21)|b, byte(v>>28))
	}
}

// PutUvarint64 appends the varint encoding of v to dst and returns the
// extended slice.
func PutUvarint64(dst []byte, v uint64) []byte {
	const b = 0x80
	for v >= b {
		dst = append(dst, byte(v)|b)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Uvarint32Length returns the number of bytes PutUvarint32 would use for v.
func Uvarint32Length(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint64Length returns the number of bytes PutUvarint64 would use for v.
func Uvarint64Length(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// GetUvarint32 decodes a 32-bit varint from the front of src, returning the
// value and the number of bytes consumed. It fails with ErrTruncated if src
// ends before a terminator byte, and with a separate overflow error if the
// value would require more than MaxVarint32Len bytes to represent (the one
// spot where a 64-bit-shaped varint stream could otherwise silently
// overflow a 32-bit field).
func GetUvarint32(src []byte) (v uint32, n int, err error) {
	for shift := uint(0); shift < 32; shift += 7 {
		if n >= len(src) {
			return 0, 0, ErrTruncated
		}
		c := src[n]
		n++
		if c < 0x80 {
			v |= uint32(c) << shift
			return v, n, nil
		}
		v |= uint32(c&0x7f) << shift
	}
	return 0, 0, errors.New("coding: varint32 overflows 5 bytes")
}

// GetUvarint64 decodes a 64-bit varint from the front of src, returning the
// value and the number of bytes consumed.
func GetUvarint64(src []byte) (v uint64, n int, err error) {
	for shift := uint(0); shift < 64; shift += 7 {
		if n >= len(src) {
			return 0, 0, ErrTruncated
		}
		c := src[n]
		n++
		if c < 0x80 {
			v |= uint64(c) << shift
			return v, n, nil
		}
		v |= uint64(c&0x7f) << shift
	}
	return 0, 0, errors.New("coding: varint64 overflows 10 bytes")
}

// PutFixed32 appends the 4-byte little-endian encoding of v to dst. The
// encoding is byte-identical on little- and big-endian hosts: it is always
// the little-endian representation of v, never the host's native layout.
func PutFixed32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutFixed64 appends the 8-byte little-endian encoding of v to dst.
func PutFixed64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// GetFixed32 decodes a 4-byte little-endian uint32 from the front of src.
func GetFixed32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

// GetFixed64 decodes an 8-byte little-endian uint64 from the front of src.
func GetFixed64(src []byte) uint64 {
	return uint64(src[0]) | uint64(src[1])<<8 | uint64(src[2])<<16 | uint64(src[3])<<24 |
		uint64(src[4])<<32 | uint64(src[5])<<40 | uint64(src[6])<<48 | uint64(src[7])<<56
}

// PutLengthPrefixed appends varint32(len(s)) || s to dst.
func PutLengthPrefixed(dst []byte, s []byte) []byte {
	dst = PutUvarint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// GetLengthPrefixed decodes a varint32(len) || bytes record from the front
// of src, returning the bytes and the number of bytes consumed in total
// (prefix + payload).
func GetLengthPrefixed(src []byte) (s []byte, n int, err error) {
	l, hn, err := GetUvarint32(src)
	if err != nil {
		return nil, 0, err
	}
	if hn+int(l) > len(src) {
		return nil, 0, ErrTruncated
	}
	return src[hn : hn+int(l)], hn + int(l), nil
}
