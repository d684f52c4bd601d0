// Package compress implements the block compression codec registry: the
// None/Snappy/Zstd codecs a block trailer's type byte selects between, and
// the byte-exact fallback rule (never ship a "compressed" block that didn't
// actually shrink). Snappy is wired through github.com/golang/snappy, the
// library every pack repo reaches for first; Zstd, the secondary codec named
// alongside it, comes from github.com/klauspost/compress/zstd, the same
// module the AmrMurad1-Go-Store teacher candidate pulled its block codec
// from.
package compress

import (
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Type identifies the compression codec a block was written with. It is
// stored as the first byte of a block's 5-byte trailer.
type Type byte

const (
	TypeNone  Type = 0
	TypeSnappy Type = 1
	TypeZstd   Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeSnappy:
		return "snappy"
	case TypeZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

var (
	zstdEncoderOnce sync.Once
	zstdEncoder     *zstd.Encoder
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
)

func getZstdEncoder() *zstd.Encoder {
	zstdEncoderOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	})
	return zstdEncoder
}

func getZstdDecoder() *zstd.Decoder {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return zstdDecoder
}

// Compress encodes raw with the given codec, appending to dst. TypeNone
// appends an unmodified copy of raw.
func Compress(dst []byte, typ Type, raw []byte) []byte {
	switch typ {
	case TypeNone:
		return append(dst, raw...)
	case TypeSnappy:
		return append(dst, snappy.Encode(nil, raw)...)
	case TypeZstd:
		return getZstdEncoder().EncodeAll(raw, dst)
	default:
		panic("compress: unknown codec")
	}
}

// Decompress decodes src, written with the given codec, returning the raw
// bytes.
func Decompress(typ Type, src []byte) ([]byte, error) {
	switch typ {
	case TypeNone:
		return src, nil
	case TypeSnappy:
		return snappy.Decode(nil, src)
	case TypeZstd:
		return getZstdDecoder().DecodeAll(src, nil)
	default:
		return nil, ErrUnknownCodec
	}
}

// ErrUnknownCodec is returned by Decompress for an unrecognized Type byte,
// almost always a sign of a corrupt or truncated trailer.
var ErrUnknownCodec = errUnknownCodec{}

type errUnknownCodec struct{}

func (errUnknownCodec) Error() string { return "compress: unknown codec" }

// ShouldUseCompressed decides whether a compressed representation is worth
// shipping over the raw one: the compressed size must be strictly less than
// 7/8 of the raw size, matching leveldb's table_builder compression
// acceptance rule. Anything weaker isn't worth the decompression cost.
func ShouldUseCompressed(rawLen, compressedLen int) bool {
	return compressedLen < rawLen-rawLen/8
}
