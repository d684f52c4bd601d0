package block

import (
	"keelson/internal/coding"
	"keelson/internal/compress"
	"keelson/internal/crc"
	"keelson/internal/status"
)

// TrailerSize is the fixed size of the compression-type-and-checksum suffix
// appended to every block stored in an sstable file.
const TrailerSize = 5

// Frame compresses raw with the preferred codec (falling back to
// TypeNone if the compressed form doesn't beat compress.ShouldUseCompressed)
// and appends the 5-byte trailer: the chosen codec's Type byte, then the
// masked CRC32C of body||type.
func Frame(raw []byte, preferred compress.Type) []byte {
	body := raw
	typ := compress.TypeNone
	if preferred != compress.TypeNone {
		compressed := compress.Compress(nil, preferred, raw)
		if compress.ShouldUseCompressed(len(raw), len(compressed)) {
			body, typ = compressed, preferred
		}
	}

	out := make([]byte, len(body), len(body)+TrailerSize)
	copy(out, body)
	out = append(out, byte(typ))

	c := crc.Extend(crc.Value(body), out[len(body):len(body)+1])
	out = coding.PutFixed32(out, crc.Mask(c))
	return out
}

// Unframe validates and strips a block's trailer, returning the decompressed
// body. It fails with a Corruption status on a checksum mismatch or an
// unrecognized compression type.
func Unframe(framed []byte) ([]byte, error) {
	if len(framed) < TrailerSize {
		return nil, status.New(status.Corruption, "block: framed block shorter than trailer")
	}
	bodyLen := len(framed) - TrailerSize
	body := framed[:bodyLen]
	typ := compress.Type(framed[bodyLen])
	masked := coding.GetFixed32(framed[bodyLen+1:])

	want := crc.Unmask(masked)
	got := crc.Extend(crc.Value(body), framed[bodyLen:bodyLen+1])
	if got != want {
		return nil, status.New(status.Corruption, "block: checksum mismatch")
	}

	raw, err := compress.Decompress(typ, body)
	if err != nil {
		return nil, status.Wrap(status.Corruption, err)
	}
	return raw, nil
}
