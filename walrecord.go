package keelson

import (
	"keelson/internal/base"
	"keelson/internal/coding"
)

// encodeWALRecord packs one mutation as seqNum(fixed64) || kind(1 byte) ||
// length-prefixed key || length-prefixed value, the payload walog.Writer
// treats opaquely. Replaying it back into a memtable on reopen is out of
// scope (spec.md §6 lists LogReader as an opaque collaborator); this
// encoding exists so Append's payload isn't a bare, unframed concatenation
// of key and value with no way to tell them apart.
func encodeWALRecord(seq base.SeqNum, kind base.InternalKeyKind, key, value []byte) []byte {
	buf := make([]byte, 0, 8+1+len(key)+len(value)+8)
	buf = coding.PutFixed64(buf, uint64(seq))
	buf = append(buf, byte(kind))
	buf = coding.PutLengthPrefixed(buf, key)
	buf = coding.PutLengthPrefixed(buf, value)
	return buf
}
