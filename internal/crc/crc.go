// Package crc implements the masked CRC32C checksum used to verify every
// on-disk block trailer. No repo in the retrieval pack vendors a standalone
// crc32c package (pebble's block checksums go through an internal/crc
// package whose source was never retrieved — only call sites referencing it
// survived), so this is built on the standard library's hash/crc32 with the
// Castagnoli polynomial table, which is the same table every pack repo's
// checksum code ultimately relies on.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is leveldb's crc masking constant. Masking guards against
// crc32c(crc32c(s)) collisions with crc32c(s) for short strings, and against
// misidentifying a CRC value embedded in the data it covers.
const maskDelta = 0xa282ead8

// Value returns the unmasked CRC32C checksum of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, table)
}

// Extend returns the CRC32C checksum of base extended by data, without
// recomputing base's checksum from scratch.
func Extend(base uint32, data []byte) uint32 {
	return crc32.Update(base, table, data)
}

// Mask transforms a checksum into a form suitable for storage in a trailer.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask is the inverse of Mask.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot >> 17) | (rot << 15)
}
