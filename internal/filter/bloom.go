// Package filter implements a bloom-filter FilterPolicy and the per-range
// filter block format sstables embed (§4.4). Probe hashing is grounded on
// the AmrMurad1-Go-Store teacher candidate's sstable/filter package, which
// also reaches for github.com/spaolacci/murmur3 for its filter hash; this
// policy uses Kirsch-Mitzenmacher double hashing from two murmur3
// evaluations with different seeds to derive all k probe bits instead of instantiating k independent hash
// objects, matching leveldb's own bloom filter more closely while keeping
// the same underlying hash library.
package filter

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// Policy is a named filter algorithm: it builds a filter over a set of keys
// and later answers "might key be a member" queries against it.
type Policy interface {
	Name() string
	CreateFilter(keys [][]byte) []byte
	KeyMayMatch(key, filter []byte) bool
}

// BloomPolicy implements Policy with a standard bloom filter sized for a
// target false-positive rate. bitsPerKey is chosen by the caller; 10 bits
// per key (leveldb's default) gives roughly a 1% false-positive rate.
type BloomPolicy struct {
	bitsPerKey int
	k          int
}

// NewBloomPolicy returns a BloomPolicy using bitsPerKey bits of filter per
// added key, deriving the number of probe hashes k from it the way leveldb
// does: k = bitsPerKey * ln(2), clamped to [1, 30].
func NewBloomPolicy(bitsPerKey int) *BloomPolicy {
	if bitsPerKey < 1 {
		bitsPerKey = 1
	}
	k := int(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &BloomPolicy{bitsPerKey: bitsPerKey, k: k}
}

func (p *BloomPolicy) Name() string { return "keelson.BuiltinBloomFilter" }

// CreateFilter builds a single bitset-backed filter covering all of keys.
// The output format is: bitset bytes || u8 k (number of probes), so
// KeyMayMatch can recover k without external state.
func (p *BloomPolicy) CreateFilter(keys [][]byte) []byte {
	bits := len(keys) * p.bitsPerKey
	if bits < 64 {
		bits = 64
	}
	bytes_ := (bits + 7) / 8
	bits = bytes_ * 8

	out := make([]byte, bytes_+1)
	for _, key := range keys {
		h1, h2 := probeHashes(key)
		for i := 0; i < p.k; i++ {
			bitPos := probeBit(h1, h2, i, uint32(bits))
			out[bitPos/8] |= 1 << (bitPos % 8)
		}
	}
	out[bytes_] = byte(p.k)
	return out
}

// KeyMayMatch reports whether key might be a member of the set filter was
// built from. False positives are possible; false negatives are not.
func (p *BloomPolicy) KeyMayMatch(key, filter []byte) bool {
	if len(filter) < 2 {
		return false
	}
	k := int(filter[len(filter)-1])
	bitset := filter[:len(filter)-1]
	bits := uint32(len(bitset)) * 8

	h1, h2 := probeHashes(key)
	for i := 0; i < k; i++ {
		bitPos := probeBit(h1, h2, i, bits)
		if bitset[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
	}
	return true
}

// probeHashes derives two independent-enough 32-bit hashes from two murmur3
// evaluations of key with different seeds, the inputs to
// Kirsch-Mitzenmacher double hashing.
func probeHashes(key []byte) (h1, h2 uint32) {
	return murmur3.Sum32WithSeed(key, 0), murmur3.Sum32WithSeed(key, 0xbc9f1d34)
}

// probeBit computes the i'th probe bit position via double hashing:
// g_i(x) = h1 + i*h2 mod bits, the standard technique for synthesizing k
// hash functions from 2.
func probeBit(h1, h2 uint32, i int, bits uint32) uint32 {
	g := h1 + uint32(i)*h2
	return g % bits
}

// OptimalBitsPerKey returns the bits-per-key that achieves false-positive
// probability p, via the standard bloom filter sizing formula
// m/n = -ln(p) / (ln 2)^2.
func OptimalBitsPerKey(p float64) int {
	bits := -math.Log(p) / (math.Ln2 * math.Ln2)
	if bits < 1 {
		return 1
	}
	return int(math.Ceil(bits))
}
