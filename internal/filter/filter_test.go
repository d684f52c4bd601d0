package filter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomPolicyNoFalseNegatives(t *testing.T) {
	p := NewBloomPolicy(10)
	keys := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
	}
	f := p.CreateFilter(keys)
	for _, k := range keys {
		require.True(t, p.KeyMayMatch(k, f))
	}
}

func TestBloomPolicyLowFalsePositiveRate(t *testing.T) {
	const n = 10000
	p := NewBloomPolicy(10)

	keys := make([][]byte, 0, n)
	for i := 1; i <= n; i++ {
		keys = append(keys, []byte(strings.Repeat("a", i)))
	}
	f := p.CreateFilter(keys)

	falsePositives := 0
	for i := 1; i <= n; i++ {
		if p.KeyMayMatch([]byte(strings.Repeat("b", i)), f) {
			falsePositives++
		}
	}
	// 10 bits/key targets a ~1% false-positive rate; leave headroom for a
	// single random trial rather than pinning the exact expectation.
	require.Less(t, falsePositives, n/50)
}

func TestFilterBlockRoundTrip(t *testing.T) {
	policy := NewBloomPolicy(10)
	b := NewBlockBuilder(policy)

	b.StartBlock(0)
	b.AddKey([]byte("apple"))
	b.AddKey([]byte("avocado"))

	b.StartBlock(1 << BaseLg)
	b.AddKey([]byte("banana"))

	b.StartBlock(3 << BaseLg)
	b.AddKey([]byte("cherry"))

	data := b.Finish()

	r, err := NewReader(policy, data)
	require.NoError(t, err)

	require.True(t, r.KeyMayMatch(0, []byte("apple")))
	require.True(t, r.KeyMayMatch(100, []byte("avocado")))
	require.True(t, r.KeyMayMatch(1<<BaseLg, []byte("banana")))
	require.True(t, r.KeyMayMatch(3<<BaseLg, []byte("cherry")))
	require.False(t, r.KeyMayMatch(1<<BaseLg, []byte("cherry")))
}

func TestInternalPolicyStripsTrailer(t *testing.T) {
	inner := NewBloomPolicy(10)
	p := InternalPolicy{User: inner}

	userKey := []byte("age")
	internalKey := append(append([]byte{}, userKey...), make([]byte, 8)...)

	f := p.CreateFilter([][]byte{internalKey})
	require.True(t, p.KeyMayMatch(internalKey, f))
	require.True(t, inner.KeyMayMatch(userKey, f))
}
