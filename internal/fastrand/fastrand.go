// Package fastrand provides the random source the skip list uses to sample
// tower heights. The teacher repo's skip list imports a boulder-internal
// fastrand package that is never defined anywhere in the retrieved source
// (only the call site survives); pebble's own arenaskl equivalent ships only
// a benchmark file with no underlying implementation either, relying on a
// runtime-linked source that isn't portable outside that repo. Per-goroutine
// math/rand/v2 is the standard-library substitute: it needs no global lock
// and is safe for concurrent use, which is the property the skip list's
// concurrent inserters actually depend on.
package fastrand

import "math/rand/v2"

// Uint32 returns a pseudo-random uint32 from a goroutine-local source.
func Uint32() uint32 {
	return rand.Uint32()
}
