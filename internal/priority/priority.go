// Package priority is the process-wide source of treap balancing priorities.
// It is not safe for concurrent use: callers serialize it together with the
// containers that consume it.
package priority

import "math/rand/v2"

var source = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

// Next returns a uniformly distributed priority.
func Next() uint64 {
	return source.Uint64()
}

// Seed restarts the sequence from a fixed state, for reproducible runs.
func Seed(seed1, seed2 uint64) {
	source = rand.New(rand.NewPCG(seed1, seed2))
}
