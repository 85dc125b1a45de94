package learning

import "math/rand/v2"

// RandSource is the only randomness the learning package uses. Tests plug in
// a fixed permutation to assert exact selections.
type RandSource interface {
	// Perm returns a permutation of [0, n).
	Perm(n int) []int
}

// processRand draws from the runtime's global generator, which is seeded per
// process and safe for concurrent use.
type processRand struct{}

func (processRand) Perm(n int) []int { return rand.Perm(n) }

// DefaultRand is the RandSource used when none is injected.
var DefaultRand RandSource = processRand{}

// sample returns up to k items of pool in the order given by src.
func sample[T any](src RandSource, pool []T, k int) []T {
	if len(pool) == 0 || k <= 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	perm := src.Perm(len(pool))
	out := make([]T, 0, k)
	for _, i := range perm[:k] {
		out = append(out, pool[i])
	}
	return out
}
