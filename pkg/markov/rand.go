package markov

import "math/rand/v2"

// Rand is the source of randomness used for weighted draws and for
// picking random starting states. *rand.Rand from math/rand/v2
// satisfies it, which lets tests supply a seeded or fully scripted
// source.
type Rand interface {
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// defaultRand proxies to the shared top-level math/rand/v2 source.
type defaultRand struct{}

func (defaultRand) IntN(n int) int   { return rand.IntN(n) }
func (defaultRand) Float64() float64 { return rand.Float64() }
