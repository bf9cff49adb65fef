package generator

import (
	"fmt"
	"math/rand/v2"
)

type randSource struct {
	g *EntropyFloatGenerator
}

// Uint64 panics if the bit source fails: rand.Source has no error return
// and a substitute value would not be random.
func (s randSource) Uint64() uint64 {
	v, err := s.g.Uint(64)
	if err != nil {
		panic(fmt.Sprintf("truerand: entropy source failed: %v", err))
	}
	return v
}

// Source adapts the generator to math/rand/v2. Each Uint64 draws 64 fresh
// bits.
func (g *EntropyFloatGenerator) Source() rand.Source {
	return randSource{g: g}
}

// NewRand returns a *rand.Rand backed by g.
func NewRand(g *EntropyFloatGenerator) *rand.Rand {
	return rand.New(g.Source())
}
