// Package generator turns raw entropy bits into uniformly distributed floats.
package generator

import (
	"fmt"
	"io"
	"math"

	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/ports"
)

// BitsUsed is the number of source bits consumed per Random call: the
// significand width of a float64.
const BitsUsed = 53

// NoState is what GetState returns. The generator keeps no state of its own.
var NoState ports.State

// EntropyFloatGenerator produces floats in [0, 1) from a BitSource. Every
// call consumes fresh bits; there is nothing to seed, save or restore.
type EntropyFloatGenerator struct {
	src ports.BitSource
}

// New creates a generator that owns src.
func New(src ports.BitSource) *EntropyFloatGenerator {
	return &EntropyFloatGenerator{src: src}
}

// Random draws BitsUsed bits, most significant first, and scales them to
// [0, 1). Source errors are returned unchanged.
func (g *EntropyFloatGenerator) Random() (float64, error) {
	b, err := g.Uint(BitsUsed)
	if err != nil {
		return 0, err
	}
	return math.Ldexp(float64(b), -BitsUsed), nil
}

// Uint draws width fresh bits (at most 64) and folds them into an integer,
// first bit most significant.
func (g *EntropyFloatGenerator) Uint(width int) (uint64, error) {
	if width > 64 {
		return 0, fmt.Errorf("%w: %d bits do not fit in a uint64", entropy.ErrInvalidCount, width)
	}
	bits, err := g.src.Bits(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, bit := range bits {
		v = v<<1 | uint64(bit&1)
	}
	return v, nil
}

// Bits passes a raw request through to the source.
func (g *EntropyFloatGenerator) Bits(n int) ([]ports.Bit, error) {
	return g.src.Bits(n)
}

// Seed does nothing.
func (g *EntropyFloatGenerator) Seed(any) {}

// GetState returns NoState.
func (g *EntropyFloatGenerator) GetState() ports.State { return NoState }

// SetState does nothing.
func (g *EntropyFloatGenerator) SetState(ports.State) {}

// JumpAhead does nothing; there is no sequence to advance.
func (g *EntropyFloatGenerator) JumpAhead(int) {}

// Close closes the source if it can be closed.
func (g *EntropyFloatGenerator) Close() error {
	if c, ok := g.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ ports.RandomGenerator = (*EntropyFloatGenerator)(nil)
