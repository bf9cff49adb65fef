// Package distrib derives integer, sequence and continuous distributions
// from a RandomGenerator's uniform floats. Every function propagates the
// generator's errors and never substitutes a value of its own.
package distrib

import (
	"errors"
	"fmt"
	"math"

	"github.com/acolita/truerand/internal/ports"
)

// ErrInvalidArgument reports parameters a distribution cannot accept.
var ErrInvalidArgument = errors.New("invalid argument")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Uniform returns a value in [a, b) (or [b, a) when b < a).
func Uniform(g ports.RandomGenerator, a, b float64) (float64, error) {
	r, err := g.Random()
	if err != nil {
		return 0, err
	}
	return a + (b-a)*r, nil
}

// below returns an integer in [0, n) for n > 0.
func below(g ports.RandomGenerator, n int) (int, error) {
	i, err := belowUint(g, uint64(n))
	return int(i), err
}

// bitDrawer is implemented by generators that can hand out raw bits.
type bitDrawer interface {
	Uint(width int) (uint64, error)
}

// belowUint returns an integer in [0, n). n == 0 stands for the full 2^64
// span, which a bit-capable generator fills with 64 raw bits.
func belowUint(g ports.RandomGenerator, n uint64) (uint64, error) {
	if n == 0 {
		if bd, ok := g.(bitDrawer); ok {
			return bd.Uint(64)
		}
	}
	r, err := g.Random()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return uint64(math.Ldexp(r, 64)), nil
	}
	i := uint64(math.Floor(r * float64(n)))
	// r*n can round up to n when n exceeds 2^53.
	if i >= n {
		i = n - 1
	}
	return i, nil
}

// RandRange returns a random element of range(start, stop, step). Widths
// are computed in uint64 so ranges spanning most of int never overflow.
func RandRange(g ports.RandomGenerator, start, stop, step int) (int, error) {
	if step == 0 {
		return 0, invalid("zero step for randrange()")
	}

	var width, stride uint64
	if step > 0 {
		if stop <= start {
			return 0, invalid("empty range for randrange(%d, %d, %d)", start, stop, step)
		}
		width = uint64(stop) - uint64(start)
		stride = uint64(step)
	} else {
		if stop >= start {
			return 0, invalid("empty range for randrange(%d, %d, %d)", start, stop, step)
		}
		width = uint64(start) - uint64(stop)
		stride = -uint64(step)
	}

	n := (width-1)/stride + 1
	i, err := belowUint(g, n)
	if err != nil {
		return 0, err
	}
	return int(uint64(start) + uint64(step)*i), nil
}

// RandInt returns an integer in [a, b], both ends included.
func RandInt(g ports.RandomGenerator, a, b int) (int, error) {
	if b < a {
		return 0, invalid("empty range for randint(%d, %d)", a, b)
	}
	// Wraps to 0 for the full int span, which belowUint treats as 2^64.
	span := uint64(b) - uint64(a) + 1
	i, err := belowUint(g, span)
	if err != nil {
		return 0, err
	}
	return int(uint64(a) + i), nil
}

// Choice returns a random element of seq.
func Choice[T any](g ports.RandomGenerator, seq []T) (T, error) {
	var zero T
	if len(seq) == 0 {
		return zero, invalid("cannot choose from an empty sequence")
	}
	i, err := below(g, len(seq))
	if err != nil {
		return zero, err
	}
	return seq[i], nil
}

// Shuffle permutes n elements in place with Fisher-Yates, walking from the
// last index down. On error the elements are partially shuffled.
func Shuffle(g ports.RandomGenerator, n int, swap func(i, j int)) error {
	if n < 0 {
		return invalid("negative length %d", n)
	}
	for i := n - 1; i > 0; i-- {
		j, err := below(g, i+1)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}

// Sample returns k distinct elements of population in selection order.
// population itself is not modified.
func Sample[T any](g ports.RandomGenerator, population []T, k int) ([]T, error) {
	n := len(population)
	if k < 0 || k > n {
		return nil, invalid("sample larger than population or is negative")
	}

	pool := make([]T, n)
	copy(pool, population)
	out := make([]T, k)
	for i := 0; i < k; i++ {
		j, err := below(g, n-i)
		if err != nil {
			return nil, err
		}
		out[i] = pool[j]
		pool[j] = pool[n-i-1]
	}
	return out, nil
}
