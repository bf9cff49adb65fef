// Package fakebits provides a scripted BitSource for testing.
package fakebits

import (
	"fmt"
	"sync"

	"github.com/acolita/truerand/internal/ports"
)

// Source replays a fixed bit script. Each Bits call consumes fresh bits;
// nothing is ever served twice.
type Source struct {
	mu       sync.Mutex
	script   []ports.Bit
	offset   int
	requests []int
	closed   bool

	// Err, when set, is returned by every Bits call.
	Err error
}

// New creates a source that serves bits in order.
func New(bits []ports.Bit) *Source {
	return &Source{script: bits}
}

// FromUint64s creates a source whose script is each value's low width bits,
// most significant first.
func FromUint64s(width int, values ...uint64) *Source {
	bits := make([]ports.Bit, 0, width*len(values))
	for _, v := range values {
		for i := width - 1; i >= 0; i-- {
			bits = append(bits, ports.Bit((v>>uint(i))&1))
		}
	}
	return New(bits)
}

// Bits returns the next n bits of the script.
func (s *Source) Bits(n int) ([]ports.Bit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, n)
	if s.Err != nil {
		return nil, s.Err
	}
	if s.offset+n > len(s.script) {
		return nil, fmt.Errorf("fakebits: script exhausted (want %d, have %d)", n, len(s.script)-s.offset)
	}

	out := make([]ports.Bit, n)
	copy(out, s.script[s.offset:s.offset+n])
	s.offset += n
	return out, nil
}

// Close records that the source was closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Requests returns the n of every Bits call, in order.
func (s *Source) Requests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requests...)
}

// Remaining returns the number of unserved bits.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script) - s.offset
}

// Ensure Source implements ports.BitSource.
var _ ports.BitSource = (*Source)(nil)
