// Package ports defines interfaces for external dependencies (Ports and Adapters pattern).
package ports

// Bit is a single binary digit, 0 or 1.
type Bit uint8

// BitSource serves fixed-size requests for random bits.
type BitSource interface {
	// Bits returns exactly n bits in the order the underlying source
	// emitted them, or an error. It never returns fewer than n bits and
	// may block until the source has entropy available.
	Bits(n int) ([]Bit, error)
}
