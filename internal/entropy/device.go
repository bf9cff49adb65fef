// Package entropy turns byte-oriented entropy devices into bit sources.
//
// A DeviceBitSource reads one byte at a time from its device and unpacks it
// most significant bit first. Surplus bits from the last byte of a request
// are discarded rather than carried into the next request, so a source holds
// no state between calls besides its device handle.
package entropy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/acolita/truerand/internal/adapters/realrand"
	"github.com/acolita/truerand/internal/ports"
)

// DeviceBitSource implements ports.BitSource over an EntropyDevice.
// Calls to Bits are serialized so bytes from two requests never interleave.
// Close does not wait for an in-flight read; closing the device is what
// unblocks it.
type DeviceBitSource struct {
	readMu sync.Mutex
	dev    ports.EntropyDevice
	name   string
	closed atomic.Bool
}

// NewDeviceBitSource wraps an already opened device. The source takes
// ownership of dev and closes it in Close.
func NewDeviceBitSource(dev ports.EntropyDevice, name string) *DeviceBitSource {
	return &DeviceBitSource{dev: dev, name: name}
}

// OpenDevice opens the device at path once and wraps it.
// A nil opener uses the real filesystem.
func OpenDevice(path string, opener ports.DeviceOpener) (*DeviceBitSource, error) {
	if opener == nil {
		opener = realrand.NewOpener()
	}

	dev, err := opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSourceUnavailable, path, err)
	}

	slog.Debug("opened entropy device", slog.String("device", path))
	return NewDeviceBitSource(dev, path), nil
}

// Name returns the device label used in logs and errors.
func (s *DeviceBitSource) Name() string {
	return s.name
}

// Bits returns exactly n bits, blocking while the device has no entropy.
func (s *DeviceBitSource) Bits(n int) ([]ports.Bit, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if n == 0 {
		return []ports.Bit{}, nil
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.closed.Load() {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.name, ErrClosed)
	}

	bits := make([]ports.Bit, 0, (n+7)&^7)
	var buf [1]byte
	for len(bits) < n {
		b, err := s.readByte(buf[:])
		if err != nil {
			return nil, err
		}
		bits = AppendByte(bits, b)
	}

	return bits[:n], nil
}

// readByte reads exactly one byte from the device.
func (s *DeviceBitSource) readByte(buf []byte) (byte, error) {
	n, err := s.dev.Read(buf)
	if n == 1 {
		return buf[0], nil
	}
	if s.closed.Load() {
		return 0, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.name, ErrClosed)
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, fmt.Errorf("%w: %s", ErrSourceExhausted, s.name)
	case err != nil:
		return 0, fmt.Errorf("%w: read %s: %w", ErrSourceUnavailable, s.name, err)
	default:
		return 0, fmt.Errorf("%w: read %s: empty read", ErrSourceUnavailable, s.name)
	}
}

// Close releases the device handle. It is safe to call more than once.
func (s *DeviceBitSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	slog.Debug("closing entropy device", slog.String("device", s.name))
	return s.dev.Close()
}

// AppendByte appends the 8 bits of b to bits, bit 7 first.
func AppendByte(bits []ports.Bit, b byte) []ports.Bit {
	for shift := 7; shift >= 0; shift-- {
		bits = append(bits, ports.Bit((b>>uint(shift))&1))
	}
	return bits
}

// Ensure DeviceBitSource implements ports.BitSource.
var _ ports.BitSource = (*DeviceBitSource)(nil)
