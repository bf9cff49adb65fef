package entropy

import "errors"

var (
	// ErrSourceUnavailable means the entropy device could not be opened or
	// a read failed irrecoverably. It is never retried internally.
	ErrSourceUnavailable = errors.New("entropy source unavailable")

	// ErrSourceExhausted means the device signaled end-of-stream.
	ErrSourceExhausted = errors.New("entropy source exhausted")

	// ErrInvalidCount is returned for a negative bit count.
	ErrInvalidCount = errors.New("invalid bit count")

	// ErrClosed is wrapped into ErrSourceUnavailable after Close.
	ErrClosed = errors.New("entropy source closed")
)
