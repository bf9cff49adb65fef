// Package timeout bounds how long a caller waits for a draw from a
// generator whose source may block.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acolita/truerand/internal/adapters/realclock"
	"github.com/acolita/truerand/internal/ports"
)

// ErrTimeout is returned when a draw does not finish in time.
var ErrTimeout = errors.New("entropy source timed out")

// Gate admits one draw at a time. A draw abandoned on timeout holds the
// gate until its source returns, so later callers wait on the gate (and
// time out there) instead of each parking another goroutine on a stalled
// device.
type Gate struct {
	slot chan struct{}
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{slot: make(chan struct{}, 1)}
}

// Pending reports whether a draw currently holds the gate.
func (g *Gate) Pending() bool {
	return len(g.slot) == 1
}

// Generator races each draw of an underlying generator against a deadline.
// A draw that loses the race keeps running in the background, since a
// device read cannot be interrupted; its result is thrown away. At most one
// such draw is outstanding per Generator.
type Generator struct {
	g    ports.RandomGenerator
	d    time.Duration
	clk  ports.Clock
	gate *Gate
}

// New wraps g. A d of zero or less means no deadline; RandomContext still
// honours the context. A nil clk uses the real clock.
func New(g ports.RandomGenerator, d time.Duration, clk ports.Clock) *Generator {
	if clk == nil {
		clk = realclock.New()
	}
	return &Generator{g: g, d: d, clk: clk, gate: NewGate()}
}

// Wrap is New for callers that only need the RandomGenerator interface. It
// returns g itself when d <= 0.
func Wrap(g ports.RandomGenerator, d time.Duration, clk ports.Clock) ports.RandomGenerator {
	if d <= 0 {
		return g
	}
	return New(g, d, clk)
}

// Timeout returns the per-draw deadline.
func (t *Generator) Timeout() time.Duration {
	return t.d
}

// Unwrap returns the underlying generator.
func (t *Generator) Unwrap() ports.RandomGenerator {
	return t.g
}

type result[T any] struct {
	v   T
	err error
}

// Random draws from the underlying generator, giving up after the deadline.
func (t *Generator) Random() (float64, error) {
	return t.RandomContext(context.Background())
}

// RandomContext is Random, also giving up when ctx is done.
func (t *Generator) RandomContext(ctx context.Context) (float64, error) {
	return DoGated(ctx, t.gate, t.d, t.clk, t.g.Random)
}

// Do runs fn and waits for it until d elapses on clk (d <= 0 waits without
// a deadline) or ctx is done. When Do gives up, fn keeps running and its
// result is dropped. Each abandoned call leaves one goroutine behind until
// fn returns, so callers that retry against a stalled source should use
// DoGated.
func Do[T any](ctx context.Context, d time.Duration, clk ports.Clock, fn func() (T, error)) (T, error) {
	return DoGated(ctx, nil, d, clk, fn)
}

// DoGated is Do, but fn only starts once gate is free. The deadline covers
// the wait for the gate too. A nil gate admits every call.
func DoGated[T any](ctx context.Context, gate *Gate, d time.Duration, clk ports.Clock, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var expired <-chan time.Time
	if d > 0 {
		if clk == nil {
			clk = realclock.New()
		}
		expired = clk.After(d)
	}

	if gate != nil {
		select {
		case gate.slot <- struct{}{}:
		case <-expired:
			slog.Warn("entropy draw timed out waiting for a pending draw", slog.Duration("timeout", d))
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		case <-ctx.Done():
			return zero, contextErr(ctx)
		}
	}

	done := make(chan result[T], 1)
	go func() {
		v, err := fn()
		if gate != nil {
			<-gate.slot
		}
		done <- result[T]{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-expired:
		slog.Warn("entropy draw timed out", slog.Duration("timeout", d))
		return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
	case <-ctx.Done():
		return zero, contextErr(ctx)
	}
}

func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}

// Seed forwards to the underlying generator.
func (t *Generator) Seed(v any) { t.g.Seed(v) }

// GetState forwards to the underlying generator.
func (t *Generator) GetState() ports.State { return t.g.GetState() }

// SetState forwards to the underlying generator.
func (t *Generator) SetState(s ports.State) { t.g.SetState(s) }

// RandomContext draws from g, bounded by ctx. Generators that support
// contexts natively are called directly.
func RandomContext(ctx context.Context, g ports.RandomGenerator) (float64, error) {
	if cg, ok := g.(interface {
		RandomContext(context.Context) (float64, error)
	}); ok {
		return cg.RandomContext(ctx)
	}
	return New(g, 0, nil).RandomContext(ctx)
}

var _ ports.RandomGenerator = (*Generator)(nil)
