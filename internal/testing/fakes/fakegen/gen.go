// Package fakegen provides a scripted RandomGenerator for testing.
package fakegen

import (
	"errors"
	"sync"

	"github.com/acolita/truerand/internal/ports"
)

// ErrScriptExhausted is returned once a non-cycling script runs out.
var ErrScriptExhausted = errors.New("fakegen: script exhausted")

// Generator replays a list of floats from Random and records the calls made
// to its seed and state methods.
type Generator struct {
	mu      sync.Mutex
	values  []float64
	offset  int
	cycle   bool
	calls   int
	seeds   []any
	states  []ports.State
	state   ports.State
	block   chan struct{}
	started chan struct{}

	// Err, when set, is returned by every Random call.
	Err error
}

// New creates a generator that returns values in order, then fails.
func New(values ...float64) *Generator {
	return &Generator{values: values}
}

// NewCycling creates a generator that repeats values forever.
func NewCycling(values ...float64) *Generator {
	g := New(values...)
	g.cycle = true
	return g
}

// NewBlocking creates a generator whose Random blocks until Release.
// Started is closed when the first call begins waiting.
func NewBlocking(values ...float64) *Generator {
	g := NewCycling(values...)
	g.block = make(chan struct{})
	g.started = make(chan struct{})
	return g
}

// Started is closed once a Random call is blocked. Nil unless blocking.
func (g *Generator) Started() <-chan struct{} {
	return g.started
}

// Release unblocks pending and future Random calls.
func (g *Generator) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.block != nil {
		close(g.block)
		g.block = nil
	}
}

// Random returns the next scripted value.
func (g *Generator) Random() (float64, error) {
	g.mu.Lock()
	block := g.block
	if block != nil && g.started != nil {
		select {
		case <-g.started:
		default:
			close(g.started)
		}
	}
	g.mu.Unlock()
	if block != nil {
		<-block
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.Err != nil {
		return 0, g.Err
	}
	if g.offset >= len(g.values) && (!g.cycle || len(g.values) == 0) {
		return 0, ErrScriptExhausted
	}
	v := g.values[g.offset%len(g.values)]
	g.offset++
	return v, nil
}

// Seed records v.
func (g *Generator) Seed(v any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seeds = append(g.seeds, v)
}

// GetState returns the last state passed to SetState.
func (g *Generator) GetState() ports.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SetState records s.
func (g *Generator) SetState(s ports.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states = append(g.states, s)
	g.state = s
}

// Calls returns the number of Random calls that completed.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Seeds returns every value passed to Seed.
func (g *Generator) Seeds() []any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]any(nil), g.seeds...)
}

// States returns every value passed to SetState.
func (g *Generator) States() []ports.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.State(nil), g.states...)
}

// Remaining returns how many scripted values are left.
func (g *Generator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.values) - g.offset
}

var _ ports.RandomGenerator = (*Generator)(nil)
