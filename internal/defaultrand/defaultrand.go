// Package defaultrand binds one RandomGenerator for the whole process and
// exposes package-level functions that forward to it.
package defaultrand

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/acolita/truerand/internal/adapters/realrand"
	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/generator"
	"github.com/acolita/truerand/internal/ports"
)

// ErrAlreadyInitialized is returned by Init when a generator is bound.
var ErrAlreadyInitialized = errors.New("default generator already initialized")

var (
	mu    sync.RWMutex
	inst  ports.RandomGenerator
	gauss distrib.Gaussian

	// openDefault builds the lazy default. Replaced in tests.
	openDefault = func() (ports.RandomGenerator, error) {
		return openDevice(realrand.DefaultDevicePath)
	}
)

func openDevice(path string) (*generator.EntropyFloatGenerator, error) {
	src, err := entropy.OpenDevice(path, nil)
	if err != nil {
		return nil, err
	}
	return generator.New(src), nil
}

// Init binds g if no generator is bound yet.
func Init(g ports.RandomGenerator) error {
	if g == nil {
		return fmt.Errorf("defaultrand: nil generator")
	}
	mu.Lock()
	defer mu.Unlock()
	if inst != nil {
		return ErrAlreadyInitialized
	}
	inst = g
	gauss.Reset()
	return nil
}

// Replace binds g and returns the previously bound generator, which may be
// nil. The caller owns the returned generator.
func Replace(g ports.RandomGenerator) ports.RandomGenerator {
	mu.Lock()
	defer mu.Unlock()
	prev := inst
	inst = g
	gauss.Reset()
	return prev
}

// UseDevice binds a generator reading the device at path and returns the
// previous one.
func UseDevice(path string) (ports.RandomGenerator, error) {
	g, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("default generator bound to device", slog.String("device", path))
	return Replace(g), nil
}

// Default returns the bound generator, opening the default device on first
// use.
func Default() (ports.RandomGenerator, error) {
	mu.RLock()
	g := inst
	mu.RUnlock()
	if g != nil {
		return g, nil
	}

	mu.Lock()
	defer mu.Unlock()
	if inst != nil {
		return inst, nil
	}
	g, err := openDefault()
	if err != nil {
		return nil, err
	}
	inst = g
	return inst, nil
}
