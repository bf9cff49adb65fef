package defaultrand

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/generator"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/testing/fakes/fakebits"
	"github.com/acolita/truerand/internal/testing/fakes/fakegen"
)

// reset clears the binding and restores the lazy opener after the test.
func reset(t *testing.T) {
	t.Helper()
	orig := openDefault
	Replace(nil)
	t.Cleanup(func() {
		openDefault = orig
		Replace(nil)
	})
}

func TestInit(t *testing.T) {
	reset(t)

	first := fakegen.New(0.1)
	if err := Init(first); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Init(fakegen.New(0.9)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}

	v, err := Random()
	if err != nil {
		t.Fatalf("Random() error = %v", err)
	}
	if v != 0.1 {
		t.Errorf("Random() = %v, want value from first generator", v)
	}

	if err := Init(nil); err == nil {
		t.Error("Init(nil) should fail")
	}
}

func TestReplace(t *testing.T) {
	reset(t)

	a := fakegen.NewCycling(0.2)
	b := fakegen.NewCycling(0.8)

	if prev := Replace(a); prev != nil {
		t.Errorf("Replace() on empty binding returned %v", prev)
	}
	if prev := Replace(b); prev != ports.RandomGenerator(a) {
		t.Errorf("Replace() returned %v, want previous generator", prev)
	}

	v, err := Random()
	if err != nil || v != 0.8 {
		t.Errorf("Random() = (%v, %v), want 0.8 from replacement", v, err)
	}
}

func TestDefault_Lazy(t *testing.T) {
	reset(t)

	opened := 0
	lazy := fakegen.NewCycling(0.5)
	openDefault = func() (ports.RandomGenerator, error) {
		opened++
		return lazy, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Random(); err != nil {
				t.Errorf("Random() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if opened != 1 {
		t.Errorf("default opened %d times, want 1", opened)
	}
	if lazy.Calls() != 8 {
		t.Errorf("lazy generator served %d draws, want 8", lazy.Calls())
	}
}

func TestDefault_OpenFailure(t *testing.T) {
	reset(t)

	openDefault = func() (ports.RandomGenerator, error) {
		return nil, entropy.ErrSourceUnavailable
	}

	if _, err := Random(); !errors.Is(err, entropy.ErrSourceUnavailable) {
		t.Errorf("Random() error = %v, want ErrSourceUnavailable", err)
	}
	if err := Seed(1); !errors.Is(err, entropy.ErrSourceUnavailable) {
		t.Errorf("Seed() error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := Choice([]int{1}); !errors.Is(err, entropy.ErrSourceUnavailable) {
		t.Errorf("Choice() error = %v, want ErrSourceUnavailable", err)
	}

	// A failed open is retried on the next call.
	openDefault = func() (ports.RandomGenerator, error) {
		return fakegen.NewCycling(0.3), nil
	}
	if v, err := Random(); err != nil || v != 0.3 {
		t.Errorf("Random() after recovery = (%v, %v), want 0.3", v, err)
	}
}

func TestUseDevice(t *testing.T) {
	reset(t)

	path := filepath.Join(t.TempDir(), "rng")
	// 0x80 then six zero bytes is exactly 0.5.
	if err := os.WriteFile(path, []byte{0x80, 0, 0, 0, 0, 0, 0}, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := UseDevice(path); err != nil {
		t.Fatalf("UseDevice() error = %v", err)
	}
	v, err := Random()
	if err != nil {
		t.Fatalf("Random() error = %v", err)
	}
	if v != 0.5 {
		t.Errorf("Random() = %v, want 0.5", v)
	}
	if _, err := Random(); !errors.Is(err, entropy.ErrSourceExhausted) {
		t.Errorf("Random() past end error = %v, want ErrSourceExhausted", err)
	}

	if _, err := UseDevice(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, entropy.ErrSourceUnavailable) {
		t.Errorf("UseDevice(missing) error = %v, want ErrSourceUnavailable", err)
	}
}

func TestForwarding(t *testing.T) {
	reset(t)

	g := fakegen.NewCycling(0.5)
	Replace(g)

	if err := Seed("ignored"); err != nil {
		t.Fatal(err)
	}
	if err := SetState("snap"); err != nil {
		t.Fatal(err)
	}
	if st, err := GetState(); err != nil || st != "snap" {
		t.Errorf("GetState() = (%v, %v), want forwarded state", st, err)
	}
	if seeds := g.Seeds(); len(seeds) != 1 {
		t.Errorf("Seed forwarded %d times, want 1", len(seeds))
	}

	checks := []struct {
		name string
		draw func() (float64, error)
		want float64
	}{
		{"Uniform", func() (float64, error) { return Uniform(0, 4) }, 2},
		{"NormalVariate", func() (float64, error) { return NormalVariate(0, 1) }, 0},
		{"Triangular", func() (float64, error) { return Triangular(0, 2, 1) }, 1},
		{"ParetoVariate", func() (float64, error) { return ParetoVariate(1) }, 2},
		{"VonMisesVariate", func() (float64, error) { return VonMisesVariate(0, 0) }, 3.141592653589793},
	}
	for _, c := range checks {
		got, err := c.draw()
		if err != nil {
			t.Errorf("%s() error = %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s() = %v, want %v", c.name, got, c.want)
		}
	}

	if n, err := RandInt(1, 4); err != nil || n != 3 {
		t.Errorf("RandInt(1, 4) = (%d, %v), want 3", n, err)
	}
	if n, err := RandRange(0, 10, 2); err != nil || n != 4 {
		t.Errorf("RandRange(0, 10, 2) = (%d, %v), want 4", n, err)
	}
	if s, err := Choice([]string{"x", "y"}); err != nil || s != "y" {
		t.Errorf("Choice() = (%q, %v), want y", s, err)
	}
	if got, err := Sample([]int{1, 2, 3}, 3); err != nil || len(got) != 3 {
		t.Errorf("Sample() = (%v, %v)", got, err)
	}
	items := []int{1, 2, 3}
	if err := Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] }); err != nil {
		t.Errorf("Shuffle() error = %v", err)
	}
	for _, f := range []func() (float64, error){
		func() (float64, error) { return Gauss(0, 1) },
		func() (float64, error) { return LogNormVariate(0, 1) },
		func() (float64, error) { return ExpoVariate(1) },
		func() (float64, error) { return GammaVariate(2, 1) },
		func() (float64, error) { return BetaVariate(2, 2) },
		func() (float64, error) { return WeibullVariate(1, 1) },
	} {
		if _, err := f(); err != nil {
			t.Errorf("forwarded draw error = %v", err)
		}
	}
}

func TestGauss_CacheDroppedOnReplace(t *testing.T) {
	reset(t)

	first := fakegen.NewCycling(0.1, 0.2)
	Replace(first)
	if _, err := Gauss(0, 1); err != nil {
		t.Fatal(err)
	}

	second := fakegen.NewCycling(0.1, 0.2)
	Replace(second)
	if _, err := Gauss(0, 1); err != nil {
		t.Fatal(err)
	}
	if second.Calls() != 2 {
		t.Errorf("new generator served %d draws, want 2 (cached value leaked across Replace)", second.Calls())
	}
}

type jumpingGen struct {
	*fakegen.Generator
	jumps []int
}

func (j *jumpingGen) JumpAhead(n int) { j.jumps = append(j.jumps, n) }

func TestJumpAhead(t *testing.T) {
	reset(t)

	j := &jumpingGen{Generator: fakegen.New()}
	Replace(j)
	if err := JumpAhead(7); err != nil {
		t.Fatalf("JumpAhead() error = %v", err)
	}
	if len(j.jumps) != 1 || j.jumps[0] != 7 {
		t.Errorf("jumps = %v, want [7]", j.jumps)
	}

	plain := fakegen.New()
	Replace(plain)
	if err := JumpAhead(3); err != nil {
		t.Errorf("JumpAhead() on a generator without it = %v, want nil", err)
	}
	if plain.Calls() != 0 {
		t.Errorf("JumpAhead drew %d values", plain.Calls())
	}
}

func TestJumpAhead_EntropyGeneratorIsNoOp(t *testing.T) {
	reset(t)

	src := fakebits.New(nil)
	Replace(generator.New(src))
	if err := JumpAhead(1000); err != nil {
		t.Fatalf("JumpAhead() error = %v", err)
	}
	if len(src.Requests()) != 0 {
		t.Errorf("JumpAhead read from the source: %v", src.Requests())
	}
}
