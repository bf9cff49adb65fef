package defaultrand

import (
	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/ports"
)

// Random returns a float in [0, 1) from the default generator.
func Random() (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return g.Random()
}

// Seed forwards to the default generator.
func Seed(v any) error {
	g, err := Default()
	if err != nil {
		return err
	}
	g.Seed(v)
	return nil
}

// GetState forwards to the default generator.
func GetState() (ports.State, error) {
	g, err := Default()
	if err != nil {
		return nil, err
	}
	return g.GetState(), nil
}

// SetState forwards to the default generator.
func SetState(s ports.State) error {
	g, err := Default()
	if err != nil {
		return err
	}
	g.SetState(s)
	return nil
}

// JumpAhead forwards to the default generator when it supports jumping and
// does nothing otherwise.
func JumpAhead(n int) error {
	g, err := Default()
	if err != nil {
		return err
	}
	if j, ok := g.(interface{ JumpAhead(int) }); ok {
		j.JumpAhead(n)
	}
	return nil
}

func Uniform(a, b float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.Uniform(g, a, b)
}

func RandRange(start, stop, step int) (int, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.RandRange(g, start, stop, step)
}

func RandInt(a, b int) (int, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.RandInt(g, a, b)
}

func Choice[T any](seq []T) (T, error) {
	g, err := Default()
	if err != nil {
		var zero T
		return zero, err
	}
	return distrib.Choice(g, seq)
}

func Shuffle(n int, swap func(i, j int)) error {
	g, err := Default()
	if err != nil {
		return err
	}
	return distrib.Shuffle(g, n, swap)
}

func Sample[T any](population []T, k int) ([]T, error) {
	g, err := Default()
	if err != nil {
		return nil, err
	}
	return distrib.Sample(g, population, k)
}

func NormalVariate(mu, sigma float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.NormalVariate(g, mu, sigma)
}

// Gauss shares one cached Box-Muller value across callers of the default
// generator. Binding a new generator drops the cached value.
func Gauss(mu, sigma float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return gauss.Gauss(g, mu, sigma)
}

func LogNormVariate(mu, sigma float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.LogNormVariate(g, mu, sigma)
}

func ExpoVariate(lambda float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.ExpoVariate(g, lambda)
}

func VonMisesVariate(mu, kappa float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.VonMisesVariate(g, mu, kappa)
}

func GammaVariate(alpha, beta float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.GammaVariate(g, alpha, beta)
}

func BetaVariate(alpha, beta float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.BetaVariate(g, alpha, beta)
}

func ParetoVariate(alpha float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.ParetoVariate(g, alpha)
}

func WeibullVariate(alpha, beta float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.WeibullVariate(g, alpha, beta)
}

func Triangular(low, high, mode float64) (float64, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return distrib.Triangular(g, low, high, mode)
}
