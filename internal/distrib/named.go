package distrib

import (
	"sort"
	"strings"

	"github.com/acolita/truerand/internal/ports"
)

// Distribution is a continuous distribution selectable by name.
type Distribution struct {
	Name   string
	Params []string
	draw   func(g ports.RandomGenerator, p []float64) (float64, error)
}

// Draw samples once with params, which must match d.Params in length.
func (d Distribution) Draw(g ports.RandomGenerator, params []float64) (float64, error) {
	if len(params) != len(d.Params) {
		return 0, invalid("%s takes %d parameters (%s), got %d",
			d.Name, len(d.Params), strings.Join(d.Params, ", "), len(params))
	}
	return d.draw(g, params)
}

var distributions = map[string]Distribution{
	"random": {Name: "random", draw: func(g ports.RandomGenerator, _ []float64) (float64, error) {
		return g.Random()
	}},
	"uniform": {Name: "uniform", Params: []string{"a", "b"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return Uniform(g, p[0], p[1])
	}},
	"normal": {Name: "normal", Params: []string{"mu", "sigma"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return NormalVariate(g, p[0], p[1])
	}},
	"gauss": {Name: "gauss", Params: []string{"mu", "sigma"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return Gauss(g, p[0], p[1])
	}},
	"lognormal": {Name: "lognormal", Params: []string{"mu", "sigma"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return LogNormVariate(g, p[0], p[1])
	}},
	"expo": {Name: "expo", Params: []string{"lambda"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return ExpoVariate(g, p[0])
	}},
	"vonmises": {Name: "vonmises", Params: []string{"mu", "kappa"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return VonMisesVariate(g, p[0], p[1])
	}},
	"gamma": {Name: "gamma", Params: []string{"alpha", "beta"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return GammaVariate(g, p[0], p[1])
	}},
	"beta": {Name: "beta", Params: []string{"alpha", "beta"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return BetaVariate(g, p[0], p[1])
	}},
	"pareto": {Name: "pareto", Params: []string{"alpha"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return ParetoVariate(g, p[0])
	}},
	"weibull": {Name: "weibull", Params: []string{"alpha", "beta"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return WeibullVariate(g, p[0], p[1])
	}},
	"triangular": {Name: "triangular", Params: []string{"low", "high", "mode"}, draw: func(g ports.RandomGenerator, p []float64) (float64, error) {
		return Triangular(g, p[0], p[1], p[2])
	}},
}

// Lookup returns the distribution registered under name (case-insensitive).
func Lookup(name string) (Distribution, error) {
	d, ok := distributions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Distribution{}, invalid("unknown distribution %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the registered distributions in sorted order.
func Names() []string {
	names := make([]string, 0, len(distributions))
	for name := range distributions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DrawN samples n values from the named distribution.
func DrawN(g ports.RandomGenerator, name string, params []float64, n int) ([]float64, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, invalid("negative count %d", n)
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Draw(g, params)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
