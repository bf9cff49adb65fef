package distrib

import (
	"math"
	"sync"

	"github.com/acolita/truerand/internal/ports"
)

var (
	nvMagicConst = 4 * math.Exp(-0.5) / math.Sqrt(2.0)
	log4         = math.Log(4.0)
	sgMagicConst = 1.0 + math.Log(4.5)
)

const twoPi = 2.0 * math.Pi

// NormalVariate draws from a normal distribution with the Kinderman and
// Monahan ratio-of-uniforms method.
func NormalVariate(g ports.RandomGenerator, mu, sigma float64) (float64, error) {
	var z float64
	for {
		u1, err := g.Random()
		if err != nil {
			return 0, err
		}
		r, err := g.Random()
		if err != nil {
			return 0, err
		}
		u2 := 1.0 - r
		z = nvMagicConst * (u1 - 0.5) / u2
		zz := z * z / 4.0
		if zz <= -math.Log(u2) {
			break
		}
	}
	return mu + z*sigma, nil
}

// Gaussian caches the second value of each Box-Muller pair. The zero value
// is ready to use. The generator stays stateless; whoever holds the
// Gaussian holds the cached value.
type Gaussian struct {
	mu   sync.Mutex
	next float64
	ok   bool
}

// Gauss draws from a normal distribution, returning the cached half of the
// previous pair when there is one.
func (h *Gaussian) Gauss(g ports.RandomGenerator, mu, sigma float64) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ok {
		h.ok = false
		return mu + h.next*sigma, nil
	}

	z, other, err := boxMuller(g)
	if err != nil {
		return 0, err
	}
	h.next, h.ok = other, true
	return mu + z*sigma, nil
}

// Reset drops the cached value.
func (h *Gaussian) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ok = false
}

// Gauss draws one Box-Muller value and discards its pair.
func Gauss(g ports.RandomGenerator, mu, sigma float64) (float64, error) {
	z, _, err := boxMuller(g)
	if err != nil {
		return 0, err
	}
	return mu + z*sigma, nil
}

func boxMuller(g ports.RandomGenerator) (float64, float64, error) {
	r1, err := g.Random()
	if err != nil {
		return 0, 0, err
	}
	r2, err := g.Random()
	if err != nil {
		return 0, 0, err
	}
	x2pi := r1 * twoPi
	g2rad := math.Sqrt(-2.0 * math.Log(1.0-r2))
	return math.Cos(x2pi) * g2rad, math.Sin(x2pi) * g2rad, nil
}

// LogNormVariate returns exp of a normal draw with mean mu and deviation
// sigma.
func LogNormVariate(g ports.RandomGenerator, mu, sigma float64) (float64, error) {
	v, err := NormalVariate(g, mu, sigma)
	if err != nil {
		return 0, err
	}
	return math.Exp(v), nil
}

// ExpoVariate draws from an exponential distribution with rate lambda.
// A negative lambda gives values in (-inf, 0].
func ExpoVariate(g ports.RandomGenerator, lambda float64) (float64, error) {
	if lambda == 0 {
		return 0, invalid("expovariate lambda must be non-zero")
	}
	r, err := g.Random()
	if err != nil {
		return 0, err
	}
	return -math.Log(1.0-r) / lambda, nil
}

// VonMisesVariate draws an angle in [0, 2*pi) around mu with concentration
// kappa. A kappa near zero gives a uniform angle.
func VonMisesVariate(g ports.RandomGenerator, mu, kappa float64) (float64, error) {
	if kappa <= 1e-6 {
		r, err := g.Random()
		if err != nil {
			return 0, err
		}
		return twoPi * r, nil
	}

	s := 0.5 / kappa
	r := s + math.Sqrt(1.0+s*s)

	var z float64
	for {
		u1, err := g.Random()
		if err != nil {
			return 0, err
		}
		z = math.Cos(math.Pi * u1)
		d := z / (r + z)
		u2, err := g.Random()
		if err != nil {
			return 0, err
		}
		if u2 < 1.0-d*d || u2 <= (1.0-d)*math.Exp(d) {
			break
		}
	}

	q := 1.0 / r
	f := (q + z) / (1.0 + q*z)
	u3, err := g.Random()
	if err != nil {
		return 0, err
	}

	var theta float64
	if u3 > 0.5 {
		theta = math.Mod(mu+math.Acos(f), twoPi)
	} else {
		theta = math.Mod(mu-math.Acos(f), twoPi)
	}
	if theta < 0 {
		theta += twoPi
	}
	return theta, nil
}

// GammaVariate draws from a gamma distribution with shape alpha and scale
// beta. Both must be positive.
func GammaVariate(g ports.RandomGenerator, alpha, beta float64) (float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, invalid("gammavariate: alpha and beta must be > 0.0")
	}

	switch {
	case alpha > 1.0:
		// Cheng's rejection algorithm GB.
		ainv := math.Sqrt(2.0*alpha - 1.0)
		bbb := alpha - log4
		ccc := alpha + ainv
		for {
			u1, err := g.Random()
			if err != nil {
				return 0, err
			}
			if !(1e-7 < u1 && u1 < 0.9999999) {
				continue
			}
			r2, err := g.Random()
			if err != nil {
				return 0, err
			}
			u2 := 1.0 - r2
			v := math.Log(u1/(1.0-u1)) / ainv
			x := alpha * math.Exp(v)
			z := u1 * u1 * u2
			r := bbb + ccc*v - x
			if r+sgMagicConst-4.5*z >= 0.0 || r >= math.Log(z) {
				return x * beta, nil
			}
		}

	case alpha == 1.0:
		r, err := g.Random()
		if err != nil {
			return 0, err
		}
		return -math.Log(1.0-r) * beta, nil

	default:
		// Ahrens and Dieter algorithm GS for 0 < alpha < 1.
		b := (math.E + alpha) / math.E
		for {
			u, err := g.Random()
			if err != nil {
				return 0, err
			}
			p := b * u
			var x float64
			if p <= 1.0 {
				x = math.Pow(p, 1.0/alpha)
			} else {
				x = -math.Log((b - p) / alpha)
			}
			u1, err := g.Random()
			if err != nil {
				return 0, err
			}
			if p > 1.0 {
				if u1 <= math.Pow(x, alpha-1.0) {
					return x * beta, nil
				}
			} else if u1 <= math.Exp(-x) {
				return x * beta, nil
			}
		}
	}
}

// BetaVariate draws from a beta distribution in [0, 1].
func BetaVariate(g ports.RandomGenerator, alpha, beta float64) (float64, error) {
	y, err := GammaVariate(g, alpha, 1.0)
	if err != nil {
		return 0, err
	}
	if y == 0 {
		return 0, nil
	}
	y2, err := GammaVariate(g, beta, 1.0)
	if err != nil {
		return 0, err
	}
	return y / (y + y2), nil
}

// ParetoVariate draws from a Pareto distribution with shape alpha.
func ParetoVariate(g ports.RandomGenerator, alpha float64) (float64, error) {
	if alpha == 0 {
		return 0, invalid("paretovariate alpha must be non-zero")
	}
	r, err := g.Random()
	if err != nil {
		return 0, err
	}
	u := 1.0 - r
	return math.Pow(u, -1.0/alpha), nil
}

// WeibullVariate draws from a Weibull distribution with scale alpha and
// shape beta.
func WeibullVariate(g ports.RandomGenerator, alpha, beta float64) (float64, error) {
	if beta == 0 {
		return 0, invalid("weibullvariate beta must be non-zero")
	}
	r, err := g.Random()
	if err != nil {
		return 0, err
	}
	u := 1.0 - r
	return alpha * math.Pow(-math.Log(u), 1.0/beta), nil
}

// Triangular draws from a triangular distribution on [low, high] peaking at
// mode.
func Triangular(g ports.RandomGenerator, low, high, mode float64) (float64, error) {
	u, err := g.Random()
	if err != nil {
		return 0, err
	}
	if high == low {
		return low, nil
	}
	c := (mode - low) / (high - low)
	if u > c {
		u = 1.0 - u
		c = 1.0 - c
		low, high = high, low
	}
	return low + (high-low)*math.Sqrt(u*c), nil
}
