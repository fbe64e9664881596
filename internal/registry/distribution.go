package registry

import (
	"math"
	"strings"

	"github.com/specialistvlad/gpfit/internal/errdefs"
	"gonum.org/v1/gonum/stat/distuv"
)

// Kind is a prior distribution family.
type Kind string

const (
	Fixed           Kind = "fixed"
	Normal          Kind = "normal"
	Uniform         Kind = "uniform"
	LogUniform      Kind = "loguniform"
	TruncatedNormal Kind = "truncatednormal"
	Beta            Kind = "beta"
	Exponential     Kind = "exponential"
)

// hyperCount is the number of hyperparameters each kind expects.
var hyperCount = map[Kind]int{
	Fixed:           1, // value
	Normal:          2, // mu, sigma
	Uniform:         2, // min, max
	LogUniform:      2, // min, max
	TruncatedNormal: 4, // mu, sigma, min, max
	Beta:            2, // alpha, beta
	Exponential:     1, // scale
}

// Distribution is a validated prior.
type Distribution struct {
	Kind  Kind
	Hyper []float64
}

// NewDistribution validates kind and hyperparameters. The kind is matched
// case-insensitively; "jeffreys" is accepted as an alias of loguniform.
func NewDistribution(kind string, hyper []float64) (Distribution, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "jeffreys" {
		k = LogUniform
	}
	want, ok := hyperCount[k]
	if !ok {
		return Distribution{}, errdefs.Configf("unknown distribution %q", kind)
	}
	if len(hyper) != want {
		return Distribution{}, errdefs.Configf("distribution %s expects %d hyperparameters, got %d", k, want, len(hyper))
	}
	for _, h := range hyper {
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return Distribution{}, errdefs.Configf("distribution %s has non-finite hyperparameter", k)
		}
	}

	switch k {
	case Normal:
		if hyper[1] <= 0 {
			return Distribution{}, errdefs.Configf("normal sigma must be positive, got %g", hyper[1])
		}
	case Uniform:
		if hyper[0] >= hyper[1] {
			return Distribution{}, errdefs.Configf("uniform requires min < max, got [%g, %g]", hyper[0], hyper[1])
		}
	case LogUniform:
		if hyper[0] <= 0 || hyper[0] >= hyper[1] {
			return Distribution{}, errdefs.Configf("loguniform requires 0 < min < max, got [%g, %g]", hyper[0], hyper[1])
		}
	case TruncatedNormal:
		if hyper[1] <= 0 || hyper[2] >= hyper[3] {
			return Distribution{}, errdefs.Configf("truncatednormal requires sigma > 0 and min < max, got %v", hyper)
		}
	case Beta:
		if hyper[0] <= 0 || hyper[1] <= 0 {
			return Distribution{}, errdefs.Configf("beta requires positive shape parameters, got %v", hyper)
		}
	case Exponential:
		if hyper[0] <= 0 {
			return Distribution{}, errdefs.Configf("exponential scale must be positive, got %g", hyper[0])
		}
	}

	h := make([]float64, len(hyper))
	copy(h, hyper)
	return Distribution{Kind: k, Hyper: h}, nil
}

// IsFixed reports whether the distribution is a constant.
func (d Distribution) IsFixed() bool { return d.Kind == Fixed }

// LogProb is the log prior density at x, -Inf outside the support. For a
// fixed distribution it is 0 at the constant and -Inf elsewhere.
func (d Distribution) LogProb(x float64) float64 {
	h := d.Hyper
	switch d.Kind {
	case Fixed:
		if x == h[0] {
			return 0
		}
		return math.Inf(-1)
	case Normal:
		return distuv.Normal{Mu: h[0], Sigma: h[1]}.LogProb(x)
	case Uniform:
		return distuv.Uniform{Min: h[0], Max: h[1]}.LogProb(x)
	case LogUniform:
		if x < h[0] || x > h[1] {
			return math.Inf(-1)
		}
		return -math.Log(x) - math.Log(math.Log(h[1]/h[0]))
	case TruncatedNormal:
		if x < h[2] || x > h[3] {
			return math.Inf(-1)
		}
		n := distuv.Normal{Mu: h[0], Sigma: h[1]}
		return n.LogProb(x) - math.Log(n.CDF(h[3])-n.CDF(h[2]))
	case Beta:
		return distuv.Beta{Alpha: h[0], Beta: h[1]}.LogProb(x)
	case Exponential:
		return distuv.Exponential{Rate: 1 / h[0]}.LogProb(x)
	}
	return math.Inf(-1)
}

// Quantile maps u in [0, 1] onto the support through the inverse CDF. This is
// the prior transform consumed by nested samplers.
func (d Distribution) Quantile(u float64) float64 {
	h := d.Hyper
	switch d.Kind {
	case Fixed:
		return h[0]
	case Normal:
		return distuv.Normal{Mu: h[0], Sigma: h[1]}.Quantile(u)
	case Uniform:
		return h[0] + u*(h[1]-h[0])
	case LogUniform:
		return math.Exp(math.Log(h[0]) + u*math.Log(h[1]/h[0]))
	case TruncatedNormal:
		n := distuv.Normal{Mu: h[0], Sigma: h[1]}
		lo, hi := n.CDF(h[2]), n.CDF(h[3])
		x := n.Quantile(lo + u*(hi-lo))
		// Clamp round-off at the edges of the truncation window.
		return math.Min(math.Max(x, h[2]), h[3])
	case Beta:
		return distuv.Beta{Alpha: h[0], Beta: h[1]}.Quantile(u)
	case Exponential:
		return distuv.Exponential{Rate: 1 / h[0]}.Quantile(u)
	}
	return math.NaN()
}

// Median is the prior median.
func (d Distribution) Median() float64 {
	return d.Quantile(0.5)
}
