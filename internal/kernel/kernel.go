// Package kernel is the library of GP covariance functions.
//
// Every kernel is a pure function of the separation τ = |x_i - x_j| and an
// ordered hyperparameter slice. The set of kernels is closed: a Kind is
// chosen once per instrument by Classify, and evaluation dispatches on it
// statically. White noise is not a kernel; the gp package adds it to the
// diagonal.
package kernel

import (
	"math"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// MaternEpsilon is the approximation constant of the Matern-3/2 kernel.
const MaternEpsilon = 0.01

// Kind identifies a covariance function.
type Kind int

const (
	None Kind = iota
	Matern32Approx
	ExpSquared
	Exponential
	ExpMatern
	QuasiPeriodic
	ExpSineSquaredQP
	SHO
)

var kindNames = map[Kind]string{
	None:             "none",
	Matern32Approx:   "matern32-approx",
	ExpSquared:       "exp-squared",
	Exponential:      "exponential",
	ExpMatern:        "exp-matern",
	QuasiPeriodic:    "quasi-periodic",
	ExpSineSquaredQP: "exp-sine-squared-qp",
	SHO:              "sho",
}

// hyperNames lists each kind's hyperparameters in the order Cov expects them.
var hyperNames = map[Kind][]string{
	Matern32Approx:   {"sigma", "rho"},
	ExpSquared:       {"sigma", "alpha"},
	Exponential:      {"sigma", "timescale"},
	ExpMatern:        {"sigma", "timescale", "rho"},
	QuasiPeriodic:    {"B", "C", "L", "Prot"},
	ExpSineSquaredQP: {"sigma", "alpha", "Gamma", "Prot"},
	SHO:              {"S0", "Q", "omega0"},
}

// Kinds lists every kernel with hyperparameters, in a stable order.
var Kinds = []Kind{Matern32Approx, ExpSquared, Exponential, ExpMatern, QuasiPeriodic, ExpSineSquaredQP, SHO}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// HyperNames returns the bare hyperparameter names of k in Cov order.
func (k Kind) HyperNames() []string {
	return hyperNames[k]
}

// ParamName is the registry name of hyperparameter h for an instrument.
func ParamName(h, instrument string) string {
	return "GP_" + h + "_" + instrument
}

// ParamNames returns the registry names of k's hyperparameters for an
// instrument, in Cov order.
func ParamNames(k Kind, instrument string) []string {
	names := k.HyperNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ParamName(n, instrument)
	}
	return out
}

// Check validates hyperparameters for k. A violation depends on the current
// draw, not on the setup, so it is a NumericalError.
func Check(k Kind, h []float64) error {
	want := len(hyperNames[k])
	if len(h) != want {
		return &errdefs.NumericalError{Kernel: k.String(), Msg: "wrong number of hyperparameters"}
	}
	for i, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &errdefs.NumericalError{Kernel: k.String(), Msg: "non-finite GP_" + hyperNames[k][i]}
		}
	}
	positive := func(i int) error {
		if h[i] <= 0 {
			return &errdefs.NumericalError{Kernel: k.String(), Msg: "GP_" + hyperNames[k][i] + " must be positive"}
		}
		return nil
	}
	var idx []int
	switch k {
	case QuasiPeriodic:
		if h[1] < 0 {
			return &errdefs.NumericalError{Kernel: k.String(), Msg: "GP_C must be non-negative"}
		}
		idx = []int{0, 2, 3}
	case ExpSineSquaredQP:
		if h[2] < 0 {
			return &errdefs.NumericalError{Kernel: k.String(), Msg: "GP_Gamma must be non-negative"}
		}
		idx = []int{0, 1, 3}
	default:
		for i := range h {
			idx = append(idx, i)
		}
	}
	for _, i := range idx {
		if err := positive(i); err != nil {
			return err
		}
	}
	return nil
}

// Cov is the covariance at separation tau. Callers validate h with Check
// first; Cov does no validation so it can sit in the O(N²) matrix loop.
func Cov(k Kind, tau float64, h []float64) float64 {
	tau = math.Abs(tau)
	switch k {
	case Matern32Approx:
		return h[0] * h[0] * matern(tau, h[1])
	case ExpSquared:
		return h[0] * h[0] * math.Exp(-h[1]*tau*tau)
	case Exponential:
		return h[0] * h[0] * math.Exp(-tau/h[1])
	case ExpMatern:
		return h[0] * h[0] * math.Exp(-tau/h[1]) * matern(tau, h[2])
	case QuasiPeriodic:
		b, c, l, prot := h[0], h[1], h[2], h[3]
		return b / (2 + c) * math.Exp(-tau/l) * (math.Cos(2*math.Pi*tau/prot) + 1 + c)
	case ExpSineSquaredQP:
		s := math.Sin(math.Pi * tau / h[3])
		return h[0] * h[0] * math.Exp(-h[1]*tau*tau-h[2]*s*s)
	case SHO:
		return sho(tau, h[0], h[1], h[2])
	}
	return 0
}

// Variance is Cov at zero separation.
func Variance(k Kind, h []float64) float64 {
	return Cov(k, 0, h)
}

// matern is the unit-variance celerite approximation of the Matern-3/2
// kernel; it tends to (1 + wτ)e^{-wτ} as MaternEpsilon goes to zero.
func matern(tau, rho float64) float64 {
	w := math.Sqrt(3) / rho
	return math.Exp(-w*tau) * (math.Cos(MaternEpsilon*w*tau) + math.Sin(MaternEpsilon*w*tau)/MaternEpsilon)
}

// sho is the stochastically driven damped harmonic oscillator in its three
// damping regimes.
func sho(tau, s0, q, w0 float64) float64 {
	amp := s0 * w0 * q
	switch {
	case q > 0.5:
		eta := math.Sqrt(1 - 1/(4*q*q))
		return amp * math.Exp(-w0*tau/(2*q)) * (math.Cos(eta*w0*tau) + math.Sin(eta*w0*tau)/(2*eta*q))
	case q == 0.5:
		return amp * math.Exp(-w0*tau) * (1 + w0*tau)
	default:
		f := math.Sqrt(1/(4*q*q) - 1)
		decay := w0 * tau / (2 * q)
		grow := f * w0 * tau
		// cosh and sinh are folded into the decay to avoid overflow at large τ.
		ep := math.Exp(grow - decay)
		em := math.Exp(-grow - decay)
		return amp * ((ep+em)/2 + (ep-em)/2/(2*f*q))
	}
}
