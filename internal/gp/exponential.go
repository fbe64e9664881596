package gp

import (
	"math"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// exponentialLML evaluates the marginal likelihood of an exponential-kernel
// process in O(N). The exponential kernel is the stationary Ornstein-Uhlenbeck
// process, so on sorted inputs it is a scalar linear state-space model:
//
//	f_i = a_i f_{i-1} + q_i,  a_i = exp(-Δx_i/τ),  Var(q_i) = σ²(1 - a_i²)
//	y_i = f_i + e_i,          Var(e_i) = err_i² + jitter²
//
// and the prediction-error decomposition of a Kalman filter gives the exact
// Gaussian log-likelihood. r must be in sorted order.
func (p *Process) exponentialLML(r []float64) (float64, error) {
	s2 := p.hyper[0] * p.hyper[0]
	tau := p.hyper[1]

	mean, cov := 0.0, s2
	ll := 0.0
	for i := range r {
		if i > 0 {
			a := math.Exp(-(p.x[i] - p.x[i-1]) / tau)
			mean *= a
			cov = a*a*cov + s2*(1-a*a)
		}

		// Innovation variance S = P + R.
		s := cov + p.noise[i]
		if s <= 0 || math.IsNaN(s) {
			return 0, &errdefs.NumericalError{Kernel: p.kind.String(), Msg: "covariance matrix is not positive-definite"}
		}
		v := r[i] - mean
		ll -= 0.5 * (log2Pi + math.Log(s) + v*v/s)

		k := cov / s
		mean += k * v
		cov *= 1 - k
	}
	return ll, nil
}
