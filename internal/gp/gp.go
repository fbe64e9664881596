// Package gp is the Gaussian-process noise model.
//
// A Process is the unconditioned state: a kernel, its hyperparameters and the
// training inputs with their white-noise variances. Condition factorizes the
// covariance once and returns a Conditioned process from which the marginal
// likelihood and predictions are read without refactorizing.
//
// Training inputs are sorted ascending internally (the exponential-kernel
// fast path needs monotone inputs); every value returned to the caller is
// aligned with the caller's original order.
package gp

import (
	"math"
	"sort"

	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"gonum.org/v1/gonum/mat"
)

var log2Pi = math.Log(2 * math.Pi)

// Process is an unconditioned GP over fixed training inputs.
type Process struct {
	kind  kernel.Kind
	hyper []float64

	x     []float64 // sorted ascending
	noise []float64 // err² + jitter², sorted order
	perm  []int     // perm[i] is the caller index of sorted position i
}

// New builds an unconditioned process. x and yerr are in the caller's order.
func New(kind kernel.Kind, hyper, x, yerr []float64, jitter float64) (*Process, error) {
	if kind == kernel.None {
		return nil, errdefs.Configf("gp requires a kernel")
	}
	if len(x) != len(yerr) {
		return nil, &errdefs.ConfigurationError{Kernel: kind.String(), Msg: "regressors and errors have different lengths"}
	}
	if len(x) == 0 {
		return nil, &errdefs.ConfigurationError{Kernel: kind.String(), Msg: "gp has no training points"}
	}
	if err := kernel.Check(kind, hyper); err != nil {
		return nil, err
	}
	if math.IsNaN(jitter) || math.IsInf(jitter, 0) {
		return nil, &errdefs.NumericalError{Kernel: kind.String(), Msg: "non-finite jitter"}
	}

	n := len(x)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return x[perm[a]] < x[perm[b]] })

	p := &Process{
		kind:  kind,
		hyper: append([]float64(nil), hyper...),
		x:     make([]float64, n),
		noise: make([]float64, n),
		perm:  perm,
	}
	j2 := jitter * jitter
	for i, idx := range perm {
		p.x[i] = x[idx]
		p.noise[i] = yerr[idx]*yerr[idx] + j2
	}
	return p, nil
}

// Len is the number of training points.
func (p *Process) Len() int { return len(p.x) }

// Covariance returns the training covariance in the caller's order:
// kernel(|x_i - x_j|) off the diagonal, kernel(0) + err_i² + jitter² on it.
func (p *Process) Covariance() *mat.SymDense {
	n := len(p.x)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := kernel.Cov(p.kind, p.x[i]-p.x[j], p.hyper)
			if i == j {
				c += p.noise[i]
			}
			out.SetSym(p.perm[i], p.perm[j], c)
		}
	}
	return out
}

func (p *Process) sortedCovariance() *mat.SymDense {
	n := len(p.x)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, kernel.Variance(p.kind, p.hyper)+p.noise[i])
		for j := i + 1; j < n; j++ {
			out.SetSym(i, j, kernel.Cov(p.kind, p.x[i]-p.x[j], p.hyper))
		}
	}
	return out
}

func (p *Process) sortResiduals(r []float64) ([]float64, error) {
	if len(r) != len(p.x) {
		return nil, &errdefs.ConfigurationError{Kernel: p.kind.String(), Msg: "residuals and regressors have different lengths"}
	}
	out := make([]float64, len(r))
	for i, idx := range p.perm {
		out[i] = r[idx]
	}
	return out, nil
}

// Conditioned is a process with its covariance factorized and residuals
// absorbed.
type Conditioned struct {
	p     *Process
	chol  mat.Cholesky
	alpha *mat.VecDense // Σ⁻¹ r, sorted order
	quad  float64       // rᵀ Σ⁻¹ r
}

// Condition factorizes the training covariance and absorbs the residuals
// (data minus deterministic model, caller order). A covariance that is not
// positive-definite is a NumericalError.
func (p *Process) Condition(residuals []float64) (*Conditioned, error) {
	r, err := p.sortResiduals(residuals)
	if err != nil {
		return nil, err
	}
	c := &Conditioned{p: p}
	if ok := c.chol.Factorize(p.sortedCovariance()); !ok {
		return nil, &errdefs.NumericalError{Kernel: p.kind.String(), Msg: "covariance matrix is not positive-definite"}
	}
	rv := mat.NewVecDense(len(r), r)
	c.alpha = mat.NewVecDense(len(r), nil)
	if err := c.chol.SolveVecTo(c.alpha, rv); err != nil {
		return nil, &errdefs.NumericalError{Kernel: p.kind.String(), Msg: "covariance solve failed", Err: err}
	}
	c.quad = mat.Dot(rv, c.alpha)
	return c, nil
}

// LogMarginalLikelihood is -½[N ln 2π + ln|Σ| + rᵀΣ⁻¹r], sharing the
// factorization made by Condition.
func (c *Conditioned) LogMarginalLikelihood() float64 {
	n := float64(c.p.Len())
	return -0.5 * (n*log2Pi + c.chol.LogDet() + c.quad)
}

// Predict returns the conditional mean and variance of the latent GP at xNew.
// Results are aligned with xNew, which need not be sorted. Variances are
// clamped at zero against round-off.
func (c *Conditioned) Predict(xNew []float64) (mean, variance []float64, err error) {
	p := c.p
	n, m := p.Len(), len(xNew)
	mean = make([]float64, m)
	variance = make([]float64, m)
	if m == 0 {
		return mean, variance, nil
	}

	kStar := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			kStar.Set(i, j, kernel.Cov(p.kind, p.x[i]-xNew[j], p.hyper))
		}
	}

	var sol mat.Dense
	if err := c.chol.SolveTo(&sol, kStar); err != nil {
		return nil, nil, &errdefs.NumericalError{Kernel: p.kind.String(), Msg: "predictive solve failed", Err: err}
	}

	k0 := kernel.Variance(p.kind, p.hyper)
	for j := 0; j < m; j++ {
		mu, reduce := 0.0, 0.0
		for i := 0; i < n; i++ {
			ks := kStar.At(i, j)
			mu += ks * c.alpha.AtVec(i)
			reduce += ks * sol.At(i, j)
		}
		mean[j] = mu
		variance[j] = math.Max(k0-reduce, 0)
	}
	return mean, variance, nil
}

// LogMarginalLikelihood evaluates the marginal likelihood of residuals,
// taking the structured fast path when the kernel has one and the dense
// Cholesky otherwise. Both agree to floating-point tolerance.
func (p *Process) LogMarginalLikelihood(residuals []float64) (float64, error) {
	if p.kind == kernel.Exponential {
		r, err := p.sortResiduals(residuals)
		if err != nil {
			return 0, err
		}
		return p.exponentialLML(r)
	}
	c, err := p.Condition(residuals)
	if err != nil {
		return 0, err
	}
	return c.LogMarginalLikelihood(), nil
}
