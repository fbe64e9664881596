// Package likelihood turns a composite model into the scalar function an
// external sampler consumes.
//
// LogLikelihood never fails: any ConfigurationError or NumericalError raised
// while evaluating one draw, and any NaN, becomes -Inf so the sampler rejects
// the draw and continues. Evaluate exposes the underlying error for callers
// that want it, and Validate runs one evaluation before sampling starts,
// where any error is fatal.
package likelihood

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/model"
	"github.com/specialistvlad/gpfit/internal/registry"
)

var log2Pi = math.Log(2 * math.Pi)

// Engine evaluates the joint log-likelihood of all instruments. An Engine
// owns its registry and is not safe for concurrent use; see Pool.
type Engine struct {
	comp *model.Composite
	reg  *registry.Registry
}

// New creates an Engine over comp. It checks that every free parameter is
// read by some instrument.
func New(ctx context.Context, comp *model.Composite) (*Engine, error) {
	reg := comp.Registry()
	if err := reg.ValidateUsage(ctx, comp.Used()); err != nil {
		return nil, err
	}
	return &Engine{comp: comp, reg: reg}, nil
}

// Clone returns an Engine with its own registry copy, sharing datasets.
func (e *Engine) Clone() *Engine {
	reg := e.reg.Clone()
	return &Engine{comp: e.comp.WithRegistry(reg), reg: reg}
}

// Dim is the length of the parameter vector.
func (e *Engine) Dim() int { return e.reg.Dim() }

// Registry is the engine's registry. It holds the values of the last draw.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Composite is the engine's model.
func (e *Engine) Composite() *model.Composite { return e.comp }

// Evaluate writes v into the registry and sums the per-instrument
// log-likelihoods.
func (e *Engine) Evaluate(v []float64) (float64, error) {
	if err := e.reg.SetFromVector(v); err != nil {
		return 0, err
	}
	total := 0.0
	for _, name := range e.comp.Instruments() {
		ll, err := e.Instrument(name)
		if err != nil {
			return 0, err
		}
		total += ll
	}
	if math.IsNaN(total) {
		return 0, errdefs.Numericalf("log-likelihood is NaN")
	}
	return total, nil
}

// Instrument is one instrument's log-likelihood at the current registry
// values: the GP marginal likelihood of the residuals when the instrument has
// a kernel, the independent Gaussian likelihood otherwise.
func (e *Engine) Instrument(name string) (float64, error) {
	r, err := e.comp.Residuals(name)
	if err != nil {
		return 0, err
	}
	proc, err := e.comp.Process(name)
	if err != nil {
		return 0, err
	}
	if proc != nil {
		ll, err := proc.LogMarginalLikelihood(r)
		if err != nil {
			return 0, errdefs.WithInstrument(err, name)
		}
		return ll, nil
	}

	d, err := e.comp.Dataset(name)
	if err != nil {
		return 0, err
	}
	jitter, err := e.comp.Jitter(name)
	if err != nil {
		return 0, errdefs.WithInstrument(err, name)
	}
	ll, err := WhiteNoise(r, d.Errors, jitter)
	if err != nil {
		return 0, errdefs.WithInstrument(err, name)
	}
	return ll, nil
}

// LogLikelihood is Evaluate with failures mapped to -Inf.
func (e *Engine) LogLikelihood(v []float64) float64 {
	ll, err := e.Evaluate(v)
	if err != nil {
		return math.Inf(-1)
	}
	return ll
}

// LogPosterior is the log prior plus the log-likelihood, -Inf outside the
// prior support.
func (e *Engine) LogPosterior(v []float64) float64 {
	lp := e.reg.LogPrior(v)
	if math.IsInf(lp, -1) || math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp + e.LogLikelihood(v)
}

// Validate evaluates the likelihood at the prior medians. It runs before
// sampling; a numerical failure here means the configuration itself is
// broken, so every error is returned rather than mapped to -Inf.
func (e *Engine) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	v := e.reg.Initial()
	ll, err := e.Evaluate(v)
	if err != nil {
		return fmt.Errorf("likelihood validation at prior medians failed: %w", err)
	}
	if math.IsInf(ll, 0) {
		return fmt.Errorf("likelihood validation at prior medians failed: %w", errdefs.Numericalf("log-likelihood is %v", ll))
	}
	logger.Debug("Likelihood validated at prior medians.", "log_likelihood", ll, "dimensions", len(v))
	return nil
}

// WhiteNoise is the log-likelihood of independent Gaussian residuals with
// variance err² + jitter².
func WhiteNoise(residuals, errs []float64, jitter float64) (float64, error) {
	if len(residuals) != len(errs) {
		return 0, errdefs.Configf("residuals and errors have different lengths")
	}
	j2 := jitter * jitter
	ll := 0.0
	for i, r := range residuals {
		v := errs[i]*errs[i] + j2
		if !(v > 0) {
			return 0, errdefs.Numericalf("non-positive variance at index %d", i)
		}
		ll -= 0.5 * (log2Pi + math.Log(v) + r*r/v)
	}
	return ll, nil
}
