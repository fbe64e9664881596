// Package model composes, per instrument, the deterministic signal with zero
// or one GP noise model.
//
// There is a single evaluation path. Evaluate takes the target points
// explicitly; a nil target means the training points, which is what
// in-sample evaluation is. Fitting-time evaluation and arbitrary-time
// prediction therefore share the same math and differ only in input binding.
//
// The kernel of every instrument is classified once in New and kept as a
// closed kernel.Kind; nothing downstream inspects parameter names again.
package model

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/dataset"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/gp"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"github.com/specialistvlad/gpfit/internal/registry"
	"github.com/specialistvlad/gpfit/internal/signal"
	"gonum.org/v1/gonum/floats"
)

// Points are the inputs at which an instrument is evaluated. Regressors may
// be nil when the instrument's GP runs on time; Linear may be nil when the
// instrument has no linear model.
type Points struct {
	Times      []float64
	Regressors []float64
	Linear     [][]float64
}

// Result is the model decomposition at a set of points. GP and GPVariance
// are nil for white-noise instruments.
type Result struct {
	Deterministic []float64
	GP            []float64
	GPVariance    []float64
	Total         []float64
}

// instrument is the immutable per-instrument plan.
type instrument struct {
	data   *dataset.Dataset
	signal *signal.Model
	kernel kernel.Kind
	hyper  []string // registry names in kernel.Cov order
	jitter string   // empty when the instrument has no jitter term
}

// Composite evaluates every instrument of a fit against one registry.
type Composite struct {
	reg   *registry.Registry
	data  *dataset.Set
	insts map[string]*instrument
	used  map[string]struct{}
}

// JitterName is the registry name of an instrument's white-noise jitter.
func JitterName(instrument string) string {
	return "sigma_w_" + instrument
}

// New resolves every instrument's signal parameters and classifies its GP
// kernel. All configuration problems surface here, before any evaluation.
func New(ctx context.Context, reg *registry.Registry, data *dataset.Set, shape signal.TransitShape) (*Composite, error) {
	logger := ctxlog.FromContext(ctx)
	c := &Composite{
		reg:   reg,
		data:  data,
		insts: make(map[string]*instrument, len(data.All())),
		used:  make(map[string]struct{}),
	}
	names := reg.Names()

	for _, d := range data.All() {
		sig, err := signal.New(reg, d, shape)
		if err != nil {
			return nil, fmt.Errorf("failed to build signal model: %w", err)
		}
		k, err := kernel.Classify(d.Name, names)
		if err != nil {
			return nil, fmt.Errorf("failed to classify GP kernel: %w", err)
		}
		inst := &instrument{data: d, signal: sig, kernel: k}
		if k != kernel.None {
			inst.hyper = kernel.ParamNames(k, d.Name)
		}
		if reg.Has(JitterName(d.Name)) {
			inst.jitter = JitterName(d.Name)
		}

		for _, n := range sig.Used() {
			c.used[n] = struct{}{}
		}
		for _, n := range inst.hyper {
			c.used[n] = struct{}{}
		}
		if inst.jitter != "" {
			c.used[inst.jitter] = struct{}{}
		}

		c.insts[d.Name] = inst
		logger.Debug("Instrument model assembled.", "instrument", d.Name, "kind", d.Kind, "kernel", k, "planets", sig.Planets(), "jitter", inst.jitter != "")
	}
	return c, nil
}

// WithRegistry returns a Composite sharing the immutable plans and datasets
// but reading parameters from reg. reg must be a Clone of the original.
func (c *Composite) WithRegistry(reg *registry.Registry) *Composite {
	out := *c
	out.reg = reg
	return &out
}

// Registry is the registry the composite reads.
func (c *Composite) Registry() *registry.Registry { return c.reg }

// Instruments returns the instrument names in declaration order.
func (c *Composite) Instruments() []string { return c.data.Names() }

// Used is the set of registry names read by any instrument.
func (c *Composite) Used() map[string]struct{} { return c.used }

// Kernel is the classified kernel of an instrument.
func (c *Composite) Kernel(name string) (kernel.Kind, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return kernel.None, err
	}
	return inst.kernel, nil
}

// Dataset returns the instrument's data.
func (c *Composite) Dataset(name string) (*dataset.Dataset, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return inst.data, nil
}

func (c *Composite) lookup(name string) (*instrument, error) {
	inst, ok := c.insts[name]
	if !ok {
		return nil, &errdefs.ConfigurationError{Instrument: name, Msg: "unknown instrument"}
	}
	return inst, nil
}

// Deterministic evaluates only the deterministic signal at the training
// points.
func (c *Composite) Deterministic(name string) ([]float64, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return inst.signal.Evaluate(c.reg, inst.data.Times, inst.data.Linear)
}

// Residuals is data minus the deterministic signal at the training points.
func (c *Composite) Residuals(name string) ([]float64, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	det, err := inst.signal.Evaluate(c.reg, inst.data.Times, inst.data.Linear)
	if err != nil {
		return nil, err
	}
	return residuals(inst.data.Values, det), nil
}

// Jitter is the current jitter of an instrument, 0 when it has none.
func (c *Composite) Jitter(name string) (float64, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	if inst.jitter == "" {
		return 0, nil
	}
	return c.reg.Get(inst.jitter)
}

// Process builds the instrument's unconditioned GP from the current
// parameter values. It returns nil for white-noise instruments.
func (c *Composite) Process(name string) (*gp.Process, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	if inst.kernel == kernel.None {
		return nil, nil
	}
	hyper := make([]float64, len(inst.hyper))
	for i, n := range inst.hyper {
		if hyper[i], err = c.reg.Get(n); err != nil {
			return nil, errdefs.WithInstrument(err, name)
		}
	}
	jitter, err := c.Jitter(name)
	if err != nil {
		return nil, errdefs.WithInstrument(err, name)
	}
	p, err := gp.New(inst.kernel, hyper, inst.data.GPInput(), inst.data.Errors, jitter)
	if err != nil {
		return nil, errdefs.WithInstrument(err, name)
	}
	return p, nil
}

// Evaluate computes the model decomposition of an instrument at target, or
// at the training points when target is nil. The GP is conditioned on the
// training residuals and predicted at the target regressors (the target
// times when the instrument's GP runs on time).
func (c *Composite) Evaluate(name string, target *Points) (*Result, error) {
	inst, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	d := inst.data
	inSample := target == nil
	if inSample {
		target = &Points{Times: d.Times, Regressors: d.Regressors, Linear: d.Linear}
	}

	gpInput, err := inst.targetInput(target)
	if err != nil {
		return nil, err
	}

	det, err := inst.signal.Evaluate(c.reg, target.Times, target.Linear)
	if err != nil {
		return nil, err
	}
	res := &Result{Deterministic: det}
	if inst.kernel == kernel.None {
		res.Total = append([]float64(nil), det...)
		return res, nil
	}

	trainDet := det
	if !inSample {
		if trainDet, err = inst.signal.Evaluate(c.reg, d.Times, d.Linear); err != nil {
			return nil, err
		}
	}
	proc, err := c.Process(name)
	if err != nil {
		return nil, err
	}
	cond, err := proc.Condition(residuals(d.Values, trainDet))
	if err != nil {
		return nil, errdefs.WithInstrument(err, name)
	}
	mean, variance, err := cond.Predict(gpInput)
	if err != nil {
		return nil, errdefs.WithInstrument(err, name)
	}

	res.GP = mean
	res.GPVariance = variance
	res.Total = make([]float64, len(det))
	for i := range det {
		res.Total[i] = det[i] + mean[i]
	}
	return res, nil
}

// EvaluateInSample is Evaluate at the training points.
func (c *Composite) EvaluateInSample(name string) (*Result, error) {
	return c.Evaluate(name, nil)
}

// EvaluateAt is Evaluate at new times and regressors.
func (c *Composite) EvaluateAt(name string, times, regressors []float64, linear [][]float64) (*Result, error) {
	return c.Evaluate(name, &Points{Times: times, Regressors: regressors, Linear: linear})
}

// Detrended returns the data with the GP component removed; for white-noise
// instruments it is the data itself.
func (c *Composite) Detrended(name string) ([]float64, error) {
	res, err := c.EvaluateInSample(name)
	if err != nil {
		return nil, err
	}
	inst := c.insts[name]
	out := append([]float64(nil), inst.data.Values...)
	for i := range res.GP {
		out[i] -= res.GP[i]
	}
	return out, nil
}

func (inst *instrument) targetInput(target *Points) ([]float64, error) {
	fail := func(format string, args ...any) error {
		return &errdefs.ConfigurationError{Instrument: inst.data.Name, Msg: fmt.Sprintf(format, args...)}
	}
	n := len(target.Times)
	if target.Linear != nil && len(target.Linear) != n {
		return nil, fail("target has %d times but %d linear regressor rows", n, len(target.Linear))
	}
	if inst.kernel == kernel.None {
		return nil, nil
	}
	if target.Regressors == nil {
		if inst.data.Regressors != nil {
			return nil, fail("instrument's GP runs on regressors; target regressors are required")
		}
		return target.Times, nil
	}
	if len(target.Regressors) != n {
		return nil, fail("target has %d times but %d regressors", n, len(target.Regressors))
	}
	return target.Regressors, nil
}

func residuals(values, det []float64) []float64 {
	return floats.SubTo(make([]float64, len(values)), values, det)
}
