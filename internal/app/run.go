package app

import (
	"context"
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/fit"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"github.com/specialistvlad/gpfit/internal/likelihood"
)

// Check prints the classified model of every instrument, the free-parameter
// layout and the log-likelihood at the prior medians.
func (a *App) Check(ctx context.Context) error {
	_, logger := ctxlog.With(a.context(ctx), "command", "check")
	s := a.session
	logger.Debug("Checking session.", "instruments", len(s.Data.Names()), "free_parameters", s.Registry.Dim())
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "INSTRUMENT\tKIND\tPOINTS\tKERNEL\tGP INPUT")
	for _, d := range s.Data.All() {
		k, err := s.Model.Kernel(d.Name)
		if err != nil {
			return err
		}
		input := "time"
		if d.Regressors != nil {
			input = "regressors"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", d.Name, d.Kind, d.Len(), k, input)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "#\tFREE PARAMETER\tPRIOR\tHYPERPARAMETERS")
	for i, name := range s.Registry.FreeNames() {
		p, _ := s.Registry.Parameter(name)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", i, name, p.Dist.Kind, p.Dist.Hyper)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ll, err := s.Engine.Evaluate(s.Registry.Initial())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "\nlog-likelihood at prior medians: %.10g\n", ll)
	return nil
}

// LogLikelihood evaluates one vector (nil means the prior medians) and prints
// the log-likelihood and log-posterior. Unlike the sampler-facing function it
// reports why a draw fails.
func (a *App) LogLikelihood(ctx context.Context, values []float64) (float64, error) {
	_, logger := ctxlog.With(a.context(ctx), "command", "loglike")
	e := a.session.Engine
	if values == nil {
		logger.Debug("No values given, evaluating at the prior medians.")
		values = a.session.Registry.Initial()
	}
	ll, err := e.Evaluate(values)
	if err != nil {
		logger.Debug("Draw rejected.", "error", err)
		return math.Inf(-1), err
	}
	fmt.Fprintf(a.outW, "log_likelihood\t%.10g\n", ll)
	fmt.Fprintf(a.outW, "log_posterior\t%.10g\n", e.LogPosterior(values))
	return ll, nil
}

// LogLikelihoodBatch evaluates many draws on the configured number of
// workers and prints one value per line, in input order.
func (a *App) LogLikelihoodBatch(ctx context.Context, draws [][]float64) ([]float64, error) {
	ctx, logger := ctxlog.With(a.context(ctx), "command", "loglike")
	pool := likelihood.NewPool(a.session.Engine, a.config.Workers)
	logger.Debug("Evaluating batch.", "draws", len(draws), "workers", pool.Size())

	out, err := pool.EvaluateBatch(ctx, draws)
	if err != nil {
		return nil, err
	}
	for _, ll := range out {
		fmt.Fprintf(a.outW, "%.10g\n", ll)
	}
	return out, nil
}

// PredictRequest selects the instrument, parameter vector and target points
// of a prediction.
type PredictRequest struct {
	Instrument string
	Values     []float64 // nil means the prior medians
	Times      []float64
	Regressors []float64   // required when the instrument's GP runs on regressors
	Linear     [][]float64 // one row per time when the instrument has a linear model
}

// PointsFromRows builds the target points of a prediction from rows of a
// points file. Each row holds the time, then the GP regressor when the
// instrument's GP runs on regressors, then one column per linear-model
// regressor.
func (a *App) PointsFromRows(instrument string, rows [][]float64) (PredictRequest, error) {
	req := PredictRequest{Instrument: instrument}
	d, err := a.session.Data.Get(instrument)
	if err != nil {
		return req, err
	}
	k, err := a.session.Model.Kernel(instrument)
	if err != nil {
		return req, err
	}
	withRegressor := d.Regressors != nil && k != kernel.None
	nLinear := d.NumLinear()
	want := 1 + nLinear
	if withRegressor {
		want++
	}

	req.Times = make([]float64, len(rows))
	if withRegressor {
		req.Regressors = make([]float64, len(rows))
	}
	if nLinear > 0 {
		req.Linear = make([][]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != want {
			return req, &errdefs.ConfigurationError{
				Instrument: instrument,
				Msg:        fmt.Sprintf("points row %d has %d columns, expected %d (time%s%s)", i+1, len(row), want, regressorColumn(withRegressor), linearColumns(nLinear)),
			}
		}
		req.Times[i] = row[0]
		rest := row[1:]
		if withRegressor {
			req.Regressors[i] = rest[0]
			rest = rest[1:]
		}
		if nLinear > 0 {
			req.Linear[i] = rest
		}
	}
	return req, nil
}

func regressorColumn(ok bool) string {
	if ok {
		return ", regressor"
	}
	return ""
}

func linearColumns(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(", %d linear regressors", n)
}

// Predict evaluates the model decomposition at new points and prints one row
// per point: time, total, deterministic, gp, gp_var.
func (a *App) Predict(ctx context.Context, req PredictRequest) error {
	_, logger := ctxlog.With(a.context(ctx), "command", "predict", "instrument", req.Instrument)
	s := a.session
	values := req.Values
	if values == nil {
		values = s.Registry.Initial()
	}
	if err := s.Registry.SetFromVector(values); err != nil {
		return err
	}
	logger.Debug("Predicting.", "points", len(req.Times), "regressors", req.Regressors != nil, "linear_rows", len(req.Linear))
	res, err := s.Model.EvaluateAt(req.Instrument, req.Times, req.Regressors, req.Linear)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "time\ttotal\tdeterministic\tgp\tgp_var")
	for i, t := range req.Times {
		gpMean, gpVar := 0.0, 0.0
		if res.GP != nil {
			gpMean, gpVar = res.GP[i], res.GPVariance[i]
		}
		fmt.Fprintf(tw, "%.8f\t%.10g\t%.10g\t%.10g\t%.10g\n", t, res.Total[i], res.Deterministic[i], gpMean, gpVar)
	}
	return tw.Flush()
}

// Fit runs the maximum-likelihood search and prints the best vector.
func (a *App) Fit(ctx context.Context, opts fit.Options) (*fit.Result, error) {
	ctx, logger := ctxlog.With(a.context(ctx), "command", "fit")
	logger.Debug("Starting fit.", "free_parameters", a.session.Registry.Dim(), "max_evaluations", opts.MaxEvaluations)
	res, err := fit.MaximumLikelihood(ctx, a.session.Engine, opts)
	if err != nil {
		return nil, err
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	for i, name := range a.session.Registry.FreeNames() {
		fmt.Fprintf(tw, "%s\t%.10g\n", name, res.Vector[i])
	}
	fmt.Fprintf(tw, "log_likelihood\t%.10g\n", res.LogLikelihood)
	fmt.Fprintf(tw, "evaluations\t%d\n", res.Evaluations)
	fmt.Fprintf(tw, "status\t%s\n", res.Status)
	return res, tw.Flush()
}
