// Package fit finds the maximum-likelihood point inside the prior support.
//
// It is a reference consumer of the likelihood engine, not a sampler: the
// optimizer works on an unconstrained vector z, mapped to the unit cube by a
// logistic function and then onto the prior by the registry's transform, so
// every trial point stays inside the support.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/likelihood"
	"gonum.org/v1/gonum/optimize"
)

// Options tune the optimizer.
type Options struct {
	MaxEvaluations int       // 0 means 2000·dim
	Start          []float64 // unit-cube start; nil means the prior medians
}

// Result is the best point found.
type Result struct {
	Vector        []float64
	LogLikelihood float64
	Evaluations   int
	Status        string
}

// MaximumLikelihood maximizes e.LogLikelihood with Nelder-Mead. The context is
// checked before every evaluation. Reaching its deadline ends the search with
// the best point so far and status RuntimeLimit; cancelling it is an error.
func MaximumLikelihood(ctx context.Context, e *likelihood.Engine, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	reg := e.Registry()
	dim := e.Dim()

	if dim == 0 {
		ll, err := e.Evaluate(nil)
		if err != nil {
			return nil, err
		}
		return &Result{Vector: []float64{}, LogLikelihood: ll, Evaluations: 1, Status: "NoFreeParameters"}, nil
	}

	z0 := make([]float64, dim)
	if opts.Start != nil {
		if len(opts.Start) != dim {
			return nil, fmt.Errorf("start vector has length %d, expected %d", len(opts.Start), dim)
		}
		for i, u := range opts.Start {
			z0[i] = logit(u)
		}
	}

	toParams := func(z []float64) ([]float64, bool) {
		u := make([]float64, len(z))
		for i, v := range z {
			u[i] = 1 / (1 + math.Exp(-v))
		}
		theta, err := reg.Transform(u)
		return theta, err == nil
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			theta, ok := toParams(z)
			if !ok {
				return math.MaxFloat64
			}
			ll := e.LogLikelihood(theta)
			if math.IsInf(ll, -1) {
				return math.MaxFloat64
			}
			return -ll
		},
		Status: func() (optimize.Status, error) {
			switch err := ctx.Err(); {
			case err == nil:
				return optimize.NotTerminated, nil
			case errors.Is(err, context.DeadlineExceeded):
				return optimize.RuntimeLimit, nil
			default:
				return optimize.Failure, err
			}
		},
	}

	maxEval := opts.MaxEvaluations
	if maxEval <= 0 {
		maxEval = 2000 * dim
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEval,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-8,
			Iterations: 200,
		},
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			settings.Runtime = left
		}
	}

	logger.Debug("Starting maximum-likelihood search.", "dimensions", dim, "max_evaluations", maxEval)
	res, err := optimize.Minimize(problem, z0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
		return nil, fmt.Errorf("maximum-likelihood search cancelled: %w", ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("optimizer failed: %w", err)
	}

	best := res.X
	if math.IsInf(res.F, 1) {
		// Stopped before the first evaluation completed.
		best = z0
	}
	theta, ok := toParams(best)
	if !ok {
		return nil, fmt.Errorf("optimizer returned a point outside the prior support")
	}
	ll, err := e.Evaluate(theta)
	if err != nil {
		return nil, fmt.Errorf("best point does not evaluate: %w", err)
	}
	logger.Info("Maximum-likelihood search finished.", "log_likelihood", ll, "evaluations", res.Stats.FuncEvaluations, "status", res.Status.String())

	return &Result{
		Vector:        theta,
		LogLikelihood: ll,
		Evaluations:   res.Stats.FuncEvaluations,
		Status:        res.Status.String(),
	}, nil
}

func logit(u float64) float64 {
	u = math.Min(math.Max(u, 1e-12), 1-1e-12)
	return math.Log(u / (1 - u))
}
