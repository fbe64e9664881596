package likelihood

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pool evaluates independent draws concurrently. Each worker owns a cloned
// Engine, so no mutable state is shared; only the datasets are, read-only.
type Pool struct {
	workers []*Engine
}

// NewPool creates a pool of n workers cloned from e. n < 1 means one worker.
func NewPool(e *Engine, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{workers: make([]*Engine, n)}
	for i := range p.workers {
		p.workers[i] = e.Clone()
	}
	return p
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// EvaluateBatch returns LogLikelihood for every draw, aligned with draws.
// Individual failing draws yield -Inf; only cancellation of ctx is an error.
func (p *Pool) EvaluateBatch(ctx context.Context, draws [][]float64) ([]float64, error) {
	out := make([]float64, len(draws))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = w.LogLikelihood(draws[i])
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range draws {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch evaluation interrupted: %w", err)
	}
	return out, nil
}
