package likelihood_test

import (
	"context"
	"math"
	"testing"

	"github.com/specialistvlad/gpfit/internal/likelihood"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_MatchesSequential(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	e := gpEngine(t)
	var draws [][]float64
	for i := 0; i < 40; i++ {
		draws = append(draws, []float64{0.0001 * float64(i%5), 0.0005 + 0.0001*float64(i), 0.2 + 0.05*float64(i)})
	}
	draws = append(draws, []float64{0, -1, 1}) // invalid

	want := make([]float64, len(draws))
	for i, d := range draws {
		want[i] = e.Clone().LogLikelihood(d)
	}

	// --- Act ---
	pool := likelihood.NewPool(e, 4)
	got, err := pool.EvaluateBatch(context.Background(), draws)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 4, pool.Size())
	assert.Equal(t, want, got)
	assert.True(t, math.IsInf(got[len(got)-1], -1))
}

func TestPool_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := likelihood.NewPool(gpEngine(t), 2).EvaluateBatch(ctx, [][]float64{{0, 0.001, 1}, {0, 0.001, 1}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPool_AtLeastOneWorker(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, likelihood.NewPool(gpEngine(t), 0).Size())
}
