package gp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCovariance_DiagonalAndOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := []float64{0.5, 2}
	x := []float64{3, 0, 1.5}
	yerr := []float64{0.1, 0.2, 0.3}
	jitter := 0.05

	// --- Act ---
	p, err := New(kernel.Matern32Approx, h, x, yerr, jitter)
	require.NoError(t, err)
	cov := p.Covariance()

	// --- Assert ---
	for i := range x {
		want := kernel.Variance(kernel.Matern32Approx, h) + yerr[i]*yerr[i] + jitter*jitter
		assert.InDelta(t, want, cov.At(i, i), 1e-15, "diagonal %d", i)
		for j := range x {
			if i != j {
				assert.InDelta(t, kernel.Cov(kernel.Matern32Approx, x[i]-x[j], h), cov.At(i, j), 1e-15)
			}
		}
	}
}

func TestLogMarginalLikelihood_SinglePoint(t *testing.T) {
	t.Parallel()

	for _, k := range []kernel.Kind{kernel.ExpSquared, kernel.Exponential} {
		t.Run(k.String(), func(t *testing.T) {
			h := []float64{0.3, 1}
			p, err := New(k, h, []float64{2}, []float64{0.1}, 0.2)
			require.NoError(t, err)

			got, err := p.LogMarginalLikelihood([]float64{0.4})

			require.NoError(t, err)
			v := 0.09 + 0.01 + 0.04
			want := -0.5 * (math.Log(2*math.Pi) + math.Log(v) + 0.16/v)
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestExponentialFastPath_MatchesDense(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	x := []float64{4.2, 0.1, 2.5, 0.4, 3.3, 1.0, 7.7, 5.1}
	yerr := []float64{0.1, 0.05, 0.2, 0.1, 0.15, 0.1, 0.3, 0.05}
	r := []float64{0.3, -0.1, 0.5, 0.0, -0.4, 0.2, 0.1, -0.25}
	p, err := New(kernel.Exponential, []float64{0.7, 1.3}, x, yerr, 0.02)
	require.NoError(t, err)

	// --- Act ---
	fast, err := p.LogMarginalLikelihood(r)
	require.NoError(t, err)
	c, err := p.Condition(r)
	require.NoError(t, err)
	dense := c.LogMarginalLikelihood()

	// --- Assert ---
	assert.InDelta(t, dense, fast, 1e-9)
}

func TestPredict_InterpolatesWithoutNoise(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	x := []float64{0, 5, 10}
	r := []float64{0.3, -0.2, 0.1}
	p, err := New(kernel.ExpSquared, []float64{1, 0.5}, x, []float64{0, 0, 0}, 0)
	require.NoError(t, err)
	c, err := p.Condition(r)
	require.NoError(t, err)

	// --- Act ---
	mean, variance, err := c.Predict([]float64{5, 0})

	// --- Assert ---
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{-0.2, 0.3}, mean, approx); diff != "" {
		t.Errorf("Predict() mean mismatch (-want +got):\n%s", diff)
	}
	for i, v := range variance {
		assert.InDelta(t, 0, v, 1e-9, "variance %d", i)
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestPredict_UnsortedInputsRealign(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := []float64{0.4, 1.2}
	sortedX := []float64{0, 1, 2, 3, 4}
	sortedErr := []float64{0.1, 0.2, 0.1, 0.3, 0.1}
	sortedR := []float64{0.1, 0.4, -0.2, 0.0, 0.3}
	// The same data in a shuffled order.
	order := []int{3, 0, 4, 1, 2}
	shufX, shufErr, shufR := make([]float64, 5), make([]float64, 5), make([]float64, 5)
	for i, j := range order {
		shufX[i], shufErr[i], shufR[i] = sortedX[j], sortedErr[j], sortedR[j]
	}
	xNew := []float64{3.7, -1, 0.5, 2}

	predict := func(x, yerr, r []float64) ([]float64, []float64, float64) {
		p, err := New(kernel.Matern32Approx, h, x, yerr, 0)
		require.NoError(t, err)
		c, err := p.Condition(r)
		require.NoError(t, err)
		m, v, err := c.Predict(xNew)
		require.NoError(t, err)
		return m, v, c.LogMarginalLikelihood()
	}

	// --- Act ---
	m1, v1, ll1 := predict(sortedX, sortedErr, sortedR)
	m2, v2, ll2 := predict(shufX, shufErr, shufR)

	// --- Assert ---
	if diff := cmp.Diff(m1, m2, approx); diff != "" {
		t.Errorf("mean depends on input order (-sorted +shuffled):\n%s", diff)
	}
	if diff := cmp.Diff(v1, v2, approx); diff != "" {
		t.Errorf("variance depends on input order (-sorted +shuffled):\n%s", diff)
	}
	assert.InDelta(t, ll1, ll2, 1e-10)
}

func TestPredict_Empty(t *testing.T) {
	t.Parallel()
	p, err := New(kernel.ExpSquared, []float64{1, 1}, []float64{0}, []float64{0.1}, 0)
	require.NoError(t, err)
	c, err := p.Condition([]float64{0})
	require.NoError(t, err)

	m, v, err := c.Predict(nil)

	require.NoError(t, err)
	assert.Empty(t, m)
	assert.Empty(t, v)
}

func TestCondition_NotPositiveDefinite(t *testing.T) {
	t.Parallel()

	// Duplicate inputs without any white noise give a singular covariance.
	p, err := New(kernel.ExpSquared, []float64{1, 1}, []float64{1, 1}, []float64{0, 0}, 0)
	require.NoError(t, err)

	_, err = p.Condition([]float64{0.1, 0.2})

	var ne *errdefs.NumericalError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "exp-squared", ne.Kernel)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(kernel.None, nil, []float64{0}, []float64{1}, 0)
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = New(kernel.Exponential, []float64{1, 1}, []float64{0, 1}, []float64{1}, 0)
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = New(kernel.Exponential, []float64{1, -1}, []float64{0}, []float64{1}, 0)
	assert.True(t, errdefs.IsNumerical(err))

	p, err := New(kernel.Exponential, []float64{1, 1}, []float64{0}, []float64{1}, 0)
	require.NoError(t, err)
	_, err = p.LogMarginalLikelihood([]float64{1, 2})
	assert.True(t, errdefs.IsConfiguration(err))
}
