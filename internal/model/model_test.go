package model_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/gpfit/internal/dataset"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"github.com/specialistvlad/gpfit/internal/model"
	"github.com/specialistvlad/gpfit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// gpComposite is one photometry instrument with an exp-squared GP and one RV
// instrument with white noise.
func gpComposite(t *testing.T, errs float64) *model.Composite {
	t.Helper()

	reg := testutil.Registry(t,
		testutil.Fixed("mflux_LC", 0.01),
		testutil.Fixed("GP_sigma_LC", 0.02),
		testutil.Fixed("GP_alpha_LC", 0.5),
		testutil.Fixed("mu_RV", 3),
		testutil.Fixed("sigma_w_RV", 0.4),
	)
	lc := testutil.Dataset(t, "LC", dataset.Photometry,
		[]float64{2, 0, 4, 1, 3},
		[]float64{0.995, 0.99, 0.985, 1.0, 0.98},
		testutil.Filled(5, errs),
	)
	rv := testutil.Dataset(t, "RV", dataset.RV, []float64{0, 1}, []float64{3.2, 2.9}, []float64{0.5, 0.5})

	c, err := model.New(context.Background(), reg, testutil.Set(t, lc, rv), nil)
	require.NoError(t, err)
	return c
}

func TestNew_ClassifiesKernels(t *testing.T) {
	t.Parallel()
	c := gpComposite(t, 0.001)

	k, err := c.Kernel("LC")
	require.NoError(t, err)
	assert.Equal(t, kernel.ExpSquared, k)

	k, err = c.Kernel("RV")
	require.NoError(t, err)
	assert.Equal(t, kernel.None, k)

	assert.Equal(t, []string{"LC", "RV"}, c.Instruments())
	for _, name := range []string{"mflux_LC", "GP_sigma_LC", "GP_alpha_LC", "mu_RV", "sigma_w_RV"} {
		assert.Contains(t, c.Used(), name)
	}
}

func TestEvaluate_InSampleMatchesExplicitTarget(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := gpComposite(t, 0.001)
	d, err := c.Dataset("LC")
	require.NoError(t, err)

	// --- Act ---
	in, err := c.EvaluateInSample("LC")
	require.NoError(t, err)
	at, err := c.EvaluateAt("LC", d.Times, nil, nil)
	require.NoError(t, err)

	// --- Assert ---
	if diff := cmp.Diff(in, at, approx); diff != "" {
		t.Errorf("in-sample and explicit evaluation differ (-in +at):\n%s", diff)
	}
	for i := range in.Total {
		assert.InDelta(t, in.Deterministic[i]+in.GP[i], in.Total[i], 1e-15)
	}
}

func TestEvaluate_ZeroNoiseReproducesData(t *testing.T) {
	t.Parallel()

	c := gpComposite(t, 0)
	d, err := c.Dataset("LC")
	require.NoError(t, err)

	res, err := c.EvaluateInSample("LC")

	require.NoError(t, err)
	if diff := cmp.Diff(d.Values, res.Total, cmpopts.EquateApprox(0, 1e-8)); diff != "" {
		t.Errorf("Total does not interpolate the data (-data +total):\n%s", diff)
	}
	for _, v := range res.GPVariance {
		assert.InDelta(t, 0, v, 1e-10)
	}
}

func TestEvaluate_WhiteNoiseInstrument(t *testing.T) {
	t.Parallel()
	c := gpComposite(t, 0.001)

	res, err := c.EvaluateAt("RV", []float64{5, 6, 7}, nil, nil)

	require.NoError(t, err)
	assert.Nil(t, res.GP)
	assert.Nil(t, res.GPVariance)
	assert.Equal(t, []float64{3, 3, 3}, res.Total)
	assert.Equal(t, res.Deterministic, res.Total)

	jitter, err := c.Jitter("RV")
	require.NoError(t, err)
	assert.Equal(t, 0.4, jitter)
}

func TestEvaluate_PredictionRevertsToMeanFarAway(t *testing.T) {
	t.Parallel()
	c := gpComposite(t, 0.001)

	res, err := c.EvaluateAt("LC", []float64{100}, nil, nil)

	require.NoError(t, err)
	assert.InDelta(t, 0, res.GP[0], 1e-12)
	assert.InDelta(t, 0.02*0.02, res.GPVariance[0], 1e-12)
	assert.InDelta(t, 1/1.01, res.Total[0], 1e-12)
}

func TestDetrended(t *testing.T) {
	t.Parallel()
	c := gpComposite(t, 0.001)
	d, err := c.Dataset("LC")
	require.NoError(t, err)

	got, err := c.Detrended("LC")
	require.NoError(t, err)
	res, err := c.EvaluateInSample("LC")
	require.NoError(t, err)
	for i := range got {
		assert.InDelta(t, d.Values[i]-res.GP[i], got[i], 1e-15)
	}

	rv, err := c.Detrended("RV")
	require.NoError(t, err)
	assert.Equal(t, []float64{3.2, 2.9}, rv)
}

func TestEvaluate_GPOnRegressors(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg := testutil.Registry(t,
		testutil.Fixed("mu_RV", 0),
		testutil.Fixed("GP_sigma_RV", 1),
		testutil.Fixed("GP_timescale_RV", 2),
	)
	d, err := dataset.New("RV", dataset.RV, []float64{0, 1, 2}, []float64{0.5, 0.1, -0.3}, []float64{0.1, 0.1, 0.1}, []float64{10, 11, 12}, nil)
	require.NoError(t, err)
	c, err := model.New(context.Background(), reg, testutil.Set(t, d), nil)
	require.NoError(t, err)

	// --- Act ---
	_, missingErr := c.EvaluateAt("RV", []float64{5}, nil, nil)
	res, err := c.EvaluateAt("RV", []float64{5, 6}, []float64{10, 11}, nil)

	// --- Assert ---
	assert.True(t, errdefs.IsConfiguration(missingErr))
	require.NoError(t, err)
	in, err := c.EvaluateInSample("RV")
	require.NoError(t, err)
	// The GP ignores the times and follows the regressors.
	assert.InDelta(t, in.GP[0], res.GP[0], 1e-12)
	assert.InDelta(t, in.GP[1], res.GP[1], 1e-12)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	lc := testutil.Dataset(t, "LC", dataset.Photometry, []float64{0}, []float64{1}, []float64{0.1})

	t.Run("ambiguous kernel", func(t *testing.T) {
		reg := testutil.Registry(t, testutil.Fixed("mflux_LC", 0), testutil.Fixed("GP_sigma_LC", 1))
		_, err := model.New(context.Background(), reg, testutil.Set(t, lc), nil)

		var ce *errdefs.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "LC", ce.Instrument)
		assert.Contains(t, err.Error(), "ambiguous")
	})

	t.Run("missing signal parameter", func(t *testing.T) {
		reg := testutil.Registry(t)
		_, err := model.New(context.Background(), reg, testutil.Set(t, lc), nil)

		var ce *errdefs.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "mflux_LC", ce.Parameter)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		reg := testutil.Registry(t, testutil.Fixed("mflux_LC", 0))
		c, err := model.New(context.Background(), reg, testutil.Set(t, lc), nil)
		require.NoError(t, err)

		_, err = c.EvaluateInSample("HARPS")
		assert.True(t, errdefs.IsConfiguration(err))
	})
}
