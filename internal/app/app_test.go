package app_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/specialistvlad/gpfit/internal/app"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/fit"
	"github.com/specialistvlad/gpfit/internal/kernel"
	"github.com/specialistvlad/gpfit/internal/signal"
	"github.com/specialistvlad/gpfit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_BuildsSession(t *testing.T) {
	t.Parallel()

	// --- Act ---
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.GPFit})

	// --- Assert ---
	s := res.App.Session()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, []string{"TESS", "HARPS"}, s.Data.Names())
	assert.Equal(t, []string{"mflux_TESS", "GP_sigma_TESS", "GP_rho_TESS", "mu_HARPS", "sigma_w_HARPS"}, s.Registry.FreeNames())
	k, err := s.Model.Kernel("TESS")
	require.NoError(t, err)
	assert.Equal(t, kernel.Matern32Approx, k)

	logs := res.Logs.String()
	assert.Contains(t, logs, "run_id="+s.ID)
	assert.Contains(t, logs, "Session ready.")
}

func TestNewApp_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		fit      string
		contains string
	}{
		{
			name: "incomplete kernel",
			fit: testutil.WhiteNoiseFit + `
				parameter "GP_B_LC" {
				  distribution    = "fixed"
				  hyperparameters = 1
				}
			`,
			contains: "missing GP_C_LC, GP_L_LC, GP_Prot_LC",
		},
		{
			name: "unused free parameter",
			fit: testutil.WhiteNoiseFit + `
				parameter "K_p1" {
				  distribution    = "uniform"
				  hyperparameters = [0, 10]
				}
			`,
			contains: "free parameters not used by any model component: K_p1",
		},
		{
			name: "unknown distribution",
			fit: testutil.WhiteNoiseFit + `
				parameter "rho" {
				  distribution    = "cauchy"
				  hyperparameters = [0, 1]
				}
			`,
			contains: `unknown distribution "cauchy"`,
		},
		{
			name: "mismatched arrays",
			fit: `
				instrument "LC" {
				  kind   = "photometry"
				  times  = [0, 1]
				  values = [1]
				  errors = [0.1, 0.1]
				}
			`,
			contains: "mismatched array lengths",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := testutil.NewApp(t, map[string]string{"fit.hcl": tc.fit})

			require.Error(t, res.Err)
			assert.True(t, errdefs.IsConfiguration(res.Err), "expected a configuration error, got %v", res.Err)
			assert.Contains(t, res.Err.Error(), tc.contains)
		})
	}
}

func TestNewApp_DataFile(t *testing.T) {
	t.Parallel()

	res := testutil.MustApp(t, map[string]string{
		"fit/fit.hcl": `
			instrument "HARPS" {
			  kind      = "rv"
			  data_file = "../data/all.dat"
			}

			parameter "mu_HARPS" {
			  distribution    = "normal"
			  hyperparameters = [0, 5]
			}
		`,
		"data/all.dat": `
			# t rv err inst
			0.0  1.5  0.3  HARPS
			0.5  2.0  0.1  ESPRESSO
			1.0  1.2  0.3  HARPS
		`,
	})

	d, err := res.App.Session().Data.Get("HARPS")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.2}, d.Values)
}

// flatTransit dims every point by the planet's area ratio and records the
// parameters it was handed.
type flatTransit struct {
	seen []signal.TransitParams
}

func (f *flatTransit) Flux(times []float64, p signal.TransitParams) []float64 {
	f.seen = append(f.seen, p)
	out := make([]float64, len(times))
	for i := range out {
		out[i] = 1 - p.RadiusRatio
	}
	return out
}

func TestNewApp_WithTransitShape(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	shape := &flatTransit{}
	fixed := func(name string, v float64) string {
		return fmt.Sprintf("parameter %q {\n  distribution    = \"fixed\"\n  hyperparameters = %g\n}\n", name, v)
	}
	fitFile := `
		instrument "LC" {
		  kind   = "photometry"
		  times  = [0, 0.5, 1]
		  values = [0.9, 0.9, 0.9]
		  errors = [0.01, 0.01, 0.01]
		}
	` + fixed("P_p1", 10) + fixed("t0_p1", 0) + fixed("p_p1", 0.1) + fixed("b_p1", 0) +
		fixed("a_p1", 20) + fixed("q1_LC", 0.5) + fixed("mdilution_LC", 0.5) + fixed("mflux_LC", 0.1)

	// --- Act ---
	res := testutil.MustApp(t, map[string]string{"fit.hcl": fitFile}, app.WithTransitShape(shape))
	out, err := res.App.Session().Model.EvaluateInSample("LC")

	// --- Assert ---
	require.NoError(t, err)
	require.NotEmpty(t, shape.seen)
	assert.Equal(t, 0.1, shape.seen[0].RadiusRatio)
	assert.Equal(t, 20.0, shape.seen[0].A)
	// (T·D + (1−D)) / (1 + D·M) with T = 0.9, D = 0.5, M = 0.1.
	want := (0.9*0.5 + 0.5) / (1 + 0.5*0.1)
	for _, v := range out.Deterministic {
		assert.InDelta(t, want, v, 1e-12)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.GPFit})

	err := res.App.Check(context.Background())

	require.NoError(t, err)
	out := res.Output.String()
	assert.Contains(t, out, "matern32-approx")
	assert.Contains(t, out, "GP_rho_TESS")
	assert.Contains(t, out, "loguniform")
	assert.Contains(t, out, "log-likelihood at prior medians:")
	assert.Contains(t, res.Logs.String(), "command=check")
}

func TestLogLikelihood_WhiteNoiseScenario(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.WhiteNoiseFit})

	ll, err := res.App.LogLikelihood(context.Background(), nil)

	require.NoError(t, err)
	assert.InDelta(t, -1.5*(math.Log(2*math.Pi)+math.Log(1e-4)), ll, 1e-10)
	assert.Contains(t, res.Output.String(), "log_likelihood\t")
	assert.Contains(t, res.Logs.String(), "command=loglike")
}

func TestLogLikelihood_ReportsBadVector(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.GPFit})

	ll, err := res.App.LogLikelihood(context.Background(), []float64{0, -1, 1, 10, 0.1})

	assert.True(t, math.IsInf(ll, -1))
	assert.True(t, errdefs.IsNumerical(err))
}

func TestLogLikelihoodBatch(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.GPFit})
	e := res.App.Session().Engine
	draws := [][]float64{
		{0, 0.001, 1, 10, 0.1},
		{0.001, 0.002, 0.5, 9.9, 0.2},
		{0, -1, 1, 10, 0.1},
	}

	got, err := res.App.LogLikelihoodBatch(context.Background(), draws)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, e.Clone().LogLikelihood(draws[0]), got[0])
	assert.Equal(t, e.Clone().LogLikelihood(draws[1]), got[1])
	assert.True(t, math.IsInf(got[2], -1))
	assert.Len(t, strings.Split(strings.TrimSpace(res.Output.String()), "\n"), 3)
	assert.Contains(t, res.Logs.String(), "command=loglike")
}

func TestPredict(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.GPFit})

	err := res.App.Predict(context.Background(), app.PredictRequest{
		Instrument: "TESS",
		Times:      []float64{0.25, 1.25, 2.25},
	})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(res.Output.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"time", "total", "deterministic", "gp", "gp_var"}, strings.Fields(lines[0]))
	assert.Len(t, strings.Fields(lines[1]), 5)
	assert.Contains(t, res.Logs.String(), "command=predict")

	err = res.App.Predict(context.Background(), app.PredictRequest{Instrument: "K2", Times: []float64{0}})
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestPointsFromRows(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.RegressorFit})

	t.Run("splits time, regressor and linear columns", func(t *testing.T) {
		// --- Act ---
		req, err := res.App.PointsFromRows("LC", [][]float64{{0.5, 10.5, 2}, {1.5, 11.5, 3}})

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, "LC", req.Instrument)
		assert.Equal(t, []float64{0.5, 1.5}, req.Times)
		assert.Equal(t, []float64{10.5, 11.5}, req.Regressors)
		assert.Equal(t, [][]float64{{2}, {3}}, req.Linear)
	})

	t.Run("wrong column count", func(t *testing.T) {
		_, err := res.App.PointsFromRows("LC", [][]float64{{0.5, 10.5}})

		assert.True(t, errdefs.IsConfiguration(err))
		assert.ErrorContains(t, err, "expected 3 (time, regressor, 1 linear regressors)")
	})

	t.Run("unknown instrument", func(t *testing.T) {
		_, err := res.App.PointsFromRows("K2", [][]float64{{0}})

		assert.True(t, errdefs.IsConfiguration(err))
	})
}

func TestPredict_RegressorsAndLinearModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.RegressorFit})
	req, err := res.App.PointsFromRows("LC", [][]float64{{0.5, 10.5, 2}, {1.5, 11.5, 3}})
	require.NoError(t, err)

	// --- Act ---
	err = res.App.Predict(context.Background(), req)

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(res.Output.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1.002", strings.Fields(lines[1])[2])
	assert.Equal(t, "1.003", strings.Fields(lines[2])[2])

	// Time alone is not enough for this instrument.
	err = res.App.Predict(context.Background(), app.PredictRequest{Instrument: "LC", Times: []float64{0.5}})
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestFit(t *testing.T) {
	t.Parallel()
	res := testutil.MustApp(t, map[string]string{"fit.hcl": testutil.WhiteNoiseFit + `
		parameter "sigma_w_LC" {
		  distribution    = "loguniform"
		  hyperparameters = [1e-4, 1]
		}
	`})

	r, err := res.App.Fit(context.Background(), fit.Options{MaxEvaluations: 500})

	require.NoError(t, err)
	require.Len(t, r.Vector, 1)
	// Residuals are zero, so the likelihood grows as the jitter shrinks.
	assert.Less(t, r.Vector[0], 1e-3)
	assert.Contains(t, res.Output.String(), "sigma_w_LC")
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg, err := app.NewConfig(app.Config{FitPaths: []string{"fit.hcl"}})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Workers)

	_, err = app.NewConfig(app.Config{})
	assert.ErrorContains(t, err, "at least one fit file")

	_, err = app.NewConfig(app.Config{FitPaths: []string{"x"}, LogFormat: "xml"})
	assert.ErrorContains(t, err, "invalid log format")

	_, err = app.NewConfig(app.Config{FitPaths: []string{"x"}, LogLevel: "trace"})
	assert.ErrorContains(t, err, "invalid log level")
}
