package testutil

import (
	"testing"

	"github.com/specialistvlad/gpfit/internal/dataset"
	"github.com/specialistvlad/gpfit/internal/registry"
	"github.com/stretchr/testify/require"
)

// Prior is a parameter declaration for Registry.
type Prior struct {
	Name  string
	Dist  string
	Hyper []float64
}

// Fixed declares a constant parameter.
func Fixed(name string, v float64) Prior {
	return Prior{Name: name, Dist: "fixed", Hyper: []float64{v}}
}

// Free declares a sampled parameter.
func Free(name, dist string, hyper ...float64) Prior {
	return Prior{Name: name, Dist: dist, Hyper: hyper}
}

// Registry builds a registry from priors in order, failing the test on any
// error.
func Registry(t *testing.T, priors ...Prior) *registry.Registry {
	t.Helper()

	reg := registry.New()
	for _, p := range priors {
		dist, err := registry.NewDistribution(p.Dist, p.Hyper)
		require.NoError(t, err, "prior %s", p.Name)
		require.NoError(t, reg.Add(p.Name, dist))
	}
	return reg
}

// Dataset builds a dataset, failing the test on any error.
func Dataset(t *testing.T, name string, kind dataset.Kind, times, values, errs []float64) *dataset.Dataset {
	t.Helper()

	d, err := dataset.New(name, kind, times, values, errs, nil, nil)
	require.NoError(t, err)
	return d
}

// Set builds a dataset set, failing the test on any error.
func Set(t *testing.T, ds ...*dataset.Dataset) *dataset.Set {
	t.Helper()

	s, err := dataset.NewSet(ds...)
	require.NoError(t, err)
	return s
}

// LinSpace returns n evenly spaced values from a to b inclusive.
func LinSpace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = a
		return out
	}
	for i := range out {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

// Filled returns n copies of v.
func Filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// WhiteNoiseFit is a single photometry instrument with three unit-flux
// points, errors of 0.01 and no free parameters. Its log-likelihood is
// -1.5·(ln 2π + ln 0.01²).
const WhiteNoiseFit = `
	instrument "LC" {
	  kind   = "photometry"
	  times  = [0, 1, 2]
	  values = [1, 1, 1]
	  errors = [0.01, 0.01, 0.01]
	}

	parameter "mdilution_LC" {
	  distribution    = "fixed"
	  hyperparameters = 1
	}

	parameter "mflux_LC" {
	  distribution    = "fixed"
	  hyperparameters = 0
	}
`

// GPFit is a photometry instrument with a Matern GP and an RV instrument
// with white noise, five free parameters in total.
const GPFit = `
	instrument "TESS" {
	  kind   = "photometry"
	  times  = [0, 0.5, 1, 1.5, 2, 2.5, 3]
	  values = [1.001, 1.002, 0.999, 0.998, 1.000, 1.001, 1.003]
	  errors = [0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001]
	}

	instrument "HARPS" {
	  kind   = "rv"
	  times  = [0.2, 1.1, 2.3]
	  values = [10.1, 9.8, 10.0]
	  errors = [0.5, 0.5, 0.5]
	}

	parameter "mflux_TESS" {
	  distribution    = "normal"
	  hyperparameters = [0, 0.1]
	}

	parameter "GP_sigma_TESS" {
	  distribution    = "loguniform"
	  hyperparameters = [1e-5, 1]
	}

	parameter "GP_rho_TESS" {
	  distribution    = "loguniform"
	  hyperparameters = [0.01, 100]
	}

	parameter "mu_HARPS" {
	  distribution    = "uniform"
	  hyperparameters = [0, 20]
	}

	parameter "sigma_w_HARPS" {
	  distribution    = "loguniform"
	  hyperparameters = [0.01, 10]
	}
`

// RegressorFit is a photometry instrument whose exponential GP runs on an
// external regressor and which carries one linear-model column. Every
// parameter is fixed; the deterministic model is 1 + 0.001·linear.
const RegressorFit = `
	instrument "LC" {
	  kind       = "photometry"
	  times      = [0, 1, 2, 3]
	  values     = [1.001, 1.002, 1.003, 1.004]
	  errors     = [0.01, 0.01, 0.01, 0.01]
	  regressors = [10, 11, 12, 13]
	  linear     = [[1], [2], [3], [4]]
	}

	parameter "mdilution_LC" {
	  distribution    = "fixed"
	  hyperparameters = 1
	}

	parameter "mflux_LC" {
	  distribution    = "fixed"
	  hyperparameters = 0
	}

	parameter "theta0_LC" {
	  distribution    = "fixed"
	  hyperparameters = 0.001
	}

	parameter "GP_sigma_LC" {
	  distribution    = "fixed"
	  hyperparameters = 0.001
	}

	parameter "GP_timescale_LC" {
	  distribution    = "fixed"
	  hyperparameters = 1
	}
`
