// Package dataset holds the per-instrument observations of a fit. A Dataset
// is validated once when it is built and never mutated afterwards, which
// lets every likelihood worker share it without copying.
package dataset

import (
	"fmt"
	"math"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// Kind selects the deterministic signal an instrument is compared against.
type Kind string

const (
	Photometry Kind = "photometry"
	RV         Kind = "rv"
)

// ParseKind accepts the instrument kinds understood by the signal model.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Photometry, RV:
		return Kind(s), nil
	case "lc", "transit":
		return Photometry, nil
	case "":
		return "", errdefs.Configf("instrument kind is required")
	}
	return "", errdefs.Configf("unknown instrument kind %q, expected %q or %q", s, Photometry, RV)
}

// Dataset is one instrument's parallel arrays. Index i of every slice refers
// to the same observation.
type Dataset struct {
	Name       string
	Kind       Kind
	Times      []float64
	Values     []float64
	Errors     []float64
	Regressors []float64   // nil when the GP runs on time
	Linear     [][]float64 // nil when the instrument has no linear model
}

// New validates the arrays and returns a Dataset that owns copies of them.
func New(name string, kind Kind, times, values, errs, regressors []float64, linear [][]float64) (*Dataset, error) {
	fail := func(format string, args ...any) error {
		return &errdefs.ConfigurationError{Instrument: name, Msg: fmt.Sprintf(format, args...)}
	}
	if name == "" {
		return nil, errdefs.Configf("instrument name cannot be empty")
	}
	n := len(times)
	if n == 0 {
		return nil, fail("instrument has no observations")
	}
	if len(values) != n || len(errs) != n {
		return nil, fail("mismatched array lengths: times=%d values=%d errors=%d", n, len(values), len(errs))
	}
	if regressors != nil && len(regressors) != n {
		return nil, fail("mismatched array lengths: times=%d regressors=%d", n, len(regressors))
	}
	if linear != nil && len(linear) != n {
		return nil, fail("mismatched array lengths: times=%d linear=%d", n, len(linear))
	}
	width := -1
	for i, row := range linear {
		if width == -1 {
			width = len(row)
		}
		if len(row) != width || width == 0 {
			return nil, fail("linear regressor row %d has %d columns, expected %d", i, len(row), width)
		}
	}
	for i := 0; i < n; i++ {
		if !finite(times[i]) || !finite(values[i]) || !finite(errs[i]) {
			return nil, fail("non-finite value at index %d", i)
		}
		if errs[i] < 0 {
			return nil, fail("negative measurement error at index %d", i)
		}
		if regressors != nil && !finite(regressors[i]) {
			return nil, fail("non-finite regressor at index %d", i)
		}
	}

	d := &Dataset{
		Name:   name,
		Kind:   kind,
		Times:  clone(times),
		Values: clone(values),
		Errors: clone(errs),
	}
	if regressors != nil {
		d.Regressors = clone(regressors)
	}
	if linear != nil {
		d.Linear = make([][]float64, n)
		for i, row := range linear {
			d.Linear[i] = clone(row)
		}
	}
	return d, nil
}

// Len is the number of observations.
func (d *Dataset) Len() int { return len(d.Times) }

// GPInput is the independent variable of the GP: the regressors when present,
// otherwise the times.
func (d *Dataset) GPInput() []float64 {
	if d.Regressors != nil {
		return d.Regressors
	}
	return d.Times
}

// NumLinear is the number of linear-model regressor columns.
func (d *Dataset) NumLinear() int {
	if len(d.Linear) == 0 {
		return 0
	}
	return len(d.Linear[0])
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
