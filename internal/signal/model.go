// Package signal computes the deterministic, noiseless model of an
// instrument: a multi-planet transit light curve for photometry, a sum of
// Keplerians for radial velocities, plus an optional linear model in
// per-point regressors.
//
// Parameter names follow the per-planet and per-instrument suffix
// convention: P_p1, t0_p1, K_p1 for planet 1; mflux_TESS, mu_HARPS for an
// instrument. A Model resolves which names it needs once, at construction;
// Evaluate only reads values.
//
// Multi-planet light curves combine additively in flux deficit:
//
//	T(t) = 1 + Σ_p (T_p(t) - 1)
//
// so each planet removes its own fraction of the stellar flux. Overlapping
// (mutual) transits are not modeled.
package signal

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/gpfit/internal/dataset"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/registry"
)

// Params is the read side of the parameter registry.
type Params interface {
	Get(name string) (float64, error)
}

// planet holds the registry names of one body; optional names are empty when
// not declared.
type planet struct {
	index  int
	period string
	t0     string
	ecc    string
	omega  string

	// photometry
	radius string
	impact string
	a      string

	// rv
	k string
}

// Model is the deterministic signal of one instrument.
type Model struct {
	instrument string
	kind       dataset.Kind
	shape      TransitShape
	planets    []planet
	nLinear    int

	rho      string
	dilution string
	meanFlux string
	systemic string
	q1, q2   string
	linear   []string
	used     []string
}

// New resolves the parameter names the instrument's signal needs. Missing
// required names are a ConfigurationError.
func New(reg *registry.Registry, ds *dataset.Dataset, shape TransitShape) (*Model, error) {
	if shape == nil {
		shape = SmallPlanet{}
	}
	m := &Model{
		instrument: ds.Name,
		kind:       ds.Kind,
		shape:      shape,
		nLinear:    ds.NumLinear(),
	}
	fail := func(err error) (*Model, error) {
		return nil, errdefs.WithInstrument(err, ds.Name)
	}

	opt := func(name string) string {
		if reg.Has(name) {
			m.used = append(m.used, name)
			return name
		}
		return ""
	}
	req := func(name string) (string, error) {
		if err := reg.Require(name); err != nil {
			return "", err
		}
		m.used = append(m.used, name)
		return name, nil
	}

	var err error
	for _, idx := range planetIndices(reg) {
		pl := planet{index: idx}
		suffix := "_p" + strconv.Itoa(idx)
		switch ds.Kind {
		case dataset.Photometry:
			pl.radius = opt("p" + suffix + "_" + ds.Name)
			if pl.radius == "" {
				pl.radius = opt("p" + suffix)
			}
			if pl.radius == "" {
				continue
			}
			if pl.impact, err = req("b" + suffix); err != nil {
				return fail(err)
			}
			pl.a = opt("a" + suffix)
			if pl.a == "" {
				if m.rho, err = req("rho"); err != nil {
					return fail(&errdefs.ConfigurationError{Parameter: "a" + suffix, Msg: "either a" + suffix + " or rho is required"})
				}
			}
		case dataset.RV:
			if pl.k = opt("K" + suffix); pl.k == "" {
				continue
			}
		}
		if pl.period, err = req("P" + suffix); err != nil {
			return fail(err)
		}
		if pl.t0, err = req("t0" + suffix); err != nil {
			return fail(err)
		}
		pl.ecc = opt("ecc" + suffix)
		pl.omega = opt("omega" + suffix)
		m.planets = append(m.planets, pl)
	}

	switch ds.Kind {
	case dataset.Photometry:
		if m.meanFlux, err = req("mflux_" + ds.Name); err != nil {
			return fail(err)
		}
		m.dilution = opt("mdilution_" + ds.Name)
		if len(m.planets) > 0 {
			if m.q1, err = req("q1_" + ds.Name); err != nil {
				return fail(err)
			}
			m.q2 = opt("q2_" + ds.Name)
		}
	case dataset.RV:
		if m.systemic, err = req("mu_" + ds.Name); err != nil {
			return fail(err)
		}
	}

	for k := 0; k < m.nLinear; k++ {
		name, err := req(fmt.Sprintf("theta%d_%s", k, ds.Name))
		if err != nil {
			return fail(err)
		}
		m.linear = append(m.linear, name)
	}
	return m, nil
}

// Used returns every registry name the model reads.
func (m *Model) Used() []string {
	return m.used
}

// Planets returns the indices of the bodies contributing to this instrument.
func (m *Model) Planets() []int {
	out := make([]int, len(m.planets))
	for i, p := range m.planets {
		out[i] = p.index
	}
	return out
}

// Evaluate returns the noiseless model at times. linear must carry one row
// per time when the instrument has a linear model and is ignored otherwise.
func (m *Model) Evaluate(params Params, times []float64, linear [][]float64) ([]float64, error) {
	if m.nLinear > 0 && len(linear) != len(times) {
		return nil, &errdefs.ConfigurationError{Instrument: m.instrument, Msg: fmt.Sprintf("linear model needs %d regressor rows, got %d", len(times), len(linear))}
	}

	var out []float64
	var err error
	switch m.kind {
	case dataset.Photometry:
		out, err = m.photometry(params, times)
	case dataset.RV:
		out, err = m.rv(params, times)
	default:
		err = &errdefs.ConfigurationError{Msg: fmt.Sprintf("unknown instrument kind %q", m.kind)}
	}
	if err != nil {
		return nil, errdefs.WithInstrument(err, m.instrument)
	}

	for k, name := range m.linear {
		theta, err := params.Get(name)
		if err != nil {
			return nil, errdefs.WithInstrument(err, m.instrument)
		}
		for i := range out {
			if len(linear[i]) != m.nLinear {
				return nil, &errdefs.ConfigurationError{Instrument: m.instrument, Msg: fmt.Sprintf("linear regressor row %d has %d columns, expected %d", i, len(linear[i]), m.nLinear)}
			}
			out[i] += theta * linear[i][k]
		}
	}
	return out, nil
}

func (m *Model) photometry(params Params, times []float64) ([]float64, error) {
	v := reader{params: params}
	meanFlux := v.get(m.meanFlux)
	dilution := v.getOr(m.dilution, 1)
	var u1, u2 float64
	if len(m.planets) > 0 {
		u1, u2 = LimbDarkening(v.get(m.q1), v.getOr(m.q2, 0), m.q2 != "")
	}
	rho := v.getOr(m.rho, 0)

	transit := make([]float64, len(times))
	for i := range transit {
		transit[i] = 1
	}
	for _, pl := range m.planets {
		tp := TransitParams{
			Orbit:       v.orbit(pl),
			RadiusRatio: v.get(pl.radius),
			Impact:      v.get(pl.impact),
			U1:          u1,
			U2:          u2,
		}
		if pl.a != "" {
			tp.A = v.get(pl.a)
		} else {
			tp.A = ScaledSemiMajorAxis(rho, tp.Period)
		}
		if v.err != nil {
			return nil, v.err
		}
		if err := checkTransit(tp, pl.index); err != nil {
			return nil, err
		}
		flux := m.shape.Flux(times, tp)
		for i := range transit {
			transit[i] += flux[i] - 1
		}
	}
	if v.err != nil {
		return nil, v.err
	}

	norm := 1 + dilution*meanFlux
	if norm == 0 {
		return nil, &errdefs.NumericalError{Msg: "mean-flux normalisation 1 + D·M is zero"}
	}
	for i, t := range transit {
		transit[i] = (t*dilution + (1 - dilution)) / norm
	}
	return transit, nil
}

func (m *Model) rv(params Params, times []float64) ([]float64, error) {
	v := reader{params: params}
	mu := v.get(m.systemic)
	out := make([]float64, len(times))
	for i := range out {
		out[i] = mu
	}
	for _, pl := range m.planets {
		o := v.orbit(pl)
		k := v.get(pl.k)
		if v.err != nil {
			return nil, v.err
		}
		if err := checkOrbit(o, pl.index); err != nil {
			return nil, err
		}
		_, f := o.Anomalies(times)
		for i := range out {
			out[i] += k * (math.Cos(f[i]+o.Omega) + o.Ecc*math.Cos(o.Omega))
		}
	}
	if v.err != nil {
		return nil, v.err
	}
	return out, nil
}

// reader accumulates the first lookup error so evaluation code stays flat.
type reader struct {
	params Params
	err    error
}

func (r *reader) get(name string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.params.Get(name)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *reader) getOr(name string, def float64) float64 {
	if name == "" {
		return def
	}
	return r.get(name)
}

func (r *reader) orbit(pl planet) Orbit {
	return Orbit{
		Period: r.get(pl.period),
		T0:     r.get(pl.t0),
		Ecc:    r.getOr(pl.ecc, 0),
		Omega:  r.getOr(pl.omega, 90) * math.Pi / 180,
	}
}

func checkOrbit(o Orbit, index int) error {
	if !(o.Period > 0) {
		return &errdefs.NumericalError{Msg: fmt.Sprintf("planet %d: period must be positive", index)}
	}
	if o.Ecc < 0 || o.Ecc >= 1 || math.IsNaN(o.Ecc) {
		return &errdefs.NumericalError{Msg: fmt.Sprintf("planet %d: eccentricity must be in [0, 1)", index)}
	}
	return nil
}

func checkTransit(tp TransitParams, index int) error {
	if err := checkOrbit(tp.Orbit, index); err != nil {
		return err
	}
	if !(tp.RadiusRatio > 0) || !(tp.A > 1) || tp.Impact < 0 {
		return &errdefs.NumericalError{Msg: fmt.Sprintf("planet %d: requires p > 0, a/R* > 1 and b >= 0", index)}
	}
	if c := inclinationCosine(tp); c > 1 || math.IsNaN(c) {
		return &errdefs.NumericalError{Msg: fmt.Sprintf("planet %d: impact parameter implies cos i > 1", index)}
	}
	return nil
}

// planetIndices lists the planet numbers n for which P_p<n> is declared.
func planetIndices(reg *registry.Registry) []int {
	var out []int
	for _, name := range reg.WithPrefix("P_p") {
		n, err := strconv.Atoi(strings.TrimPrefix(name, "P_p"))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
