package registry

import (
	"math"
	"strings"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// Parameter is a named prior with its current value.
type Parameter struct {
	Name  string
	Dist  Distribution
	Value float64
}

// Registry holds every parameter of a fit in declaration order. The order of
// the free (non-fixed) parameters defines the layout of the sampler's vector.
type Registry struct {
	params []Parameter
	index  map[string]int
	free   []int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Add declares a parameter. Free parameters start at their prior median.
func (r *Registry) Add(name string, dist Distribution) error {
	if name == "" {
		return errdefs.Configf("parameter name cannot be empty")
	}
	if _, exists := r.index[name]; exists {
		return &errdefs.ConfigurationError{Parameter: name, Msg: "declared more than once"}
	}
	p := Parameter{Name: name, Dist: dist, Value: dist.Median()}
	r.index[name] = len(r.params)
	if !dist.IsFixed() {
		r.free = append(r.free, len(r.params))
	}
	r.params = append(r.params, p)
	return nil
}

// Get returns the current value of name. Fixed parameters always resolve to
// their constant.
func (r *Registry) Get(name string) (float64, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return 0, &errdefs.ConfigurationError{Parameter: name, Msg: "required parameter is not declared"}
	}
	return v, nil
}

// Lookup is Get without the error, for optional parameters.
func (r *Registry) Lookup(name string) (float64, bool) {
	i, ok := r.index[name]
	if !ok {
		return 0, false
	}
	p := &r.params[i]
	if p.Dist.IsFixed() {
		return p.Dist.Hyper[0], true
	}
	return p.Value, true
}

// GetOr returns the value of name, or def when it is not declared.
func (r *Registry) GetOr(name string, def float64) float64 {
	if v, ok := r.Lookup(name); ok {
		return v
	}
	return def
}

// Has reports whether name is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Require returns a ConfigurationError naming the first missing parameter.
func (r *Registry) Require(names ...string) error {
	for _, n := range names {
		if !r.Has(n) {
			return &errdefs.ConfigurationError{Parameter: n, Msg: "required parameter is not declared"}
		}
	}
	return nil
}

// Parameter returns a copy of the named parameter.
func (r *Registry) Parameter(name string) (Parameter, bool) {
	i, ok := r.index[name]
	if !ok {
		return Parameter{}, false
	}
	p := r.params[i]
	p.Dist.Hyper = append([]float64(nil), p.Dist.Hyper...)
	return p, true
}

// Names returns all parameter names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.params))
	for i, p := range r.params {
		out[i] = p.Name
	}
	return out
}

// WithPrefix returns the declared names starting with prefix, in declaration
// order.
func (r *Registry) WithPrefix(prefix string) []string {
	var out []string
	for _, p := range r.params {
		if strings.HasPrefix(p.Name, prefix) {
			out = append(out, p.Name)
		}
	}
	return out
}

// FreeNames returns the names of the free parameters in vector order.
func (r *Registry) FreeNames() []string {
	out := make([]string, len(r.free))
	for i, idx := range r.free {
		out[i] = r.params[idx].Name
	}
	return out
}

// Dim is the length of the sampler's vector.
func (r *Registry) Dim() int {
	return len(r.free)
}

// SetFromVector writes v into the free parameters in declared order. Fixed
// parameters are never touched.
func (r *Registry) SetFromVector(v []float64) error {
	if len(v) != len(r.free) {
		return errdefs.Configf("parameter vector has length %d, expected %d free parameters", len(v), len(r.free))
	}
	for i, idx := range r.free {
		r.params[idx].Value = v[i]
	}
	return nil
}

// Vector returns the current values of the free parameters.
func (r *Registry) Vector() []float64 {
	out := make([]float64, len(r.free))
	for i, idx := range r.free {
		out[i] = r.params[idx].Value
	}
	return out
}

// Initial returns the vector of prior medians.
func (r *Registry) Initial() []float64 {
	out := make([]float64, len(r.free))
	for i, idx := range r.free {
		out[i] = r.params[idx].Dist.Median()
	}
	return out
}

// LogPrior is the joint log prior density of v, -Inf when any component is
// outside its support or the length is wrong.
func (r *Registry) LogPrior(v []float64) float64 {
	if len(v) != len(r.free) {
		return math.Inf(-1)
	}
	lp := 0.0
	for i, idx := range r.free {
		lp += r.params[idx].Dist.LogProb(v[i])
		if math.IsInf(lp, -1) {
			return lp
		}
	}
	return lp
}

// Transform maps a point of the unit hypercube onto the prior.
func (r *Registry) Transform(u []float64) ([]float64, error) {
	if len(u) != len(r.free) {
		return nil, errdefs.Configf("unit-cube vector has length %d, expected %d", len(u), len(r.free))
	}
	out := make([]float64, len(u))
	for i, idx := range r.free {
		if u[i] < 0 || u[i] > 1 {
			return nil, &errdefs.ConfigurationError{Parameter: r.params[idx].Name, Msg: "unit-cube coordinate outside [0, 1]"}
		}
		out[i] = r.params[idx].Dist.Quantile(u[i])
	}
	return out, nil
}

// Clone returns an independent copy sharing no mutable state.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		params: make([]Parameter, len(r.params)),
		index:  make(map[string]int, len(r.index)),
		free:   append([]int(nil), r.free...),
	}
	copy(c.params, r.params)
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}
