package config

// Model is the unified, format-agnostic representation of a fit: the
// instruments with their data and the parameter priors, both in declaration
// order.
type Model struct {
	Instruments []*Instrument
	Parameters  []*Parameter
}

// Instrument is the format-agnostic representation of an `instrument` block.
// Either the inline arrays or DataFile are populated by the loader; DataFile
// is resolved by the dataset package.
type Instrument struct {
	Name       string
	Kind       string // "photometry" or "rv", validated by the dataset package
	Times      []float64
	Values     []float64
	Errors     []float64
	Regressors []float64   // optional GP regressor, replaces time as the GP input
	Linear     [][]float64 // optional linear-model regressors, one row per point
	DataFile   string
}

// Parameter is the format-agnostic representation of a `parameter` block.
type Parameter struct {
	Name            string
	Distribution    string
	Hyperparameters []float64
}
