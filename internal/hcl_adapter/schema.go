package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Instruments []*Instrument `hcl:"instrument,block"`
	Parameters  []*Parameter  `hcl:"parameter,block"`
	Remain      hcl.Body      `hcl:",remain"`
}

// Instrument is the HCL schema of an `instrument` block.
type Instrument struct {
	Name       string      `hcl:"name,label"`
	Kind       string      `hcl:"kind"`
	Times      []float64   `hcl:"times,optional"`
	Values     []float64   `hcl:"values,optional"`
	Errors     []float64   `hcl:"errors,optional"`
	Regressors []float64   `hcl:"regressors,optional"`
	Linear     [][]float64 `hcl:"linear,optional"`
	DataFile   string      `hcl:"data_file,optional"`
}

// Parameter is the HCL schema of a `parameter` block. Hyperparameters stay an
// expression so that a single number and a list are both accepted.
type Parameter struct {
	Name            string         `hcl:"name,label"`
	Distribution    string         `hcl:"distribution"`
	Hyperparameters hcl.Expression `hcl:"hyperparameters"`
}
