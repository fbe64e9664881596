// Package hcl_adapter provides the HCL implementation of config.Loader. It
// parses fit files, decodes `instrument` and `parameter` blocks with gohcl
// and translates them into the format-agnostic config.Model.
//
// A fit file looks like:
//
//	instrument "TESS" {
//	  kind      = "photometry"
//	  data_file = "tess.dat"
//	}
//
//	parameter "P_p1" {
//	  distribution    = "normal"
//	  hyperparameters = [3.4252, 0.001]
//	}
//
//	parameter "mdilution_TESS" {
//	  distribution    = "fixed"
//	  hyperparameters = 1.0
//	}
package hcl_adapter
