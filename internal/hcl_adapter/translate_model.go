// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gpfit/internal/config"
	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateInstrument converts the HCL-specific instrument schema into the
// agnostic model. A relative data_file is resolved against baseDir.
func (l *Loader) translateInstrument(ctx context.Context, s *Instrument, baseDir string) *config.Instrument {
	logger := ctxlog.FromContext(ctx).With("instrument", s.Name)
	logger.Debug("Translating HCL instrument to internal config model.", "kind", s.Kind, "inline_points", len(s.Times), "data_file", s.DataFile)

	dataFile := s.DataFile
	if dataFile != "" && !filepath.IsAbs(dataFile) {
		dataFile = filepath.Join(baseDir, dataFile)
	}
	return &config.Instrument{
		Name:       s.Name,
		Kind:       s.Kind,
		Times:      s.Times,
		Values:     s.Values,
		Errors:     s.Errors,
		Regressors: s.Regressors,
		Linear:     s.Linear,
		DataFile:   dataFile,
	}
}

// translateParameter converts the HCL-specific parameter schema into the
// agnostic model, evaluating the hyperparameter expression.
func (l *Loader) translateParameter(ctx context.Context, s *Parameter) (*config.Parameter, error) {
	hyper, err := decodeNumbers(s.Hyperparameters)
	if err != nil {
		return nil, fmt.Errorf("in parameter '%s', hyperparameters: %w", s.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Translated HCL parameter.", "parameter", s.Name, "distribution", s.Distribution, "hyperparameters", hyper)
	return &config.Parameter{
		Name:            s.Name,
		Distribution:    s.Distribution,
		Hyperparameters: hyper,
	}, nil
}

// decodeNumbers accepts a number or a list/tuple of numbers.
func decodeNumbers(expr hcl.Expression) ([]float64, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("value is null or unknown")
	}

	ty := val.Type()
	if ty == cty.Number {
		var f float64
		if err := gocty.FromCtyValue(val, &f); err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("expected a number or a list of numbers, got %s", ty.FriendlyName())
	}

	var out []float64
	it := val.ElementIterator()
	for i := 0; it.Next(); i++ {
		_, el := it.Element()
		if el.Type() != cty.Number {
			return nil, fmt.Errorf("element %d is %s, expected number", i, el.Type().FriendlyName())
		}
		var f float64
		if err := gocty.FromCtyValue(el, &f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
