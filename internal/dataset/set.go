package dataset

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gpfit/internal/config"
	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// Set is the read-only collection of instruments of one fit, in declaration
// order.
type Set struct {
	order  []*Dataset
	byName map[string]*Dataset
}

// NewSet builds a Set, rejecting duplicate instrument names.
func NewSet(datasets ...*Dataset) (*Set, error) {
	s := &Set{byName: make(map[string]*Dataset, len(datasets))}
	for _, d := range datasets {
		if _, exists := s.byName[d.Name]; exists {
			return nil, &errdefs.ConfigurationError{Instrument: d.Name, Msg: "instrument declared more than once"}
		}
		s.byName[d.Name] = d
		s.order = append(s.order, d)
	}
	return s, nil
}

// Get returns the named instrument.
func (s *Set) Get(name string) (*Dataset, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, &errdefs.ConfigurationError{Instrument: name, Msg: "unknown instrument"}
	}
	return d, nil
}

// All returns the instruments in declaration order.
func (s *Set) All() []*Dataset {
	return s.order
}

// Names returns the instrument names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	for i, d := range s.order {
		out[i] = d.Name
	}
	return out
}

// FromModel builds the dataset Set from the instrument blocks of a loaded
// config model, reading data files where the block references one.
func FromModel(ctx context.Context, model *config.Model) (*Set, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building datasets from config model...", "instruments", len(model.Instruments))

	datasets := make([]*Dataset, 0, len(model.Instruments))
	for _, inst := range model.Instruments {
		kind, err := ParseKind(inst.Kind)
		if err != nil {
			return nil, errdefs.WithInstrument(err, inst.Name)
		}

		times, values, errs := inst.Times, inst.Values, inst.Errors
		if inst.DataFile != "" {
			if len(times) > 0 || len(values) > 0 || len(errs) > 0 {
				return nil, &errdefs.ConfigurationError{Instrument: inst.Name, Msg: "data_file cannot be combined with inline times/values/errors"}
			}
			cols, err := ReadFile(inst.DataFile, inst.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to read data for instrument %s: %w", inst.Name, err)
			}
			times, values, errs = cols.Times, cols.Values, cols.Errors
			logger.Debug("Read instrument data file.", "instrument", inst.Name, "file", inst.DataFile, "rows", len(times))
		}

		d, err := New(inst.Name, kind, times, values, errs, inst.Regressors, inst.Linear)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
		logger.Debug("Instrument dataset ready.", "instrument", d.Name, "kind", d.Kind, "points", d.Len(), "gp_regressors", d.Regressors != nil, "linear_columns", d.NumLinear())
	}

	set, err := NewSet(datasets...)
	if err != nil {
		return nil, err
	}
	logger.Info("Datasets loaded successfully.", "instruments", set.Names())
	return set, nil
}
