package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gpfit/internal/config"
	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// FromModel builds a Registry from the parameter blocks of a loaded config
// model, preserving declaration order.
func FromModel(ctx context.Context, model *config.Model) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading parameter definitions from config model...", "count", len(model.Parameters))

	reg := New()
	for _, p := range model.Parameters {
		dist, err := NewDistribution(p.Distribution, p.Hyperparameters)
		if err != nil {
			if ce, ok := err.(*errdefs.ConfigurationError); ok {
				ce.Parameter = p.Name
			}
			return nil, fmt.Errorf("failed to load parameter definitions: %w", err)
		}
		if err := reg.Add(p.Name, dist); err != nil {
			return nil, fmt.Errorf("failed to load parameter definitions: %w", err)
		}
		logger.Debug("Registered parameter.", "name", p.Name, "distribution", dist.Kind, "hyperparameters", dist.Hyper)
	}

	logger.Info("Registry loaded successfully.", "parameters", len(reg.params), "free", reg.Dim())
	return reg, nil
}
