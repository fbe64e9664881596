package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gpfit/internal/config"
	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/dataset"
	"github.com/specialistvlad/gpfit/internal/likelihood"
	"github.com/specialistvlad/gpfit/internal/model"
	"github.com/specialistvlad/gpfit/internal/registry"
	"github.com/specialistvlad/gpfit/internal/signal"
)

// Session is everything one fit needs, built once before sampling starts.
// The datasets are read-only from here on; the registry belongs to Engine.
type Session struct {
	ID       string
	Registry *registry.Registry
	Data     *dataset.Set
	Model    *model.Composite
	Engine   *likelihood.Engine
}

// newSession builds and validates a Session from a loaded config model.
func newSession(ctx context.Context, id string, cfgModel *config.Model, shape signal.TransitShape) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	reg, err := registry.FromModel(ctx, cfgModel)
	if err != nil {
		return nil, err
	}
	data, err := dataset.FromModel(ctx, cfgModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	comp, err := model.New(ctx, reg, data, shape)
	if err != nil {
		return nil, err
	}
	engine, err := likelihood.New(ctx, comp)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Info("Session ready.", "instruments", data.Names(), "free_parameters", reg.Dim())

	return &Session{
		ID:       id,
		Registry: reg,
		Data:     data,
		Model:    comp,
		Engine:   engine,
	}, nil
}
