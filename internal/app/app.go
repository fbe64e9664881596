package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/specialistvlad/gpfit/internal/config"
	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/signal"
)

// App encapsulates the application's dependencies, configuration, and session.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	session *Session
}

// Option customizes an App.
type Option func(*options)

type options struct {
	shape signal.TransitShape
}

// WithTransitShape replaces the built-in transit shape.
func WithTransitShape(shape signal.TransitShape) Option {
	return func(o *options) { o.shape = shape }
}

// NewApp is the constructor for the main application. It loads the fit
// configuration and builds the Session; every configuration error, and any
// numerical failure at the prior medians, is returned here.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	o := &options{shape: signal.SmallPlanet{}}
	for _, opt := range opts {
		opt(o)
	}

	runID := uuid.NewString()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW).With("run_id", runID)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, cfg.FitPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	session, err := newSession(ctx, runID, cfgModel, o.shape)
	if err != nil {
		return nil, err
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		session: session,
	}, nil
}

// Session returns the application's session. This is primarily for testing
// and for embedding callers that drive their own sampler.
func (a *App) Session() *Session {
	return a.session
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
