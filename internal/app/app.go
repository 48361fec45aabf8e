package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/config"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/hcl"
	"github.com/specialistvlad/svcgrid/internal/provider"
	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/internal/yamlconf"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loaders  []config.Loader

	graph     *graph.Graph
	provider  *provider.Standard
	bulletins *bulletin.Repository
	sink      bulletin.Sink
	forwarder *bulletin.Forwarder
	metrics   *metrics

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// An inconsistent registry is a programmer error and panics.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.Register(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		loaders:   []config.Loader{hcl.NewLoader(), yamlconf.NewLoader()},
		graph:     graph.New(),
		bulletins: bulletin.NewRepository(bulletin.DefaultCapacity),
	}
	a.metrics = newMetrics(a.graph, a.droppedBulletins)
	a.sink = bulletin.Multi(a.bulletins, a.metrics)
	a.provider = provider.New(reg, a.graph, a.sink, provider.Options{EnableTimeout: cfg.EnableTimeout})
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Graph returns the graph holding every loaded service.
func (a *App) Graph() *graph.Graph {
	return a.graph
}

// Bulletins returns the in-memory bulletin repository.
func (a *App) Bulletins() *bulletin.Repository {
	return a.bulletins
}

// droppedBulletins is the forwarder's drop count, or 0 without a forwarder.
func (a *App) droppedBulletins() float64 {
	if a.forwarder == nil {
		return 0
	}
	return float64(a.forwarder.Dropped())
}
