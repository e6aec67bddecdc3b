// Package app is the bootstrap entry point: it wires the production
// collaborators into a sequencer and hands back a configured container.
package app

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/bootstrap"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/logging"
	"github.com/km-arc/go-bootstrap/framework/routing"
	"github.com/km-arc/go-bootstrap/framework/tracing"
)

// ContainerFactory builds application containers.
//
//	f := app.NewContainerFactory(cfg, registry)
//	c, err := f.Build(ctx, app.OptionsFromConfig(cfg))
type ContainerFactory struct {
	cfg           *config.Config
	registry      bootstrap.ServiceRegistry
	settingsRoots []string
	containerOpts []container.Option
	tracingOpts   []sdktrace.TracerProviderOption
}

// Option configures a ContainerFactory.
type Option func(*ContainerFactory)

// WithSettingsRoots sets where settings modules are looked up.
func WithSettingsRoots(roots ...string) Option {
	return func(f *ContainerFactory) { f.settingsRoots = roots }
}

// WithContainerOptions passes opts to container.New.
func WithContainerOptions(opts ...container.Option) Option {
	return func(f *ContainerFactory) { f.containerOpts = append(f.containerOpts, opts...) }
}

// WithTracerProviderOptions passes opts to the tracing instrumentor, e.g.
// sdktrace.WithBatcher(exporter).
func WithTracerProviderOptions(opts ...sdktrace.TracerProviderOption) Option {
	return func(f *ContainerFactory) { f.tracingOpts = append(f.tracingOpts, opts...) }
}

// NewContainerFactory returns a factory whose register-services phase runs
// registry. A nil registry leaves that phase to a pre-bound collaborator.
func NewContainerFactory(cfg *config.Config, registry bootstrap.ServiceRegistry, opts ...Option) *ContainerFactory {
	f := &ContainerFactory{cfg: cfg, registry: registry}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OptionsFromConfig maps the env-level bootstrap flags onto sequencer
// options. Service registration is always enabled.
func OptionsFromConfig(cfg *config.Config) bootstrap.Options {
	return bootstrap.Options{
		ConfigureFramework:  cfg.Bootstrap.ConfigureFramework,
		ConfigureLogging:    cfg.Bootstrap.ConfigureLogging,
		InstrumentLibraries: cfg.Bootstrap.InstrumentLibraries,
		RegisterServices:    true,
		SettingsModule:      cfg.App.SettingsModule,
	}
}

// Collaborators returns the production collaborator factories.
func (f *ContainerFactory) Collaborators() bootstrap.Collaborators {
	collab := bootstrap.Collaborators{
		FrameworkConfigurator: func(*container.Container) (any, error) {
			return routing.NewConfigurator(f.settingsRoots...), nil
		},
		LoggingConfigurator: func(*container.Container) (any, error) {
			return logging.NewConfigurator(f.cfg), nil
		},
		Instrumentor: func(*container.Container) (any, error) {
			return tracing.NewInstrumentor(f.cfg, f.tracingOpts...), nil
		},
	}
	if f.registry != nil {
		registry := f.registry
		collab.ServiceRegistry = func(*container.Container) (any, error) { return registry, nil }
	}
	return collab
}

// Build creates a container and bootstraps it. On failure the partial
// container is closed, which undoes logging and tracing setup, and only
// the error is returned.
func (f *ContainerFactory) Build(ctx context.Context, opts bootstrap.Options) (*container.Container, error) {
	copts := append([]container.Option{container.WithLogger(zap.L())}, f.containerOpts...)
	c := container.New(copts...)

	if err := bootstrap.NewSequencer(f.Collaborators()).Run(ctx, c, opts); err != nil {
		if cerr := c.Close(context.WithoutCancel(ctx)); cerr != nil {
			zap.L().Warn("closing partially bootstrapped container", zap.Error(cerr))
		}
		return nil, err
	}
	return c, nil
}
