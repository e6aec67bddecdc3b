// Package bootstrap runs the ordered setup phases that turn an empty
// container into a configured application container.
//
// Phases run in a fixed order:
//
//  1. configure-framework   FrameworkConfigurator.Configure(settingsModule)
//  2. configure-logging     LoggingConfigurator.Configure()
//  3. instrument-libraries  Instrumentor.InstrumentLibraries()
//  4. register-services     ServiceRegistry.Register(c)
//
// Phase 1 must complete before any application factory is registered, so
// application code reached from phase 4 can rely on framework settings.
package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
)

// Phase names a bootstrap step.
type Phase string

const (
	PhaseConfigureFramework  Phase = "configure-framework"
	PhaseConfigureLogging    Phase = "configure-logging"
	PhaseInstrumentLibraries Phase = "instrument-libraries"
	PhaseRegisterServices    Phase = "register-services"
)

// Options toggles individual phases. A disabled phase is skipped without
// affecting later ones.
type Options struct {
	ConfigureFramework  bool
	ConfigureLogging    bool
	InstrumentLibraries bool
	RegisterServices    bool
	// SettingsModule is passed to the framework configurator; empty means
	// config.DefaultSettingsModule.
	SettingsModule string
}

// DefaultOptions enables every phase.
func DefaultOptions() Options {
	return Options{
		ConfigureFramework:  true,
		ConfigureLogging:    true,
		InstrumentLibraries: true,
		RegisterServices:    true,
		SettingsModule:      config.DefaultSettingsModule,
	}
}

// Sequencer runs the bootstrap phases against one container, once.
type Sequencer struct {
	collab Collaborators
	ran    atomic.Bool
}

// NewSequencer returns a Sequencer using collab for collaborators the
// container does not already bind.
func NewSequencer(collab Collaborators) *Sequencer {
	return &Sequencer{collab: collab}
}

type phase struct {
	name    Phase
	enabled bool
	run     func(c *container.Container) error
}

// Run executes the enabled phases in order. The first failure aborts the
// rest and is returned as a *PhaseError. ctx is checked between phases;
// phases themselves are not cancellable. A second call returns
// ErrAlreadyBootstrapped.
func (s *Sequencer) Run(ctx context.Context, c *container.Container, opts Options) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyBootstrapped
	}

	module := opts.SettingsModule
	if module == "" {
		module = config.DefaultSettingsModule
	}

	phases := []phase{
		{PhaseConfigureFramework, opts.ConfigureFramework, func(c *container.Container) error {
			return invoke(c, FrameworkConfiguratorKey, s.collab.FrameworkConfigurator, func(fc FrameworkConfigurator) error {
				return fc.Configure(module)
			})
		}},
		{PhaseConfigureLogging, opts.ConfigureLogging, func(c *container.Container) error {
			return invoke(c, LoggingConfiguratorKey, s.collab.LoggingConfigurator, LoggingConfigurator.Configure)
		}},
		{PhaseInstrumentLibraries, opts.InstrumentLibraries, func(c *container.Container) error {
			return invoke(c, InstrumentorKey, s.collab.Instrumentor, Instrumentor.InstrumentLibraries)
		}},
		{PhaseRegisterServices, opts.RegisterServices, func(c *container.Container) error {
			return invoke(c, ServiceRegistryKey, s.collab.ServiceRegistry, func(r ServiceRegistry) error {
				return r.Register(c)
			})
		}},
	}

	for _, p := range phases {
		// zap.L() is read per phase: configure-logging replaces it.
		log := zap.L().With(zap.String("phase", string(p.name)))
		if !p.enabled {
			log.Debug("bootstrap phase skipped")
			continue
		}
		if err := ctx.Err(); err != nil {
			return &PhaseError{Phase: p.name, Err: err}
		}

		start := time.Now()
		if err := p.run(c); err != nil {
			log.Error("bootstrap phase failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			return &PhaseError{Phase: p.name, Err: err}
		}
		zap.L().Info("bootstrap phase complete",
			zap.String("phase", string(p.name)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// invoke binds the default factory for key if nothing is bound yet, then
// resolves the collaborator and calls it.
func invoke[T any](c *container.Container, key container.Key, def container.Factory, call func(T) error) error {
	if def != nil && !c.Bound(key) {
		if err := c.Register(key, def, container.Singleton); err != nil {
			return err
		}
	}
	svc, err := container.Resolve[T](c, key)
	if err != nil {
		return err
	}
	return call(svc)
}
