package app

import (
	"github.com/km-arc/go-bootstrap/framework/bootstrap"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/metrics"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// ── coreProvider ──────────────────────────────────────────────────────────────

// coreProvider binds the process configuration and the framework
// configurator.
//
// Bound keys:
//   - ConfigKey     → *config.Config
//   - FrameworkKey  → *routing.Configurator
type coreProvider struct {
	container.BaseProvider
	cfg *config.Config
}

func (p *coreProvider) Register(app *container.Container) error {
	if err := app.Register(ConfigKey, func(*container.Container) (any, error) { return p.cfg, nil }, container.Singleton); err != nil {
		return err
	}
	// Shares the configurator bootstrap used; without the configure phase
	// it is a fresh, unconfigured one.
	return app.Register(FrameworkKey, func(c *container.Container) (any, error) {
		if !c.Bound(bootstrap.FrameworkConfiguratorKey) {
			return routing.NewConfigurator(), nil
		}
		return container.Resolve[*routing.Configurator](c, bootstrap.FrameworkConfiguratorKey)
	}, container.Singleton)
}

// ── metricsProvider ───────────────────────────────────────────────────────────

// metricsProvider counts every resolution and exposes the counts over HTTP.
//
// Bound keys:
//   - MetricsKey  → *metrics.Collector
//   - "metrics.routes" (tagged RoutesTag)
type metricsProvider struct {
	container.BaseProvider
}

var metricsRoutesKey = container.Name("metrics.routes")

func (p *metricsProvider) Register(app *container.Container) error {
	if err := app.Register(MetricsKey, func(*container.Container) (any, error) {
		return metrics.NewCollector(), nil
	}, container.Singleton); err != nil {
		return err
	}
	if err := app.Register(metricsRoutesKey, func(c *container.Container) (any, error) {
		m, err := container.Resolve[*metrics.Collector](c, MetricsKey)
		if err != nil {
			return nil, err
		}
		return &metricsRoutes{collector: m}, nil
	}, container.Singleton); err != nil {
		return err
	}
	app.Tag(RoutesTag, metricsRoutesKey)
	return nil
}

func (p *metricsProvider) Boot(app *container.Container) error {
	m, err := container.Resolve[*metrics.Collector](app, MetricsKey)
	if err != nil {
		return err
	}
	app.AfterResolving(m.Observe)
	return nil
}

type metricsRoutes struct {
	collector *metrics.Collector
}

func (m *metricsRoutes) RegisterRoutes(r *routing.Router, s *config.Settings) {
	if s.Metrics.Enabled {
		r.Handle(s.Metrics.Path, m.collector.Handler())
	}
}

// ── httpProvider ──────────────────────────────────────────────────────────────

// httpProvider is deferred: the HTTP surface is registered on first
// resolution of one of its keys.
//
// Bound keys:
//   - ServerFactoryKey      → *ServerFactory
//   - "HTTPServerFactory"   → *ServerFactory (same instance)
type httpProvider struct {
	container.BaseProvider
}

func (p *httpProvider) IsDeferred() bool { return true }

func (p *httpProvider) Provides() []container.Key {
	return []container.Key{ServerFactoryKey, HTTPServerFactoryKey}
}

func (p *httpProvider) Register(app *container.Container) error {
	if err := app.Register(ServerFactoryKey, func(c *container.Container) (any, error) {
		framework, err := container.Resolve[*routing.Configurator](c, FrameworkKey)
		if err != nil {
			return nil, err
		}
		cfg, err := container.Resolve[*config.Config](c, ConfigKey)
		if err != nil {
			return nil, err
		}
		return NewServerFactory(framework, c.Root(), cfg), nil
	}, container.Singleton); err != nil {
		return err
	}
	// Name-keyed so callers need not import the server's type.
	return app.Register(HTTPServerFactoryKey, func(c *container.Container) (any, error) {
		return c.Resolve(ServerFactoryKey)
	}, container.Singleton)
}
