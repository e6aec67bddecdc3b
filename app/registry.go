// Package app registers the application's services into a bootstrapped
// container and builds its HTTP server.
package app

import (
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/metrics"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

var (
	// HTTPServerFactoryKey is the name-keyed entry point of the HTTP
	// surface. It resolves to *ServerFactory.
	HTTPServerFactoryKey = container.Name("HTTPServerFactory")

	ServerFactoryKey = container.KeyFor[*ServerFactory]()
	ConfigKey        = container.KeyFor[*config.Config]()
	FrameworkKey     = container.KeyFor[*routing.Configurator]()
	MetricsKey       = container.KeyFor[*metrics.Collector]()
)

// Registry registers the application's providers. It is the
// register-services collaborator of bootstrap.
type Registry struct {
	providers *container.ProviderRegistry
}

// NewRegistry returns a Registry with the core, metrics and HTTP providers
// followed by extra.
func NewRegistry(cfg *config.Config, extra ...container.ServiceProvider) *Registry {
	reg := container.NewProviderRegistry(
		&coreProvider{cfg: cfg},
		&metricsProvider{},
		&httpProvider{},
	)
	for _, p := range extra {
		reg.Add(p)
	}
	return &Registry{providers: reg}
}

// Register registers and boots every provider into c.
func (r *Registry) Register(c *container.Container) error {
	return r.providers.Register(c)
}
