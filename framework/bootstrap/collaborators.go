package bootstrap

import "github.com/km-arc/go-bootstrap/framework/container"

// FrameworkConfigurator loads framework settings. It must run before any
// application service is registered.
type FrameworkConfigurator interface {
	Configure(settingsModule string) error
}

// LoggingConfigurator installs the process logger.
type LoggingConfigurator interface {
	Configure() error
}

// Instrumentor installs tracing and instruments shared libraries.
type Instrumentor interface {
	InstrumentLibraries() error
}

// ServiceRegistry registers the application's factories into c.
type ServiceRegistry interface {
	Register(c *container.Container) error
}

// Keys the sequencer resolves its collaborators under.
var (
	FrameworkConfiguratorKey = container.KeyFor[FrameworkConfigurator]()
	LoggingConfiguratorKey   = container.KeyFor[LoggingConfigurator]()
	InstrumentorKey          = container.KeyFor[Instrumentor]()
	ServiceRegistryKey       = container.KeyFor[ServiceRegistry]()
)

// Collaborators holds default factories for the phase collaborators. Each
// is bound as a singleton right before its phase runs, unless the key is
// already bound. A nil factory means the caller binds the key itself.
type Collaborators struct {
	FrameworkConfigurator container.Factory
	LoggingConfigurator   container.Factory
	Instrumentor          container.Factory
	ServiceRegistry       container.Factory
}
