// Package routing wraps chi for the HTTP surface and implements the
// framework configuration step of bootstrap.
package routing

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/config"
)

var (
	ErrNotConfigured     = errors.New("routing: framework not configured")
	ErrAlreadyConfigured = errors.New("routing: framework already configured")
)

// Configurator loads a settings module and builds the application router
// from it. It is configured at most once per process.
type Configurator struct {
	roots []string

	mu       sync.RWMutex
	settings *config.Settings
	router   *Router
}

// NewConfigurator returns a Configurator that looks for settings modules
// under searchRoots (default: the working directory).
func NewConfigurator(searchRoots ...string) *Configurator {
	return &Configurator{roots: searchRoots}
}

// Configure loads module and builds the router. Repeating the call with the
// same module is a no-op; a different module fails with ErrAlreadyConfigured.
func (c *Configurator) Configure(module string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settings != nil {
		if c.settings.Module == module {
			return nil
		}
		return fmt.Errorf("%w: with %q, got %q", ErrAlreadyConfigured, c.settings.Module, module)
	}

	s, err := config.LoadSettings(module, c.roots...)
	if err != nil {
		return err
	}
	c.settings = s
	c.router = NewFromSettings(s)

	zap.L().Info("framework configured",
		zap.String("settings", module),
		zap.String("addr", s.HTTP.Addr),
		zap.Bool("tracing", s.Middleware.Tracing),
	)
	return nil
}

// Configured reports whether Configure has succeeded.
func (c *Configurator) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings != nil
}

// Settings returns the loaded settings.
func (c *Configurator) Settings() (*config.Settings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.settings == nil {
		return nil, ErrNotConfigured
	}
	return c.settings, nil
}

// Router returns the router built from the settings.
func (c *Configurator) Router() (*Router, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.router == nil {
		return nil, ErrNotConfigured
	}
	return c.router, nil
}
