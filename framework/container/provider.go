package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one part of an application.
//
// Register binds services into the container and must not resolve anything.
// Boot runs after every eager provider has been registered, so it is safe to
// resolve other bindings there.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    return app.Register(container.KeyFor[*mail.Mailer](), func(c *container.Container) (any, error) {
//	        cfg, err := container.ResolveType[*config.Config](c)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(cfg.Mail), nil
//	    }, container.Singleton)
//	}
type ServiceProvider interface {
	Register(app *Container) error
	Boot(app *Container) error

	// Provides lists the keys a deferred provider registers.
	Provides() []Key

	// IsDeferred reports whether Register should wait until one of the
	// Provides() keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider gives no-op Boot, Provides and IsDeferred. Embed it and
// implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Key         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry is a registry of factories: it collects providers and,
// when handed a container, registers all of them and boots the eager ones.
type ProviderRegistry struct {
	mu        sync.Mutex
	providers []ServiceProvider
	seen      map[ServiceProvider]bool
	eager     []ServiceProvider
	booted    bool
}

// NewProviderRegistry creates a registry holding providers, in order.
func NewProviderRegistry(providers ...ServiceProvider) *ProviderRegistry {
	r := &ProviderRegistry{seen: make(map[ServiceProvider]bool)}
	for _, p := range providers {
		r.Add(p)
	}
	return r
}

// Add appends a provider. Adding the same provider twice is a no-op.
func (r *ProviderRegistry) Add(p ServiceProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil || r.seen[p] {
		return
	}
	r.seen[p] = true
	r.providers = append(r.providers, p)
}

// Register registers every provider into app, then boots the eager ones.
// Deferred providers are bound as placeholders and registered (and booted)
// on the first resolution of a key they provide. Register can run only once.
func (r *ProviderRegistry) Register(app *Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booted {
		return fmt.Errorf("container: provider registry already registered")
	}

	for _, p := range r.providers {
		if p.IsDeferred() {
			if err := app.RegisterDeferred(p.Provides(), deferredLoader(p)); err != nil {
				return fmt.Errorf("container: deferring %T: %w", p, err)
			}
			continue
		}
		if err := p.Register(app); err != nil {
			return fmt.Errorf("container: registering %T: %w", p, err)
		}
		r.eager = append(r.eager, p)
	}

	r.booted = true
	for _, p := range r.eager {
		if err := p.Boot(app); err != nil {
			return fmt.Errorf("container: booting %T: %w", p, err)
		}
	}
	return nil
}

func deferredLoader(p ServiceProvider) func(c *Container) error {
	return func(c *Container) error {
		if err := p.Register(c); err != nil {
			return err
		}
		return p.Boot(c)
	}
}

// Booted reports whether Register has completed its boot pass.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers that were registered.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
