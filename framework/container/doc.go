// Package container provides a small inversion-of-control container and a
// ServiceProvider registry.
//
// # Overview
//
// Bindings are keyed by type or by name, built by explicit factory functions
// (Go has no constructor reflection worth relying on) and cached according to
// their Lifetime: Transient, Singleton or Scoped.
//
// # Container Lifecycle
//
//  1. Create:   c := container.New(container.WithLogger(logger))
//  2. Register: providers.Register(c), or c.Register / c.Singleton directly
//  3. Resolve:  concurrently, from any goroutine
//  4. Close:    c.Close(ctx) runs teardown in reverse construction order
//
// # Keys
//
//	container.KeyFor[*Cache]()            // type key
//	container.TypeKey((*Mailer)(nil))     // interface type key
//	container.Name("HTTPServerFactory")   // name key
//
// Name keys let a binding be declared before the code that builds its value
// is needed; the factory is responsible for any lazy loading.
//
// # Bindings
//
//	// Transient: new instance every Resolve
//	c.Bind(container.KeyFor[*Foo](), func(c *container.Container) (any, error) {
//	    return &Foo{}, nil
//	})
//
//	// Singleton: built once, reused
//	c.Singleton(container.KeyFor[*Cache](), func(c *container.Container) (any, error) {
//	    cfg, err := container.ResolveType[*config.Config](c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.New(cfg), nil
//	})
//
//	// Pre-built value
//	c.Instance(container.KeyFor[*config.Config](), cfg)
//
// Re-registering a key replaces its binding and logs a warning, unless the
// container was created WithStrictRegistration. A singleton that was already
// resolved stays cached after its binding is replaced.
//
// # Resolving
//
//	raw, err := c.Resolve(container.Name("cache"))
//	cache, err := container.Resolve[*Cache](c, container.Name("cache"))
//
// Factories must resolve their dependencies through the handle they are
// given. A factory that, directly or transitively, resolves its own key fails
// with a *CircularDependencyError carrying the cycle.
//
// # Scopes
//
//	scope := c.NewScope()
//	defer scope.Close(ctx)
//	tx, err := container.ResolveType[*Tx](scope)
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(&AppServiceProvider{}, &HeavyProvider{})
//	if err := registry.Register(c); err != nil { ... }
//
// A provider whose IsDeferred returns true is registered on the first
// resolution of one of its Provides() keys.
package container
