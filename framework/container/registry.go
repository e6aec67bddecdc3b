package container

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a value from the container. Dependencies must be resolved
// through c (not a captured outer handle) so that cycles can be detected.
type Factory func(c *Container) (any, error)

// Extender decorates an instance right after its factory returns and before
// it is cached.
type Extender func(instance any, c *Container) (any, error)

// binding is the registry entry for a key.
type binding struct {
	factory  Factory
	lifetime Lifetime
	deferred *deferredLoad
}

// deferredLoad registers the real bindings for a group of keys on first use.
type deferredLoad struct {
	once sync.Once
	load func(c *Container) error
	err  error
}

// ── Registry ──────────────────────────────────────────────────────────────────

// registry owns every binding, alias, tag and extender of a container.
type registry struct {
	mu        sync.RWMutex
	bindings  map[Key]*binding
	aliases   map[Key]Key
	tags      map[string][]Key
	extenders map[Key][]Extender
}

func newRegistry() *registry {
	return &registry{
		bindings:  make(map[Key]*binding),
		aliases:   make(map[Key]Key),
		tags:      make(map[string][]Key),
		extenders: make(map[Key][]Extender),
	}
}

// canonical resolves an alias to its target key (must hold mu).
func (r *registry) canonical(k Key) Key {
	if target, ok := r.aliases[k]; ok {
		return target
	}
	return k
}

func (r *registry) lookup(k Key) (Key, *binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k = r.canonical(k)
	b, ok := r.bindings[k]
	return k, b, ok
}

func (r *registry) extendersFor(k Key) []Extender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.extenders[k])
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores the binding for key, replacing any previous one.
//
// Replacement is last-write-wins and logged as a warning. With
// WithStrictRegistration it fails with ErrDuplicateRegistration instead.
// Replacing a singleton that has already been resolved does not evict the
// cached instance: later resolutions keep returning it.
func (c *Container) Register(key Key, factory Factory, lifetime Lifetime) error {
	if key.IsZero() {
		return ErrInvalidKey
	}
	if factory == nil {
		return fmt.Errorf("%w: [%s]", ErrNilFactory, key)
	}
	if !lifetime.Valid() {
		return fmt.Errorf("%w: %s for [%s]", ErrInvalidLifetime, lifetime, key)
	}
	return c.bind(key, &binding{factory: factory, lifetime: lifetime})
}

// RegisterDeferred binds keys to a loader that runs once, on the first
// resolution of any of them. The loader is expected to Register the real
// bindings; replacing a deferred placeholder is never reported as a duplicate.
func (c *Container) RegisterDeferred(keys []Key, load func(c *Container) error) error {
	if load == nil {
		return ErrNilFactory
	}
	d := &deferredLoad{load: load}
	for _, k := range keys {
		if k.IsZero() {
			return ErrInvalidKey
		}
		if err := c.bind(k, &binding{lifetime: Transient, deferred: d}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) bind(key Key, b *binding) error {
	if c.isClosed() {
		return ErrClosed
	}
	reg := c.s.reg

	reg.mu.Lock()
	key = reg.canonical(key)
	prev, exists := reg.bindings[key]
	replacing := exists && prev.deferred == nil
	if replacing && c.s.strict {
		reg.mu.Unlock()
		return fmt.Errorf("%w: [%s]", ErrDuplicateRegistration, key)
	}
	reg.bindings[key] = b
	reg.mu.Unlock()

	if replacing {
		_, cached := c.s.singletons.get(key)
		c.s.logger.Warn("container: replacing existing binding",
			zap.Stringer("key", key),
			zap.Stringer("previous_lifetime", prev.lifetime),
			zap.Stringer("lifetime", b.lifetime),
			zap.Bool("cached_instance_kept", cached),
		)
	}
	return nil
}

// Bind registers a transient factory. It panics on an invalid registration.
//
//	c.Bind(container.KeyFor[*Mailer](), func(c *container.Container) (any, error) {
//	    return mail.NewSMTP(), nil
//	})
func (c *Container) Bind(key Key, factory Factory) {
	must(c.Register(key, factory, Transient))
}

// Singleton registers a factory whose result is cached after first
// resolution. It panics on an invalid registration.
func (c *Container) Singleton(key Key, factory Factory) {
	must(c.Register(key, factory, Singleton))
}

// Scoped registers a factory whose result is cached per scope. It panics on an
// invalid registration.
func (c *Container) Scoped(key Key, factory Factory) {
	must(c.Register(key, factory, Scoped))
}

// Instance registers a pre-built value as a singleton. Unlike Register, it
// replaces any cached instance for key.
func (c *Container) Instance(key Key, instance any) {
	must(c.Register(key, func(*Container) (any, error) { return instance, nil }, Singleton))
	c.s.reg.mu.RLock()
	key = c.s.reg.canonical(key)
	c.s.reg.mu.RUnlock()
	c.s.singletons.set(key, instance)
}

// Alias makes alias resolve to target.
func (c *Container) Alias(target, alias Key) error {
	if target.IsZero() || alias.IsZero() {
		return ErrInvalidKey
	}
	if target == alias {
		return fmt.Errorf("%w: [%s] is aliased to itself", ErrInvalidKey, target)
	}
	reg := c.s.reg
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.aliases[alias] = reg.canonical(target)
	return nil
}

// Extend decorates every instance of key built from now on. Instances that
// are already cached are left untouched.
//
//	c.Extend(loggerKey, func(instance any, c *container.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
func (c *Container) Extend(key Key, fn Extender) error {
	if fn == nil {
		return ErrNilFactory
	}
	reg := c.s.reg
	reg.mu.Lock()
	defer reg.mu.Unlock()
	key = reg.canonical(key)
	reg.extenders[key] = append(reg.extenders[key], fn)
	return nil
}

// Tag groups keys under a name so they can be resolved together.
func (c *Container) Tag(tag string, keys ...Key) {
	reg := c.s.reg
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.tags[tag] = append(reg.tags[tag], keys...)
}

// Tagged resolves every key registered under tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.s.reg.mu.RLock()
	keys := slices.Clone(c.s.reg.tags[tag])
	c.s.reg.mu.RUnlock()

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		inst, err := c.Resolve(k)
		if err != nil {
			return nil, fmt.Errorf("container: resolving tag %q: %w", tag, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Bound reports whether key (or its alias target) has a binding.
func (c *Container) Bound(key Key) bool {
	_, _, ok := c.s.reg.lookup(key)
	return ok
}

// Resolved reports whether a singleton instance is cached for key.
func (c *Container) Resolved(key Key) bool {
	c.s.reg.mu.RLock()
	key = c.s.reg.canonical(key)
	c.s.reg.mu.RUnlock()
	_, ok := c.s.singletons.get(key)
	return ok
}

// Forget removes the binding and any cached singleton for key. Cleanups
// already registered for the instance still run on Close.
func (c *Container) Forget(key Key) {
	reg := c.s.reg
	reg.mu.Lock()
	key = reg.canonical(key)
	delete(reg.bindings, key)
	delete(reg.extenders, key)
	reg.mu.Unlock()
	c.s.singletons.forget(key)
}

// Keys returns every bound key, sorted by its string form.
func (c *Container) Keys() []Key {
	c.s.reg.mu.RLock()
	out := make([]Key, 0, len(c.s.reg.bindings))
	for k := range c.s.reg.bindings {
		out = append(out, k)
	}
	c.s.reg.mu.RUnlock()

	slices.SortFunc(out, func(a, b Key) int { return strings.Compare(a.String(), b.String()) })
	return out
}

// Lifetime returns the lifetime bound to key.
func (c *Container) Lifetime(key Key) (Lifetime, bool) {
	_, b, ok := c.s.reg.lookup(key)
	if !ok {
		return 0, false
	}
	return b.lifetime, true
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
