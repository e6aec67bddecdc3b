package container

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"go.uber.org/zap"
)

// ResolveEvent describes one call to Resolve. Observers registered with
// AfterResolving receive it whether the call succeeded or not.
type ResolveEvent struct {
	Key      Key
	Lifetime Lifetime
	// Cached is true when the instance came from a singleton or scope cache.
	Cached   bool
	Duration time.Duration
	Err      error
	// ScopeID is empty for resolutions made from the root container.
	ScopeID string
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the instance bound to key, building it if its lifetime
// requires. Dependencies are wired lazily: a factory resolves what it needs
// through the handle it is given, depth first.
func (c *Container) Resolve(key Key) (any, error) {
	start := time.Now()
	inst, lifetime, cached, err := c.resolve(key)
	c.s.notify(ResolveEvent{
		Key:      key,
		Lifetime: lifetime,
		Cached:   cached,
		Duration: time.Since(start),
		Err:      err,
		ScopeID:  c.ScopeID(),
	})
	return inst, err
}

// Make resolves key and panics if that fails.
func (c *Container) Make(key Key) any {
	inst, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return inst
}

func (c *Container) resolve(key Key) (inst any, lifetime Lifetime, cached bool, err error) {
	if key.IsZero() {
		return nil, 0, false, ErrInvalidKey
	}
	if c.isClosed() {
		return nil, 0, false, ErrClosed
	}

	key, b, err := c.lookup(key)
	if err != nil {
		return nil, 0, false, err
	}
	if c.chain == nil {
		c = &Container{s: c.s, scope: c.scope, path: c.path, chain: &buildChain{}}
	}

	switch b.lifetime {
	case Singleton:
		root := &Container{s: c.s, path: c.path, chain: c.chain}
		inst, cached, err = root.cached(key, b, c.s.singletons)
	case Scoped:
		if c.scope == nil {
			return nil, b.lifetime, false, fmt.Errorf("%w: [%s]", ErrScopedOnRoot, key)
		}
		inst, cached, err = c.cached(key, b, c.scope.cache)
	default:
		if err = c.checkCycle(key); err == nil {
			inst, err = c.construct(key, b)
		}
	}
	return inst, b.lifetime, cached, err
}

// lookup finds the binding for key, running its deferred loader first when
// the binding is a placeholder.
func (c *Container) lookup(key Key) (Key, *binding, error) {
	canon, b, ok := c.s.reg.lookup(key)
	if !ok {
		return canon, nil, &UnregisteredServiceError{Key: key}
	}
	if b.deferred == nil {
		return canon, b, nil
	}

	d := b.deferred
	d.once.Do(func() { d.err = d.load(c) })
	if d.err != nil {
		return canon, nil, &ResolveError{Key: canon, Err: fmt.Errorf("deferred registration: %w", d.err)}
	}

	canon, b, ok = c.s.reg.lookup(canon)
	if !ok || b.deferred != nil {
		return canon, nil, fmt.Errorf("deferred registration left [%s] unbound: %w",
			canon, &UnregisteredServiceError{Key: canon})
	}
	return canon, b, nil
}

// cached returns the instance stored in ic for key, building it at most once.
// Cycles are checked before the construction lock is taken, both on this
// chain's path and across chains blocked on each other's locks, so a cycle
// fails instead of deadlocking.
func (c *Container) cached(key Key, b *binding, ic *instanceCache) (any, bool, error) {
	if inst, ok := ic.get(key); ok {
		return inst, true, nil
	}
	if err := c.checkCycle(key); err != nil {
		return nil, false, err
	}

	m := ic.lock(key)
	if cycle := c.s.building.acquire(c.chain, m, key); cycle != nil {
		return nil, false, &CircularDependencyError{Path: cycle}
	}
	defer c.s.building.release(m)

	if inst, ok := ic.get(key); ok {
		return inst, true, nil
	}
	if ic.isClosed() {
		return nil, false, ErrClosed
	}

	inst, err := c.construct(key, b)
	if err != nil {
		return nil, false, err
	}
	if !ic.store(key, inst) {
		// Close ran while the factory did; the cleanup list is already gone.
		if fn := closerFor(inst); fn != nil {
			if cerr := fn(context.Background()); cerr != nil {
				c.s.logger.Error("container: cleanup failed", zap.String("resource", key.String()), zap.Error(cerr))
			}
		}
		return nil, false, ErrClosed
	}
	return inst, false, nil
}

// construct runs the factory and the extenders for key with a handle whose
// build path ends in key.
func (c *Container) construct(key Key, b *binding) (any, error) {
	child := c.enter(key)

	inst, err := b.factory(child)
	if err != nil {
		return nil, &ResolveError{Key: key, Err: err}
	}
	for _, ext := range c.s.reg.extendersFor(key) {
		if inst, err = ext(inst, child); err != nil {
			return nil, &ResolveError{Key: key, Err: fmt.Errorf("extender: %w", err)}
		}
	}
	return inst, nil
}

func (c *Container) checkCycle(key Key) error {
	if i := slices.Index(c.path, key); i >= 0 {
		cycle := append(slices.Clone(c.path[i:]), key)
		return &CircularDependencyError{Path: cycle}
	}
	return nil
}

// enter returns a handle sharing c's state and scope, with key pushed onto
// the build path.
func (c *Container) enter(key Key) *Container {
	path := make([]Key, len(c.path), len(c.path)+1)
	copy(path, c.path)
	return &Container{s: c.s, scope: c.scope, path: append(path, key), chain: c.chain}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves key and type-asserts the result.
//
//	db, err := container.Resolve[*sql.DB](c, container.Name("db"))
func Resolve[T any](c *Container, key Key) (T, error) {
	var zero T
	inst, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Want: reflect.TypeFor[T]().String(), Got: fmt.Sprintf("%T", inst)}
	}
	return typed, nil
}

// ResolveType resolves the type key of T.
func ResolveType[T any](c *Container) (T, error) {
	return Resolve[T](c, KeyFor[T]())
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, key Key) T {
	v, err := Resolve[T](c, key)
	if err != nil {
		panic(err)
	}
	return v
}
