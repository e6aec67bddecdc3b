package container

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container facade: it owns the registry and the
// singleton cache, and exposes registration and resolution.
//
// A *Container is a handle. The value returned by New is the root handle;
// NewScope returns a scope handle; factories receive a derived handle that
// tracks the build path for cycle detection. All handles made from the same
// New call share one registry and one singleton cache.
//
// The container is safe for concurrent use. Construct it explicitly at
// startup and pass it along; there is no package-level instance.
type Container struct {
	s     *state
	scope *scope
	// keys currently under construction on this resolution chain
	path  []Key
	chain *buildChain
}

// state is shared by every handle of one container.
type state struct {
	reg        *registry
	singletons *instanceCache
	building   *inflight
	logger     *zap.Logger
	strict     bool

	obsMu     sync.RWMutex
	observers []func(ResolveEvent)
}

// scope is the per-scope instance cache.
type scope struct {
	id    string
	cache *instanceCache
}

// Option configures a Container.
type Option func(*state)

// WithLogger sets the logger used for registration warnings and teardown.
func WithLogger(logger *zap.Logger) Option {
	return func(s *state) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrictRegistration makes re-registering an existing key an error
// (ErrDuplicateRegistration) instead of a logged replacement.
func WithStrictRegistration() Option {
	return func(s *state) { s.strict = true }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	s := &state{
		reg:        newRegistry(),
		singletons: newInstanceCache(),
		building:   newInflight(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Container{s: s}
}

// ── Scopes ────────────────────────────────────────────────────────────────────

// NewScope returns a handle with its own cache for Scoped bindings.
// Singletons are still shared with the root. Close the scope handle to run
// the teardown of its scoped instances.
func (c *Container) NewScope() *Container {
	return &Container{
		s:     c.s,
		scope: &scope{id: uuid.NewString(), cache: newInstanceCache()},
	}
}

// ScopeID returns the scope identifier, or "" for the root container.
func (c *Container) ScopeID() string {
	if c.scope == nil {
		return ""
	}
	return c.scope.id
}

// Root returns the root handle of c.
func (c *Container) Root() *Container {
	return &Container{s: c.s}
}

type ctxKey struct{}

// WithScope returns a copy of ctx carrying c.
func WithScope(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the container handle stored by WithScope.
func FromContext(ctx context.Context) (*Container, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Container)
	return c, ok
}

// ── Observers ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every Resolve call.
// Callbacks run synchronously on the resolving goroutine.
func (c *Container) AfterResolving(cb func(ResolveEvent)) {
	if cb == nil {
		return
	}
	c.s.obsMu.Lock()
	defer c.s.obsMu.Unlock()
	c.s.observers = append(c.s.observers, cb)
}

func (s *state) notify(ev ResolveEvent) {
	s.obsMu.RLock()
	cbs := slices.Clone(s.observers)
	s.obsMu.RUnlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// OnClose registers a cleanup run by Close. Cleanups run in reverse
// registration order. On a scope handle the cleanup belongs to the scope.
func (c *Container) OnClose(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	c.cache().onClose(name, fn)
}

// Close tears down the handle's lifetime owner: the root container (singleton
// cache) or, for a scope handle, the scope. Cached instances implementing
// io.Closer or Shutdown(context.Context) error are closed, last built first.
// Every cleanup runs even when an earlier one fails; a cancelled ctx stops
// the rest. Closing the root does not close scopes that are still open.
func (c *Container) Close(ctx context.Context) error {
	err := c.cache().close(ctx, c.s.logger)
	if err != nil {
		c.s.logger.Warn("container: close finished with errors",
			zap.String("scope", c.ScopeID()),
			zap.Int("errors", len(multierr.Errors(err))),
		)
	}
	return err
}

func (c *Container) cache() *instanceCache {
	if c.scope != nil {
		return c.scope.cache
	}
	return c.s.singletons
}

func (c *Container) isClosed() bool {
	if c.s.singletons.isClosed() {
		return true
	}
	return c.scope != nil && c.scope.cache.isClosed()
}
