package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bootstrap/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

var (
	eagerKey    = container.Name("eager-svc")
	deferredKey = container.Name("deferred-svc")
)

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
	bootSawBinding bool
}

func (p *eagerProvider) Register(app *container.Container) error {
	p.registerCalled = true
	return app.Register(eagerKey, func(*container.Container) (any, error) { return "eager", nil }, container.Singleton)
}

func (p *eagerProvider) Boot(app *container.Container) error {
	p.bootCalled = true
	p.bootSawBinding = app.Bound(eagerKey)
	return nil
}

// deferredProvider is lazy: it registers only when "deferred-svc" is first resolved.
type deferredProvider struct {
	container.BaseProvider
	registerCalls atomic.Int32
	bootCalls     atomic.Int32
}

func (p *deferredProvider) Register(app *container.Container) error {
	p.registerCalls.Add(1)
	return app.Register(deferredKey, func(*container.Container) (any, error) { return "deferred-value", nil }, container.Singleton)
}

func (p *deferredProvider) Boot(*container.Container) error {
	p.bootCalls.Add(1)
	return nil
}

func (p *deferredProvider) IsDeferred() bool          { return true }
func (p *deferredProvider) Provides() []container.Key { return []container.Key{deferredKey} }

// multiProvider registers multiple keys.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(app *container.Container) error {
	app.Singleton(container.Name("alpha"), func(*container.Container) (any, error) { return "α", nil })
	app.Singleton(container.Name("beta"), func(*container.Container) (any, error) { return "β", nil })
	return nil
}

type failingProvider struct {
	container.BaseProvider
}

func (p *failingProvider) Register(*container.Container) error { return errors.New("no database") }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisteredThenBooted(t *testing.T) {
	c := container.New()
	p := &eagerProvider{}
	reg := container.NewProviderRegistry(p)

	require.False(t, reg.Booted())
	require.NoError(t, reg.Register(c))

	assert.True(t, p.registerCalled)
	assert.True(t, p.bootCalled)
	assert.True(t, p.bootSawBinding, "Boot should run after Register")
	assert.True(t, reg.Booted())
	assert.Equal(t, "eager", c.Make(eagerKey))
}

func TestRegistry_RegisterTwice_Fails(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(&eagerProvider{})

	require.NoError(t, reg.Register(c))
	assert.Error(t, reg.Register(c))
}

func TestRegistry_DuplicateAdd_Ignored(t *testing.T) {
	p := &eagerProvider{}
	reg := container.NewProviderRegistry(p, p)
	reg.Add(p)

	require.NoError(t, reg.Register(container.New()))
	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_ProviderError_Propagates(t *testing.T) {
	reg := container.NewProviderRegistry(&failingProvider{})

	err := reg.Register(container.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_NotRegisteredEagerly(t *testing.T) {
	c := container.New()
	p := &deferredProvider{}
	require.NoError(t, container.NewProviderRegistry(p).Register(c))

	assert.Zero(t, p.registerCalls.Load())
	assert.True(t, c.Bound(deferredKey), "placeholder binding expected")
}

func TestRegistry_DeferredProvider_RegisteredOnFirstResolve(t *testing.T) {
	c := container.New(container.WithStrictRegistration())
	p := &deferredProvider{}
	require.NoError(t, container.NewProviderRegistry(p).Register(c))

	got, err := container.Resolve[string](c, deferredKey)
	require.NoError(t, err)
	assert.Equal(t, "deferred-value", got)
	assert.Equal(t, int32(1), p.registerCalls.Load())
	assert.Equal(t, int32(1), p.bootCalls.Load())
}

func TestRegistry_DeferredProvider_LoadsOnceUnderConcurrency(t *testing.T) {
	c := container.New()
	p := &deferredProvider{}
	require.NoError(t, container.NewProviderRegistry(p).Register(c))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolve(deferredKey)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.registerCalls.Load())
}

func TestRegisterDeferred_LoaderThatForgetsKey(t *testing.T) {
	c := container.New()
	require.NoError(t, c.RegisterDeferred([]container.Key{container.Name("ghost")}, func(*container.Container) error {
		return nil
	}))

	_, err := c.Resolve(container.Name("ghost"))
	assert.ErrorIs(t, err, container.ErrUnregisteredService)
}

func TestRegisterDeferred_LoaderError(t *testing.T) {
	c := container.New()
	boom := errors.New("boom")
	require.NoError(t, c.RegisterDeferred([]container.Key{container.Name("x")}, func(*container.Container) error {
		return boom
	}))

	_, err := c.Resolve(container.Name("x"))
	assert.ErrorIs(t, err, boom)
}

// ── Multiple providers ────────────────────────────────────────────────────────

func TestRegistry_MultipleProviders_AllServicesResolvable(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(&multiProvider{}, &eagerProvider{}, &deferredProvider{})
	require.NoError(t, reg.Register(c))

	assert.Equal(t, "α", c.Make(container.Name("alpha")))
	assert.Equal(t, "β", c.Make(container.Name("beta")))
	assert.Equal(t, "eager", c.Make(eagerKey))
	assert.Len(t, reg.Providers(), 2, "Providers() lists eager ones only")
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider

	assert.NoError(t, p.Boot(container.New()))
	assert.False(t, p.IsDeferred())
	assert.Empty(t, p.Provides())
}
