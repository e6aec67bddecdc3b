package container

import (
	"context"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// cleanup is a named teardown step run by Close.
type cleanup struct {
	name string
	fn   func(ctx context.Context) error
}

// instanceCache holds the instances of one lifetime owner: the root container
// for singletons, or a scope for scoped services.
type instanceCache struct {
	mu        sync.RWMutex
	instances map[Key]any
	locks     map[Key]*sync.Mutex
	cleanups  []cleanup
	closed    bool
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		instances: make(map[Key]any),
		locks:     make(map[Key]*sync.Mutex),
	}
}

func (ic *instanceCache) get(k Key) (any, bool) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	inst, ok := ic.instances[k]
	return inst, ok
}

func (ic *instanceCache) set(k Key, inst any) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.instances[k] = inst
}

func (ic *instanceCache) forget(k Key) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	delete(ic.instances, k)
}

// lock returns the construction mutex for k, creating it on first use.
func (ic *instanceCache) lock(k Key) *sync.Mutex {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	m, ok := ic.locks[k]
	if !ok {
		m = &sync.Mutex{}
		ic.locks[k] = m
	}
	return m
}

func (ic *instanceCache) isClosed() bool {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.closed
}

// store caches inst and, when it can release resources, schedules its
// teardown. It reports false, storing nothing, once the cache is closed.
func (ic *instanceCache) store(k Key, inst any) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.closed {
		return false
	}
	ic.instances[k] = inst
	if fn := closerFor(inst); fn != nil {
		ic.cleanups = append(ic.cleanups, cleanup{name: k.String(), fn: fn})
	}
	return true
}

func (ic *instanceCache) onClose(name string, fn func(ctx context.Context) error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.cleanups = append(ic.cleanups, cleanup{name: name, fn: fn})
}

// close runs cleanups last-registered-first and drops every instance. A
// cancelled ctx stops the remaining cleanups.
func (ic *instanceCache) close(ctx context.Context, logger *zap.Logger) (err error) {
	ic.mu.Lock()
	if ic.closed {
		ic.mu.Unlock()
		return nil
	}
	ic.closed = true
	cleanups := ic.cleanups
	ic.cleanups = nil
	ic.instances = make(map[Key]any)
	ic.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return multierr.Append(err, ctxErr)
		}
		c := cleanups[i]
		if cerr := c.fn(ctx); cerr != nil {
			logger.Error("container: cleanup failed", zap.String("resource", c.name), zap.Error(cerr))
			err = multierr.Append(err, cerr)
			continue
		}
		logger.Debug("container: cleaned up", zap.String("resource", c.name))
	}
	return err
}

// closerFor adapts the teardown methods we know about.
func closerFor(inst any) func(ctx context.Context) error {
	switch v := inst.(type) {
	case interface{ Shutdown(context.Context) error }:
		return v.Shutdown
	case io.Closer:
		return func(context.Context) error { return v.Close() }
	default:
		return nil
	}
}
