package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnregisteredService   = errors.New("container: service not registered")
	ErrCircularDependency    = errors.New("container: circular dependency")
	ErrScopedOnRoot          = errors.New("container: scoped service resolved outside a scope")
	ErrNilFactory            = errors.New("container: factory is nil")
	ErrInvalidLifetime       = errors.New("container: invalid lifetime")
	ErrInvalidKey            = errors.New("container: invalid key")
	ErrDuplicateRegistration = errors.New("container: key already registered")
	ErrTypeMismatch          = errors.New("container: resolved instance has unexpected type")
	ErrClosed                = errors.New("container: closed")
)

// UnregisteredServiceError is returned when a key has no binding.
type UnregisteredServiceError struct {
	Key Key
}

func (e *UnregisteredServiceError) Error() string {
	return fmt.Sprintf("container: no binding registered for [%s]", e.Key)
}

func (e *UnregisteredServiceError) Is(target error) bool { return target == ErrUnregisteredService }

// CircularDependencyError carries the resolution path that closed the cycle.
// The first and last elements of Path are the same key.
type CircularDependencyError struct {
	Path []Key
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "container: circular dependency: " + strings.Join(parts, " -> ")
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// ResolveError wraps an error returned by a factory.
type ResolveError struct {
	Key Key
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("container: resolving [%s]: %v", e.Key, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// TypeMismatchError is returned by Resolve[T] when the instance is not a T.
type TypeMismatchError struct {
	Key  Key
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container: [%s] resolved to %s, want %s", e.Key, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
