package container

import "fmt"

// Lifetime controls how long a resolved instance is reused.
type Lifetime int

const (
	// Transient builds a new instance on every resolution.
	Transient Lifetime = iota
	// Singleton builds one instance per container, lazily, on first resolution.
	Singleton
	// Scoped builds one instance per scope (see Container.NewScope).
	Scoped
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Valid reports whether l is one of the declared lifetimes.
func (l Lifetime) Valid() bool {
	return l >= Transient && l <= Scoped
}
