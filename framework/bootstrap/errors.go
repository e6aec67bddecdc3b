package bootstrap

import (
	"errors"
	"fmt"
)

var (
	// ErrBootstrapPhase matches every *PhaseError.
	ErrBootstrapPhase      = errors.New("bootstrap: phase failed")
	ErrAlreadyBootstrapped = errors.New("bootstrap: already run")
)

// PhaseError reports the phase that aborted bootstrap and its cause.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("bootstrap: phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Is(target error) bool { return target == ErrBootstrapPhase }
func (e *PhaseError) Unwrap() error        { return e.Err }
