package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/reactorsim/internal/reactor"
)

var (
	// ErrInvalidConfig indicates a non-positive or non-finite step or duration.
	ErrInvalidConfig = errors.New("sim: invalid run config")

	// ErrInvalidState indicates the core produced NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrCanceled indicates the run was interrupted by its context.
	ErrCanceled = errors.New("sim: run canceled by context")
)

// SimulationError wraps an error with the step at which it occurred.
type SimulationError struct {
	Step    int
	Time    float64
	State   reactor.State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
