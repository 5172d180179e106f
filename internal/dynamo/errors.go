package dynamo

import "errors"

// Domain errors for closed-loop runs.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the loop became numerically unstable.
	ErrUnstable = errors.New("dynamo: loop unstable (state diverged)")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: run canceled by context")

	// ErrDimensionMismatch indicates mismatched state/plant dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and plant")
)

// RunError wraps an error with loop context.
type RunError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *RunError) Error() string {
	return e.Wrapped.Error()
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
