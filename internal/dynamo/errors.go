package dynamo

import (
	"errors"
	"fmt"

	"github.com/san-kum/mcsim/internal/compute"
)

// Domain errors for simulation operations.
var (
	// ErrShapeMismatch indicates a state, matrix or data slice whose
	// dimensions do not fit the buffer.
	ErrShapeMismatch = errors.New("dynamo: shape mismatch")

	// ErrNonFinite indicates an initial condition with NaN or infinite
	// components.
	ErrNonFinite = errors.New("dynamo: non-finite initial condition")

	// ErrOutOfRange indicates a trial range outside the buffer bounds.
	ErrOutOfRange = errors.New("dynamo: trial range out of bounds")

	// ErrOverlap indicates two views requested over the same trials.
	ErrOverlap = errors.New("dynamo: overlapping trial ranges")

	// ErrNoWorkers indicates a partition or pool without workers. It is the
	// pool's own sentinel, so either origin matches.
	ErrNoWorkers = compute.ErrNoWorkers

	// ErrDispatch indicates a worker task failed and the run was aborted.
	ErrDispatch = errors.New("dynamo: worker dispatch failed")
)

// TaskError wraps a failure of a single dispatched task with the trial
// range it was responsible for.
type TaskError struct {
	Task    int
	Range   Range
	Wrapped error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d %s: %v", e.Task, e.Range, e.Wrapped)
}

func (e *TaskError) Unwrap() error {
	return e.Wrapped
}
