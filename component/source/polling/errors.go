package polling

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotInitialized     = errors.New("polling source is not initialized")
	ErrAlreadyInitialized = errors.New("polling source is already initialized")
	ErrCycleInProgress    = errors.New("polling cycle already in progress")
	ErrClosed             = errors.New("polling source is shut down")
	ErrInitFailed         = errors.New("polling source failed to initialize")
)

// InitializationError means the supplier or mapping could not be resolved.
// It is fatal to the source.
type InitializationError struct {
	Source string
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Source, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// CycleError wraps whatever the supplier, mapping or output raised mid-cycle.
type CycleError struct {
	Source string
	Cycle  int64
	Err    error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle %d failed: %v", e.Source, e.Cycle, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// ShutdownError means releasing the supplier failed. The source is shut down anyway.
type ShutdownError struct {
	Source string
	Err    error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("failed to release %s supplier: %v", e.Source, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }
