package component

import (
	"context"
)

// Operator is the lifecycle a runtime drives a polling source through.
//
// Initialize runs once before any cycle. RunCycle is called by a single
// poller, never concurrently with itself. Cancel and Shutdown may be called
// from any goroutine at any time, including while a cycle is in flight.
type Operator interface {
	Initialize(ctx context.Context) error
	RunCycle(ctx context.Context) error
	Cancel()
	Shutdown() error
}

type NewOperator func() (Operator, error)
