// Package store provides persistence backends for pipeline run state.
//
// The engine writes one record per completed stage, so a run's history is a
// step-ordered trail of states. Backends trade durability for setup cost:
// MemStore for tests, SQLiteStore for single-process deployments, MySQLStore
// for shared infrastructure.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists for the requested run.
var ErrNotFound = errors.New("store: record not found")

// StepRecord is one persisted stage execution: the state after the stage's
// delta was merged.
type StepRecord[S any] struct {
	Step   int
	NodeID string
	State  S
}

// Store persists per-stage run state.
//
// Implementations must be safe for concurrent use; independent runs persist
// steps concurrently. State types must be JSON-serializable.
type Store[S any] interface {
	// SaveStep records the state after a stage. Saving the same (runID, step)
	// twice replaces the earlier record.
	SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error

	// LoadLatest returns the highest-numbered step for a run, or ErrNotFound.
	LoadLatest(ctx context.Context, runID string) (state S, step int, err error)

	// History returns all steps for a run in ascending step order, or
	// ErrNotFound when the run has none.
	History(ctx context.Context, runID string) ([]StepRecord[S], error)
}
