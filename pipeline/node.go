// Package pipeline provides the multi-stage workflow engine that drives the
// assistant's generation pipelines.
//
// A pipeline is a small directed graph of stages over a shared typed state.
// Stages execute strictly one after another within a run; each stage's
// prompt depends on the previous stage's output, so there is no intra-run
// parallelism. Separate runs are independent: each owns its state and may
// execute concurrently with others.
package pipeline

import "context"

// Node is one stage of a pipeline. It receives the current state, performs
// its work (typically a provider call plus structured-output parsing), and
// returns a partial state update with a routing decision.
//
// Type parameter S is the run's state type.
type Node[S any] interface {
	// Run executes the stage. A returned Err aborts the run; degraded
	// parses are not errors and belong in the Delta instead.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult is the outcome of a stage execution.
type NodeResult[S any] struct {
	// Delta is the partial state update, merged via the engine's reducer.
	Delta S

	// Route decides where execution goes next. When zero, the engine falls
	// back to the declared edges.
	Route Next

	// Err aborts the run. Provider and infrastructure failures go here;
	// malformed provider text never does (see Decode).
	Err error
}

// Next is a routing decision: terminal, an explicit next stage, or zero to
// defer to edge predicates.
type Next struct {
	// To names the next stage. Mutually exclusive with Terminal.
	To string

	// Terminal ends the run.
	Terminal bool
}

// Stop returns a terminal routing decision.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto routes to the named stage.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements Node.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}
