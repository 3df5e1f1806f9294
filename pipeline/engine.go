package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/dmaas/deskagent/audit"
	"github.com/dmaas/deskagent/pipeline/store"
)

// Reducer merges a stage's partial state update into the run state.
// Reducers must be deterministic; the stage sequence for a fixed initial
// state and fixed routing inputs is then fully reproducible even though the
// generated text inside the state is not.
type Reducer[S any] func(prev, delta S) S

// Engine executes a stage graph over an exclusively-owned run state.
//
// The engine:
//   - runs stages strictly sequentially within a run
//   - merges each stage's delta via the reducer
//   - routes via explicit NodeResult routes, falling back to edge predicates
//   - checks caller cancellation between stage boundaries
//   - bounds each stage with a configurable timeout
//   - optionally persists state after every stage and records audit events
//   - aborts on the first stage error and returns the partial state; it
//     never retries
//
// Multiple runs may execute concurrently; no state is shared across runs,
// so the engine needs no per-run locking beyond its own topology maps.
type Engine[S any] struct {
	mu sync.RWMutex

	reducer   Reducer[S]
	nodes     map[string]Node[S]
	policies  map[string]*NodePolicy
	edges     []Edge[S]
	startNode string

	store store.Store[S]
	sink  audit.Sink
	cfg   engineConfig
}

// New creates an Engine.
//
// The store and sink are optional: a nil store skips step persistence and a
// nil sink skips audit events. The reducer is required and validated at Run.
func New[S any](reducer Reducer[S], st store.Store[S], sink audit.Sink, opts ...Option) *Engine[S] {
	cfg := engineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine[S]{
		reducer:  reducer,
		nodes:    make(map[string]Node[S]),
		policies: make(map[string]*NodePolicy),
		store:    st,
		sink:     sink,
		cfg:      cfg,
	}
}

// Add registers a stage. Stage ids must be unique and non-empty.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{Message: "duplicate node ID: " + nodeID, Code: "DUPLICATE_NODE"}
	}
	e.nodes[nodeID] = node
	return nil
}

// SetPolicy attaches per-stage execution settings to a registered stage.
func (e *Engine[S]) SetPolicy(nodeID string, policy *NodePolicy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{Message: "node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}
	e.policies[nodeID] = policy
	return nil
}

// StartAt sets the entry stage. The stage must already be registered.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{Message: "start node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}
	e.startNode = nodeID
	return nil
}

// Connect declares an edge. A nil predicate is unconditional. Explicit
// routes returned by nodes take precedence over edges.
func (e *Engine[S]) Connect(from, to string, predicate Predicate[S]) error {
	if from == "" {
		return &EngineError{Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &EngineError{Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: predicate})
	return nil
}

// Run executes the pipeline over the initial state until a terminal route,
// an error, or cancellation.
//
// On success it returns the final state. On failure it returns the partial
// state accumulated so far together with a *RunError naming the stage and
// reason; configuration problems surface as *EngineError before any stage
// runs.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	if e.reducer == nil {
		return initial, &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}

	e.mu.RLock()
	startNode := e.startNode
	_, startExists := e.nodes[startNode]
	e.mu.RUnlock()

	if startNode == "" {
		return initial, &EngineError{Message: "start node not set (call StartAt before Run)", Code: "NO_START_NODE"}
	}
	if !startExists {
		return initial, &EngineError{Message: "start node does not exist: " + startNode, Code: "NODE_NOT_FOUND"}
	}

	if e.cfg.metrics != nil {
		e.cfg.metrics.runStarted()
		defer e.cfg.metrics.runFinished()
	}

	currentState := initial
	currentNode := startNode
	step := 0

	for {
		step++

		if e.cfg.maxSteps > 0 && step > e.cfg.maxSteps {
			err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonMaxSteps}
			e.finishRun(runID, audit.StatusFailure, err)
			return currentState, err
		}

		// Cancellation is observed between stage boundaries, never
		// mid-stage; an in-flight provider call sees it via its context.
		select {
		case <-ctx.Done():
			err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonCanceled, Err: ctx.Err()}
			e.finishRun(runID, audit.StatusFailure, err)
			return currentState, err
		default:
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[currentNode]
		policy := e.policies[currentNode]
		e.mu.RUnlock()

		if !exists {
			err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonNoRoute,
				Err: &EngineError{Message: "node not found during execution: " + currentNode, Code: "NODE_NOT_FOUND"}}
			e.finishRun(runID, audit.StatusFailure, err)
			return currentState, err
		}

		started := time.Now()
		result := runWithTimeout(ctx, nodeImpl, currentState, policy, e.cfg.defaultStageTimeout)
		elapsed := time.Since(started)

		if result.Err != nil {
			if e.cfg.metrics != nil {
				e.cfg.metrics.observeStage(currentNode, elapsed, "error")
			}
			err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonNodeFailed, Err: result.Err}
			e.finishRun(runID, audit.StatusFailure, err)
			return currentState, err
		}

		currentState = e.reducer(currentState, result.Delta)

		if e.store != nil {
			if saveErr := e.store.SaveStep(ctx, runID, step, currentNode, currentState); saveErr != nil {
				err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonStoreFailed, Err: saveErr}
				e.finishRun(runID, audit.StatusFailure, err)
				return currentState, err
			}
		}

		if e.cfg.metrics != nil {
			e.cfg.metrics.observeStage(currentNode, elapsed, "success")
		}
		audit.Record(e.sink, audit.Event{
			Action:   "stage_completed",
			Resource: "workflow",
			Status:   audit.StatusSuccess,
			RunID:    runID,
			Step:     step,
			Meta:     map[string]interface{}{"node": currentNode, "duration_ms": elapsed.Milliseconds()},
		})

		if result.Route.Terminal {
			e.finishRun(runID, audit.StatusSuccess, nil)
			return currentState, nil
		}
		if result.Route.To != "" {
			currentNode = result.Route.To
			continue
		}

		nextNode := e.evaluateEdges(currentNode, currentState)
		if nextNode == "" {
			err := &RunError{RunID: runID, NodeID: currentNode, Reason: ReasonNoRoute}
			e.finishRun(runID, audit.StatusFailure, err)
			return currentState, err
		}
		currentNode = nextNode
	}
}

// evaluateEdges finds the first matching outgoing edge in declaration order.
// Returns "" when nothing matches.
func (e *Engine[S]) evaluateEdges(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}

func (e *Engine[S]) finishRun(runID, status string, err error) {
	if e.cfg.metrics != nil {
		e.cfg.metrics.countRun(status)
	}
	meta := map[string]interface{}{}
	if err != nil {
		meta["error"] = err.Error()
	}
	audit.Record(e.sink, audit.Event{
		Action:   "run_finished",
		Resource: "workflow",
		Status:   status,
		RunID:    runID,
		Meta:     meta,
	})
}
