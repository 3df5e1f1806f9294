package pipeline

// Reason classifies why a run ended abnormally.
type Reason string

const (
	// ReasonNodeFailed means a stage returned an error (provider or
	// infrastructure failure, not a parse degradation).
	ReasonNodeFailed Reason = "node_failed"

	// ReasonCanceled means the caller's context was cancelled between
	// stage boundaries.
	ReasonCanceled Reason = "cancelled"

	// ReasonNoRoute means no transition matched after a stage: the state's
	// classification (or other routing input) had no entry in the graph.
	ReasonNoRoute Reason = "no_route"

	// ReasonMaxSteps means the run exceeded the configured step budget.
	ReasonMaxSteps Reason = "max_steps_exceeded"

	// ReasonStoreFailed means step persistence failed mid-run.
	ReasonStoreFailed Reason = "store_failed"
)

// RunError reports an aborted run.
//
// Engine.Run returns a RunError together with the partial state accumulated
// before the failure, so callers can log or inspect how far the run got.
// The engine never retries a failed run; retry policy belongs to the
// provider stack and the caller.
type RunError struct {
	// RunID identifies the failed run.
	RunID string

	// NodeID is the stage that was executing (or about to execute) when the
	// run aborted.
	NodeID string

	// Reason classifies the failure.
	Reason Reason

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := "run " + e.RunID + ": " + string(e.Reason)
	if e.NodeID != "" {
		msg += " at node " + e.NodeID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// EngineError reports invalid engine configuration or construction.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
