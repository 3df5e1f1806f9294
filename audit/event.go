// Package audit provides best-effort audit event recording for assistant
// operations. Sinks observe workflow runs and collaborator calls; they must
// never block or fail the run they are observing.
package audit

// Event records a single auditable action taken by the assistant.
//
// Events cover both workflow execution (stage completed, run failed) and
// collaborator side effects (reply sent, issue created, event scheduled).
type Event struct {
	// Action names what happened, e.g. "email_classified", "issue_created".
	Action string

	// Resource is the kind of thing acted on, e.g. "email", "calendar_event".
	Resource string

	// ResourceID identifies the specific resource, e.g. a message id.
	// Empty when the action is not tied to one resource.
	ResourceID string

	// UserID identifies the user on whose behalf the action ran.
	UserID string

	// Status is "success", "failure", or "warning".
	Status string

	// RunID ties the event to a workflow run, when one is in progress.
	RunID string

	// Step is the sequential stage number within the run (1-indexed).
	// Zero for events outside a run.
	Step int

	// Meta carries additional structured detail.
	// Common keys: "classification", "needs_review", "error", "duration_ms".
	Meta map[string]interface{}
}

// Status values used across the module.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
)
