package triage

// State is the triage run state. Each stage fills in its own field; the
// reducer merges stage deltas last-writer-wins per field.
type State struct {
	// Email is the message under triage, set before the run starts.
	Email EmailMessage `json:"email"`

	// UserID identifies whose mailbox the message came from.
	UserID string `json:"user_id,omitempty"`

	// Classification is set by the classify stage.
	Classification Classification `json:"classification,omitempty"`

	// Summary is set by the summarize stage. SummaryDegraded records that
	// the model's output could not be decoded and Summary holds defaults.
	Summary         *EmailSummary `json:"summary,omitempty"`
	SummaryDegraded bool          `json:"summary_degraded,omitempty"`

	// Draft is set by the draft stage; nil for manual emails.
	Draft *ReplyDraft `json:"draft,omitempty"`
}

// Reduce merges a stage delta into the previous state. Unset (zero) delta
// fields leave the previous value in place, so each stage only reports what
// it produced.
func Reduce(prev, delta State) State {
	out := prev
	if delta.Email.MessageID != "" {
		out.Email = delta.Email
	}
	if delta.UserID != "" {
		out.UserID = delta.UserID
	}
	if delta.Classification != "" {
		out.Classification = delta.Classification
	}
	if delta.Summary != nil {
		out.Summary = delta.Summary
		out.SummaryDegraded = delta.SummaryDegraded
	}
	if delta.Draft != nil {
		out.Draft = delta.Draft
	}
	return out
}
