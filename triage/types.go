// Package triage implements the email triage workflow: classify an incoming
// message, summarize it, and draft a reply when the classification calls for
// one. Stages run on the pipeline engine with an llm.Provider doing the
// generation and pipeline.Decode guarding every structured output.
package triage

import (
	"errors"
	"strings"
)

// Classification buckets an email by how much human attention it needs.
type Classification string

const (
	// ClassAutoReply marks simple emails whose reply can be sent without
	// human review.
	ClassAutoReply Classification = "auto-reply"

	// ClassDraftForReview marks emails whose drafted reply a human must
	// approve before sending.
	ClassDraftForReview Classification = "draft-for-review"

	// ClassManual marks complex emails requiring full human attention.
	// No draft is produced.
	ClassManual Classification = "manual"
)

// ParseClassification normalizes raw model output into a Classification.
// Surrounding whitespace and letter case are folded; anything that is not a
// known category becomes ClassManual, the conservative default.
func ParseClassification(raw string) Classification {
	switch Classification(strings.ToLower(strings.TrimSpace(raw))) {
	case ClassAutoReply:
		return ClassAutoReply
	case ClassDraftForReview:
		return ClassDraftForReview
	case ClassManual:
		return ClassManual
	default:
		return ClassManual
	}
}

// EmailMessage is an incoming email to triage.
type EmailMessage struct {
	MessageID string   `json:"message_id"`
	ThreadID  string   `json:"thread_id,omitempty"`
	Sender    string   `json:"sender"`
	To        []string `json:"to,omitempty"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Snippet   string   `json:"snippet,omitempty"`
	Labels    []string `json:"labels,omitempty"`
}

// EmailSummary is the structured digest extracted by the summarize stage.
type EmailSummary struct {
	MainPurpose string   `json:"main_purpose"`
	KeyDetails  []string `json:"key_details"`
	Questions   []string `json:"questions"`
	Deadlines   []string `json:"deadlines"`
}

// Validate reports whether the summary carries its required field.
func (s EmailSummary) Validate() error {
	if s.MainPurpose == "" {
		return errors.New("main_purpose is required")
	}
	return nil
}

// DegradedSummary is the fallback used when the model's summary cannot be
// decoded. The run proceeds with it rather than aborting.
func DegradedSummary() EmailSummary {
	return EmailSummary{
		MainPurpose: "Failed to extract summary",
		KeyDetails:  []string{},
		Questions:   []string{},
		Deadlines:   []string{},
	}
}

// ReplyDraft is the drafted response to an email.
//
// For drafts needing review, uncertain passages are marked inline with
// "[CHECK: question]" so a reviewer can spot them.
type ReplyDraft struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	NeedsReview bool   `json:"needs_review"`
}
