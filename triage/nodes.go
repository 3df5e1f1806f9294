package triage

import (
	"context"
	"strings"

	"github.com/dmaas/deskagent/audit"
	"github.com/dmaas/deskagent/llm"
	"github.com/dmaas/deskagent/pipeline"
)

// Stage ids in the triage workflow.
const (
	NodeClassify  = "classify"
	NodeSummarize = "summarize"
	NodeDraft     = "draft"
)

const classifySystemPrompt = `You are an email classifier. Analyze the email content and categorize it into one of these categories:
- auto-reply: Simple emails that can be automatically replied to without human review
- draft-for-review: Emails that need a human to review a draft reply before sending
- manual: Complex emails that require complete human attention

Respond with ONLY the category name, nothing else.`

const summarizeSystemPrompt = `Summarize the following email into concise bullet points. Extract:
1. Main request or purpose of the email
2. Key details or information provided
3. Any explicit questions that need to be answered
4. Any deadlines or time constraints mentioned

Format your response as a JSON object with these keys:
main_purpose, key_details (array), questions (array), deadlines (array)`

const draftSystemPrefix = "You are an email assistant drafting a reply. The email has been classified as "

const draftAutoReplySystem = draftSystemPrefix + `'auto-reply', which means you can draft a complete response that can be sent automatically without human review. Be professional, clear, and concise.`

const draftForReviewSystem = draftSystemPrefix + `'draft-for-review', which means your draft will be reviewed by a human before sending. Address all questions and requests, but mark any areas of uncertainty with [CHECK: your question] for human review.`

// emailPrompt renders the message the way every stage presents it to the
// model.
func emailPrompt(email EmailMessage) string {
	var sb strings.Builder
	sb.WriteString("Subject: ")
	sb.WriteString(email.Subject)
	sb.WriteString("\n\nFrom: ")
	sb.WriteString(email.Sender)
	sb.WriteString("\n\nBody:\n")
	sb.WriteString(email.Body)
	return sb.String()
}

// ClassifyNode is the first triage stage: it buckets the email and routes
// every run to the summarize stage.
type ClassifyNode struct {
	Provider llm.Provider
	Sink     audit.Sink
}

// Run implements pipeline.Node.
func (n *ClassifyNode) Run(ctx context.Context, state State) pipeline.NodeResult[State] {
	text, err := n.Provider.Generate(ctx, classifySystemPrompt, emailPrompt(state.Email))
	if err != nil {
		return pipeline.NodeResult[State]{Err: llm.Wrap("classify", err)}
	}

	classification := ParseClassification(text)

	audit.Record(n.Sink, audit.Event{
		Action:     "email_classified",
		Resource:   "email",
		ResourceID: state.Email.MessageID,
		UserID:     state.UserID,
		Status:     audit.StatusSuccess,
		Meta:       map[string]interface{}{"classification": string(classification)},
	})

	return pipeline.NodeResult[State]{
		Delta: State{Classification: classification},
		Route: pipeline.Goto(NodeSummarize),
	}
}

// SummarizeNode extracts the structured summary and decides whether a draft
// stage follows. The routing decision keys off the classification made one
// stage earlier, so the transition table lives here rather than on edges.
type SummarizeNode struct {
	Provider llm.Provider
	Sink     audit.Sink

	// Transitions overrides the default routing per classification.
	// Classifications absent from the map end the run.
	Transitions map[Classification]pipeline.Next
}

// Run implements pipeline.Node.
func (n *SummarizeNode) Run(ctx context.Context, state State) pipeline.NodeResult[State] {
	text, err := n.Provider.Generate(ctx, summarizeSystemPrompt, emailPrompt(state.Email))
	if err != nil {
		return pipeline.NodeResult[State]{Err: llm.Wrap("summarize", err)}
	}

	result := pipeline.Decode(text, DegradedSummary())
	summary := result.Value

	if result.Degraded {
		audit.Record(n.Sink, audit.Event{
			Action:     "email_summarized",
			Resource:   "email",
			ResourceID: state.Email.MessageID,
			UserID:     state.UserID,
			Status:     audit.StatusFailure,
			Meta:       map[string]interface{}{"error": result.Reason},
		})
	} else {
		audit.Record(n.Sink, audit.Event{
			Action:     "email_summarized",
			Resource:   "email",
			ResourceID: state.Email.MessageID,
			UserID:     state.UserID,
			Status:     audit.StatusSuccess,
		})
	}

	return pipeline.NodeResult[State]{
		Delta: State{Summary: &summary, SummaryDegraded: result.Degraded},
		Route: n.route(state.Classification),
	}
}

func (n *SummarizeNode) route(classification Classification) pipeline.Next {
	if n.Transitions != nil {
		if next, ok := n.Transitions[classification]; ok {
			return next
		}
		return pipeline.Stop()
	}
	switch classification {
	case ClassAutoReply, ClassDraftForReview:
		return pipeline.Goto(NodeDraft)
	default:
		return pipeline.Stop()
	}
}

// DraftNode writes the reply. It only runs for auto-reply and
// draft-for-review classifications; the system prompt differs between the
// two, and draft-for-review output carries inline [CHECK: ...] markers.
type DraftNode struct {
	Provider llm.Provider
	Sink     audit.Sink
}

// Run implements pipeline.Node.
func (n *DraftNode) Run(ctx context.Context, state State) pipeline.NodeResult[State] {
	system := draftForReviewSystem
	if state.Classification == ClassAutoReply {
		system = draftAutoReplySystem
	}

	text, err := n.Provider.Generate(ctx, system, draftPrompt(state))
	if err != nil {
		return pipeline.NodeResult[State]{Err: llm.Wrap("draft", err)}
	}

	draft := ReplyDraft{
		To:          state.Email.Sender,
		Subject:     "Re: " + state.Email.Subject,
		Body:        strings.TrimSpace(text),
		NeedsReview: state.Classification == ClassDraftForReview,
	}

	audit.Record(n.Sink, audit.Event{
		Action:     "email_reply_drafted",
		Resource:   "email",
		ResourceID: state.Email.MessageID,
		UserID:     state.UserID,
		Status:     audit.StatusSuccess,
		Meta:       map[string]interface{}{"needs_review": draft.NeedsReview},
	})

	return pipeline.NodeResult[State]{
		Delta: State{Draft: &draft},
		Route: pipeline.Stop(),
	}
}

// draftPrompt includes the summary so the reply addresses what the
// summarize stage extracted, even when that summary is degraded defaults.
func draftPrompt(state State) string {
	summary := DegradedSummary()
	if state.Summary != nil {
		summary = *state.Summary
	}

	var sb strings.Builder
	sb.WriteString("Email Subject: ")
	sb.WriteString(state.Email.Subject)
	sb.WriteString("\n\nFrom: ")
	sb.WriteString(state.Email.Sender)
	sb.WriteString("\n\nEmail Body:\n")
	sb.WriteString(state.Email.Body)
	sb.WriteString("\n\nSummary:\nMain Purpose: ")
	sb.WriteString(summary.MainPurpose)
	sb.WriteString("\nKey Details: ")
	sb.WriteString(strings.Join(summary.KeyDetails, ", "))
	sb.WriteString("\nQuestions: ")
	sb.WriteString(strings.Join(summary.Questions, ", "))
	sb.WriteString("\nDeadlines: ")
	sb.WriteString(strings.Join(summary.Deadlines, ", "))
	sb.WriteString("\n\nDraft a professional and helpful reply to this email.")
	return sb.String()
}
