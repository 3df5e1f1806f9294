package triage

import (
	"context"
	"strings"

	"github.com/dmaas/deskagent/audit"
	"github.com/dmaas/deskagent/llm"
	"github.com/dmaas/deskagent/pipeline"
)

const issueFromEmailSystem = `You are an AI assistant that converts emails into structured issues.
Based on the email content, extract:

1. A concise but descriptive summary (title)
2. A well-formatted description with key details
3. The appropriate issue type (Task, Bug, Story, etc.)
4. Priority level (if mentioned)
5. Any labels that would be appropriate

Format your response as a JSON object with these keys:
summary, description, issue_type, priority, labels`

const issueFromEventSystem = `You are an AI assistant that converts calendar events into structured issues.
Based on the event details, extract:

1. A concise but descriptive summary (title)
2. A well-formatted description with key details and action items
3. The appropriate issue type (usually Task)
4. Priority level (default to Medium if not clear)
5. Any labels that would be appropriate
6. Due date (based on the event timing)

Format your response as a JSON object with these keys:
summary, description, issue_type, priority, labels, due_date`

// IssueRecord is a work item ready to be filed with an IssueTracker.
type IssueRecord struct {
	ProjectKey  string   `json:"project_key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	IssueType   string   `json:"issue_type"`
	Priority    string   `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
}

// EventDetails describes a calendar event an issue is generated from.
type EventDetails struct {
	Title       string
	Description string
	Start       string
	End         string
}

// Generator turns emails and calendar events into issue records via the
// model. Generation is best-effort: when the model's output cannot be
// decoded, the source material itself becomes the issue (subject as summary,
// body as description, type Task).
type Generator struct {
	Provider llm.Provider
	Sink     audit.Sink
}

// FromEmail generates an issue from an email.
func (g *Generator) FromEmail(ctx context.Context, email EmailMessage, projectKey string) (IssueRecord, error) {
	var sb strings.Builder
	sb.WriteString("Email Subject: ")
	sb.WriteString(email.Subject)
	sb.WriteString("\n\nEmail Body:\n")
	sb.WriteString(email.Body)

	text, err := g.Provider.Generate(ctx, issueFromEmailSystem, sb.String())
	if err != nil {
		return IssueRecord{}, llm.Wrap("issue_generator", err)
	}

	fallback := IssueRecord{
		Summary:     email.Subject,
		Description: email.Body,
		IssueType:   "Task",
	}
	result := pipeline.Decode(text, fallback)

	issue := result.Value
	issue.ProjectKey = projectKey
	if issue.Summary == "" {
		issue.Summary = email.Subject
	}
	if issue.Description == "" {
		issue.Description = email.Body
	}
	if issue.IssueType == "" {
		issue.IssueType = "Task"
	}

	status := audit.StatusSuccess
	meta := map[string]interface{}{"email_subject": email.Subject}
	if result.Degraded {
		status = audit.StatusFailure
		meta["error"] = result.Reason
	}
	audit.Record(g.Sink, audit.Event{
		Action:   "issue_generated_from_email",
		Resource: "issue",
		Status:   status,
		Meta:     meta,
	})

	return issue, nil
}

// FromEvent generates an issue from a calendar event.
func (g *Generator) FromEvent(ctx context.Context, event EventDetails, projectKey string) (IssueRecord, error) {
	var sb strings.Builder
	sb.WriteString("Event Title: ")
	sb.WriteString(event.Title)
	sb.WriteString("\nEvent Description: ")
	sb.WriteString(event.Description)
	sb.WriteString("\nEvent Start: ")
	sb.WriteString(event.Start)
	sb.WriteString("\nEvent End: ")
	sb.WriteString(event.End)

	text, err := g.Provider.Generate(ctx, issueFromEventSystem, sb.String())
	if err != nil {
		return IssueRecord{}, llm.Wrap("issue_generator", err)
	}

	fallback := IssueRecord{
		Summary:     event.Title,
		Description: event.Description + "\n\nEvent Time: " + event.Start + " to " + event.End,
		IssueType:   "Task",
	}
	result := pipeline.Decode(text, fallback)

	issue := result.Value
	issue.ProjectKey = projectKey
	if issue.Summary == "" {
		issue.Summary = event.Title
	}
	if issue.Description == "" {
		issue.Description = fallback.Description
	}
	if issue.IssueType == "" {
		issue.IssueType = "Task"
	}
	if issue.Priority == "" {
		issue.Priority = "Medium"
	}

	status := audit.StatusSuccess
	meta := map[string]interface{}{"event_title": event.Title}
	if result.Degraded {
		status = audit.StatusFailure
		meta["error"] = result.Reason
	}
	audit.Record(g.Sink, audit.Event{
		Action:   "issue_generated_from_calendar",
		Resource: "issue",
		Status:   status,
		Meta:     meta,
	})

	return issue, nil
}

// Filer files generated issues with a tracker, recording every attempt.
type Filer struct {
	Tracker IssueTracker
	Sink    audit.Sink
}

// File creates the issue and returns its key.
func (f *Filer) File(ctx context.Context, issue IssueRecord) (string, error) {
	key, err := f.Tracker.CreateIssue(ctx, issue)
	if err != nil {
		audit.Record(f.Sink, audit.Event{
			Action:   "issue_created",
			Resource: "issue",
			Status:   audit.StatusFailure,
			Meta:     map[string]interface{}{"error": err.Error(), "summary": issue.Summary},
		})
		return "", err
	}

	audit.Record(f.Sink, audit.Event{
		Action:     "issue_created",
		Resource:   "issue",
		ResourceID: key,
		Status:     audit.StatusSuccess,
		Meta: map[string]interface{}{
			"project":    issue.ProjectKey,
			"summary":    issue.Summary,
			"issue_type": issue.IssueType,
		},
	})
	return key, nil
}

// Comment adds a comment to an existing issue and returns the comment id.
func (f *Filer) Comment(ctx context.Context, issueKey, body string) (string, error) {
	id, err := f.Tracker.AddComment(ctx, issueKey, body)
	if err != nil {
		audit.Record(f.Sink, audit.Event{
			Action:   "issue_comment_added",
			Resource: "issue_comment",
			Status:   audit.StatusFailure,
			Meta:     map[string]interface{}{"error": err.Error(), "issue_key": issueKey},
		})
		return "", err
	}

	audit.Record(f.Sink, audit.Event{
		Action:     "issue_comment_added",
		Resource:   "issue_comment",
		ResourceID: id,
		Status:     audit.StatusSuccess,
		Meta:       map[string]interface{}{"issue_key": issueKey},
	})
	return id, nil
}
