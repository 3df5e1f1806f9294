package triage

import "context"

// MailboxClient is the mailbox surface the processor needs: list, fetch,
// acknowledge, send. Implementations wrap a real mail API (e.g. Gmail);
// tests use in-memory fakes.
type MailboxClient interface {
	// ListUnread returns up to max unread message ids.
	ListUnread(ctx context.Context, max int) ([]string, error)

	// Fetch retrieves one message by id.
	Fetch(ctx context.Context, messageID string) (EmailMessage, error)

	// MarkRead acknowledges a processed message.
	MarkRead(ctx context.Context, messageID string) error

	// Send delivers a drafted reply and returns the sent message id.
	Send(ctx context.Context, draft ReplyDraft) (string, error)
}

// IssueTracker files work items derived from emails and events.
type IssueTracker interface {
	// CreateIssue files an issue and returns its key.
	CreateIssue(ctx context.Context, issue IssueRecord) (string, error)

	// AddComment appends a comment to an existing issue and returns the
	// comment id.
	AddComment(ctx context.Context, issueKey, body string) (string, error)
}

// CredentialStore resolves per-user credentials for collaborator clients.
// Implementations decide the backing (environment, keychain, token file);
// this module never persists secrets itself.
type CredentialStore interface {
	// Get returns the named credential for a user, e.g. an OAuth token.
	Get(ctx context.Context, userID, name string) (string, error)
}
