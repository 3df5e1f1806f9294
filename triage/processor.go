package triage

import (
	"context"
	"sync"

	"github.com/dmaas/deskagent/audit"
	"github.com/dmaas/deskagent/pipeline"
)

// DefaultMaxEmails bounds one ProcessUnread batch.
const DefaultMaxEmails = 10

// Outcome is the per-message result of a batch run. A failed message
// carries its error; the rest of the batch is unaffected.
type Outcome struct {
	MessageID string

	// State is the final (or partial, on failure) triage state.
	State State

	// SentMessageID is set when an auto-reply was sent.
	SentMessageID string

	// Err is the failure for this message, if any.
	Err error
}

// Processor drives triage over a mailbox: it lists unread messages, runs
// the workflow on each, and optionally sends auto-replies.
//
// Messages are processed concurrently up to Concurrency; each message is an
// independent workflow run, so one failure never aborts the batch.
type Processor struct {
	Engine  *pipeline.Engine[State]
	Mailbox MailboxClient
	Sink    audit.Sink

	// UserID is attached to every run's state and audit events.
	UserID string

	// MaxEmails bounds the batch size. Zero means DefaultMaxEmails.
	MaxEmails int

	// Concurrency bounds simultaneous workflow runs. Zero means 1.
	Concurrency int

	// AutoSend sends drafts that need no review and marks the message
	// read after sending. Drafts needing review are left in the outcome
	// for a human.
	AutoSend bool
}

// ProcessUnread runs the triage workflow over the current unread messages.
// The returned outcomes preserve listing order. The error is non-nil only
// when the mailbox listing itself fails; per-message failures live in the
// outcomes.
func (p *Processor) ProcessUnread(ctx context.Context) ([]Outcome, error) {
	maxEmails := p.MaxEmails
	if maxEmails <= 0 {
		maxEmails = DefaultMaxEmails
	}

	ids, err := p.Mailbox.ListUnread(ctx, maxEmails)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]Outcome, len(ids))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i int, messageID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i] = p.processOne(ctx, messageID)
		}(i, id)
	}
	wg.Wait()

	return outcomes, nil
}

func (p *Processor) processOne(ctx context.Context, messageID string) Outcome {
	outcome := Outcome{MessageID: messageID}

	email, err := p.Mailbox.Fetch(ctx, messageID)
	if err != nil {
		outcome.Err = err
		p.recordFailure(messageID, "email_fetched", err)
		return outcome
	}

	initial := State{Email: email, UserID: p.UserID}
	final, err := p.Engine.Run(ctx, "triage-"+messageID, initial)
	outcome.State = final
	if err != nil {
		outcome.Err = err
		p.recordFailure(messageID, "email_processed", err)
		return outcome
	}

	if p.AutoSend && final.Draft != nil && !final.Draft.NeedsReview {
		sentID, err := p.Mailbox.Send(ctx, *final.Draft)
		if err != nil {
			outcome.Err = err
			p.recordFailure(messageID, "email_reply_sent", err)
			return outcome
		}
		outcome.SentMessageID = sentID

		audit.Record(p.Sink, audit.Event{
			Action:     "email_reply_sent",
			Resource:   "email",
			ResourceID: messageID,
			UserID:     p.UserID,
			Status:     audit.StatusSuccess,
			Meta:       map[string]interface{}{"sent_message_id": sentID},
		})

		if err := p.Mailbox.MarkRead(ctx, messageID); err != nil {
			// The reply went out; a failed acknowledgment is a warning,
			// not a batch failure.
			audit.Record(p.Sink, audit.Event{
				Action:     "email_marked_read",
				Resource:   "email",
				ResourceID: messageID,
				UserID:     p.UserID,
				Status:     audit.StatusWarning,
				Meta:       map[string]interface{}{"error": err.Error()},
			})
		}
	}

	return outcome
}

func (p *Processor) recordFailure(messageID, action string, err error) {
	audit.Record(p.Sink, audit.Event{
		Action:     action,
		Resource:   "email",
		ResourceID: messageID,
		UserID:     p.UserID,
		Status:     audit.StatusFailure,
		Meta:       map[string]interface{}{"error": err.Error()},
	})
}
