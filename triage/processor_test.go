package triage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmaas/deskagent/llm"
	"github.com/dmaas/deskagent/pipeline"
)

// fakeMailbox is an in-memory MailboxClient for processor tests.
type fakeMailbox struct {
	mu       sync.Mutex
	messages map[string]EmailMessage
	unread   []string
	read     []string
	sent     []ReplyDraft

	fetchErr map[string]error
	sendErr  error
}

func (f *fakeMailbox) ListUnread(_ context.Context, max int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.unread
	if len(ids) > max {
		ids = ids[:max]
	}
	return append([]string(nil), ids...), nil
}

func (f *fakeMailbox) Fetch(_ context.Context, messageID string) (EmailMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[messageID]; err != nil {
		return EmailMessage{}, err
	}
	email, ok := f.messages[messageID]
	if !ok {
		return EmailMessage{}, errors.New("no such message")
	}
	return email, nil
}

func (f *fakeMailbox) MarkRead(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, messageID)
	return nil
}

func (f *fakeMailbox) Send(_ context.Context, draft ReplyDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, draft)
	return "sent-1", nil
}

func newFakeMailbox(ids ...string) *fakeMailbox {
	messages := make(map[string]EmailMessage, len(ids))
	for _, id := range ids {
		messages[id] = EmailMessage{
			MessageID: id,
			Sender:    "sender@example.com",
			Subject:   "Subject " + id,
			Body:      "Body " + id,
		}
	}
	return &fakeMailbox{messages: messages, unread: ids, fetchErr: map[string]error{}}
}

func newProcessorEngine(t *testing.T, mock *llm.Mock) *pipeline.Engine[State] {
	t.Helper()
	engine, err := NewWorkflow(mock, nil, nil, pipeline.WithMaxSteps(10))
	if err != nil {
		t.Fatalf("NewWorkflow failed: %v", err)
	}
	return engine
}

func TestProcessorBatch(t *testing.T) {
	// Every run: manual classification, then a summary. No drafts.
	mock := &llm.Mock{Responses: []string{"manual"}}
	mailbox := newFakeMailbox("m1", "m2", "m3")

	p := &Processor{
		Engine:      newProcessorEngine(t, mock),
		Mailbox:     mailbox,
		Concurrency: 2,
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			t.Errorf("outcome[%d] failed: %v", i, outcome.Err)
		}
		if outcome.State.Classification != ClassManual {
			t.Errorf("outcome[%d].Classification = %q", i, outcome.State.Classification)
		}
	}
	// Listing order is preserved regardless of completion order.
	if outcomes[0].MessageID != "m1" || outcomes[2].MessageID != "m3" {
		t.Errorf("outcome order = %v, %v, %v", outcomes[0].MessageID, outcomes[1].MessageID, outcomes[2].MessageID)
	}
}

func TestProcessorIsolatesFailures(t *testing.T) {
	mock := &llm.Mock{Responses: []string{"manual"}}
	mailbox := newFakeMailbox("good-1", "bad", "good-2")
	mailbox.fetchErr["bad"] = errors.New("mailbox hiccup")

	p := &Processor{
		Engine:  newProcessorEngine(t, mock),
		Mailbox: mailbox,
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}

	if outcomes[1].Err == nil {
		t.Error("failed message must carry its error")
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("one failure must not affect the rest of the batch")
	}
}

func TestProcessorRespectsMaxEmails(t *testing.T) {
	mock := &llm.Mock{Responses: []string{"manual"}}
	mailbox := newFakeMailbox("m1", "m2", "m3", "m4")

	p := &Processor{
		Engine:    newProcessorEngine(t, mock),
		Mailbox:   mailbox,
		MaxEmails: 2,
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Errorf("processed %d messages, want 2", len(outcomes))
	}
}

func TestProcessorAutoSend(t *testing.T) {
	mock := &llm.Mock{Responses: []string{
		"auto-reply",
		validSummaryJSON,
		"Thanks, confirmed.",
	}}
	mailbox := newFakeMailbox("m1")

	p := &Processor{
		Engine:   newProcessorEngine(t, mock),
		Mailbox:  mailbox,
		AutoSend: true,
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}
	if outcomes[0].SentMessageID == "" {
		t.Error("auto-reply draft should be sent")
	}
	if len(mailbox.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(mailbox.sent))
	}
	if len(mailbox.read) != 1 || mailbox.read[0] != "m1" {
		t.Errorf("read = %v, want message acknowledged after send", mailbox.read)
	}
}

func TestProcessorDoesNotSendReviewDrafts(t *testing.T) {
	mock := &llm.Mock{Responses: []string{
		"draft-for-review",
		validSummaryJSON,
		"Draft with [CHECK: open question].",
	}}
	mailbox := newFakeMailbox("m1")

	p := &Processor{
		Engine:   newProcessorEngine(t, mock),
		Mailbox:  mailbox,
		AutoSend: true,
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}
	if outcomes[0].SentMessageID != "" {
		t.Error("drafts needing review must never be auto-sent")
	}
	if len(mailbox.sent) != 0 {
		t.Errorf("sent = %v", mailbox.sent)
	}
	if outcomes[0].State.Draft == nil {
		t.Error("the draft is still available in the outcome")
	}
}

func TestProcessorEmptyInbox(t *testing.T) {
	mock := &llm.Mock{Responses: []string{"manual"}}
	p := &Processor{
		Engine:  newProcessorEngine(t, mock),
		Mailbox: newFakeMailbox(),
	}

	outcomes, err := p.ProcessUnread(context.Background())
	if err != nil {
		t.Fatalf("ProcessUnread failed: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %v, want none", outcomes)
	}
}
