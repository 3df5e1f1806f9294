package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestLogSinkTextFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(&buf, false)

	sink.Record(Event{
		Action:     "email_classified",
		Resource:   "email",
		ResourceID: "msg-001",
		Status:     StatusSuccess,
		Meta:       map[string]interface{}{"classification": "manual"},
	})

	line := buf.String()
	for _, want := range []string{"[email_classified]", "resource=email", "id=msg-001", "status=success", `"classification":"manual"`} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestLogSinkJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(&buf, true)

	sink.Record(Event{
		Action:   "run_finished",
		Resource: "workflow",
		Status:   StatusFailure,
		RunID:    "run-7",
		Step:     3,
	})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["action"] != "run_finished" || decoded["status"] != "failure" {
		t.Errorf("decoded = %v", decoded)
	}
	if decoded["runID"] != "run-7" {
		t.Errorf("runID = %v", decoded["runID"])
	}
}

// recordingSink collects events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestBufferedSinkDeliversInOrder(t *testing.T) {
	downstream := &recordingSink{}
	sink := NewBufferedSink(downstream, 16)

	for i := 0; i < 5; i++ {
		sink.Record(Event{Action: "stage_completed", Step: i + 1})
	}
	sink.Close()

	if downstream.len() != 5 {
		t.Fatalf("delivered %d events, want 5", downstream.len())
	}
	for i, event := range downstream.events {
		if event.Step != i+1 {
			t.Errorf("events[%d].Step = %d, want %d", i, event.Step, i+1)
		}
	}
}

func TestBufferedSinkDropsWhenFull(t *testing.T) {
	// No downstream consumer progress: a nil next still drains, so use a
	// blocking one instead.
	release := make(chan struct{})
	blocking := sinkFunc(func(Event) { <-release })

	sink := NewBufferedSink(blocking, 1)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		sink.Record(Event{Action: "stage_completed"})
	}

	if sink.Dropped() == 0 {
		t.Error("expected drops with a saturated buffer")
	}

	close(release)
	sink.Close()
}

func TestBufferedSinkRecordAfterClose(t *testing.T) {
	downstream := &recordingSink{}
	sink := NewBufferedSink(downstream, 4)
	sink.Close()

	sink.Record(Event{Action: "late"})
	if sink.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", sink.Dropped())
	}
	if downstream.len() != 0 {
		t.Error("late event must not be delivered")
	}

	sink.Close() // double close is a no-op
}

type sinkFunc func(Event)

func (f sinkFunc) Record(event Event) { f(event) }

func TestNilSafeRecord(t *testing.T) {
	// Package-level Record tolerates a nil sink.
	Record(nil, Event{Action: "ignored"})

	var null NullSink
	null.Record(Event{Action: "ignored"})
}
