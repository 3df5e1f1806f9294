package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogSink writes audit events to a writer in either a human-readable
// key=value format or JSONL (one JSON object per line).
//
// Example text output:
//
//	[email_classified] resource=email id=msg-001 status=success meta={"classification":"manual"}
//
// Example JSON output:
//
//	{"action":"email_classified","resource":"email","resourceID":"msg-001","status":"success",...}
type LogSink struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogSink creates a LogSink writing to w. A nil writer defaults to
// os.Stdout. When jsonMode is true, events are emitted as JSONL.
func NewLogSink(w io.Writer, jsonMode bool) *LogSink {
	if w == nil {
		w = os.Stdout
	}
	return &LogSink{writer: w, jsonMode: jsonMode}
}

// Record writes the event. Write errors are discarded; auditing is
// best-effort and must not disturb the observed run.
func (l *LogSink) Record(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.recordJSON(event)
		return
	}
	l.recordText(event)
}

func (l *LogSink) recordJSON(event Event) {
	data, err := json.Marshal(struct {
		Action     string                 `json:"action"`
		Resource   string                 `json:"resource"`
		ResourceID string                 `json:"resourceID,omitempty"`
		UserID     string                 `json:"userID,omitempty"`
		Status     string                 `json:"status"`
		RunID      string                 `json:"runID,omitempty"`
		Step       int                    `json:"step,omitempty"`
		Meta       map[string]interface{} `json:"meta,omitempty"`
	}{
		Action:     event.Action,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		UserID:     event.UserID,
		Status:     event.Status,
		RunID:      event.RunID,
		Step:       event.Step,
		Meta:       event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal audit event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogSink) recordText(event Event) {
	fmt.Fprintf(l.writer, "[%s] resource=%s", event.Action, event.Resource)
	if event.ResourceID != "" {
		fmt.Fprintf(l.writer, " id=%s", event.ResourceID)
	}
	if event.UserID != "" {
		fmt.Fprintf(l.writer, " user=%s", event.UserID)
	}
	fmt.Fprintf(l.writer, " status=%s", event.Status)
	if event.RunID != "" {
		fmt.Fprintf(l.writer, " runID=%s step=%d", event.RunID, event.Step)
	}
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
