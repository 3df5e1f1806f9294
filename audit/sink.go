package audit

// Sink receives audit events from workflow execution and collaborators.
//
// Sinks are strictly best-effort. Implementations must:
//   - never block the caller (buffer, drop, or hand off asynchronously)
//   - never panic; internal failures are swallowed or logged internally
//   - tolerate concurrent calls from multiple runs
//
// Common backends: stdout/file logging, OpenTelemetry spans, buffered
// fan-out to a slower collector.
type Sink interface {
	// Record accepts one audit event. It must return promptly and must not
	// surface errors to the caller; auditing can never abort a run.
	Record(event Event)
}

// Record is a nil-safe helper: it forwards to sink unless sink is nil.
// Callers with optional sinks use this instead of guarding every call site.
func Record(sink Sink, event Event) {
	if sink != nil {
		sink.Record(event)
	}
}
