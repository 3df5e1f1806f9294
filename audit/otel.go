package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanSink records each audit event as an OpenTelemetry span.
//
// Each event becomes an immediately-ended span named after the action, with
// the event fields and metadata attached as attributes. Failure events set
// the span status to error so they surface in trace backends.
//
// Usage:
//
//	tracer := otel.Tracer("deskagent")
//	sink := audit.NewSpanSink(tracer)
type SpanSink struct {
	tracer trace.Tracer
}

// NewSpanSink creates a SpanSink using the given tracer. A nil tracer falls
// back to the globally registered provider.
func NewSpanSink(tracer trace.Tracer) *SpanSink {
	if tracer == nil {
		tracer = otel.Tracer("deskagent")
	}
	return &SpanSink{tracer: tracer}
}

// Record creates and ends a span for the event.
func (s *SpanSink) Record(event Event) {
	_, span := s.tracer.Start(context.Background(), event.Action)
	defer span.End()

	span.SetAttributes(
		attribute.String("deskagent.resource", event.Resource),
		attribute.String("deskagent.resource_id", event.ResourceID),
		attribute.String("deskagent.user_id", event.UserID),
		attribute.String("deskagent.status", event.Status),
		attribute.String("deskagent.run_id", event.RunID),
		attribute.Int("deskagent.step", event.Step),
	)

	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute("deskagent.meta."+key, value))
	}

	if event.Status == StatusFailure {
		msg := event.Action + " failed"
		if errText, ok := event.Meta["error"].(string); ok {
			msg = errText
		}
		span.SetStatus(codes.Error, msg)
		span.RecordError(fmt.Errorf("%s", msg))
	}
}

// Flush forces export of pending spans, if the registered tracer provider
// supports it. Call before shutdown.
func (s *SpanSink) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func metaAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
