package pipeline

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of decoding provider text into a typed record.
//
// Construction never fails: a decode error produces a Degraded result
// carrying the caller's fallback value, a non-empty reason, and the raw
// text for diagnostics. Degraded results are valid inputs to later stages;
// a run continues with defaults rather than aborting on malformed output.
type Result[T any] struct {
	// Value is the decoded record, or the fallback when Degraded.
	Value T

	// Degraded is true when decoding failed and Value is the fallback.
	Degraded bool

	// Reason explains the degradation. Non-empty iff Degraded.
	Reason string

	// Raw is the original provider text, kept for diagnostics.
	Raw string
}

// Ok reports whether the record decoded cleanly.
func (r Result[T]) Ok() bool {
	return !r.Degraded
}

// Validator lets record types declare required-field constraints checked
// after a syntactically successful decode.
type Validator interface {
	Validate() error
}

// Decode strictly decodes provider text into T.
//
// Provider output is hostile input: models wrap JSON in markdown fences,
// prepend prose, or return something else entirely. Decode therefore:
//
//  1. strips markdown code fences
//  2. attempts a JSON decode of the remaining text
//  3. on syntax failure, retries on the first embedded JSON object or array
//  4. runs T's Validate method when it has one
//
// Any failure yields Degraded with the fallback value. The text is never
// evaluated or executed; it is data, only ever fed to the JSON decoder.
func Decode[T any](raw string, fallback T) Result[T] {
	text := stripFences(raw)
	if text == "" {
		return degraded(fallback, "empty response", raw)
	}

	var value T
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		embedded, ok := extractJSON(text)
		if !ok {
			return degraded(fallback, "invalid JSON: "+err.Error(), raw)
		}
		var zero T
		value = zero
		if err := json.Unmarshal([]byte(embedded), &value); err != nil {
			return degraded(fallback, "invalid JSON: "+err.Error(), raw)
		}
	}

	if v, ok := any(value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return degraded(fallback, "validation failed: "+err.Error(), raw)
		}
	} else if v, ok := any(&value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return degraded(fallback, "validation failed: "+err.Error(), raw)
		}
	}

	return Result[T]{Value: value, Raw: raw}
}

func degraded[T any](fallback T, reason, raw string) Result[T] {
	return Result[T]{Value: fallback, Degraded: true, Reason: reason, Raw: raw}
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractJSON finds the first top-level JSON object or array embedded in
// surrounding prose. Returns false when neither delimiter pair exists.
func extractJSON(text string) (string, bool) {
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start, closer := objStart, "}"
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start, closer = arrStart, "]"
	}
	if start == -1 {
		return "", false
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}
