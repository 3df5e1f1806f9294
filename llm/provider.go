// Package llm defines the text-generation provider contract consumed by the
// workflow stages, plus the shared error taxonomy and retry decorator.
//
// Adapters for specific vendors live in the subpackages (google, openai,
// anthropic). The rest of the module depends only on the Provider interface,
// so providers are injected at construction time rather than reached through
// package-level singletons.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Provider turns a prompt into generated text.
//
// Implementations must respect context cancellation and deadlines, and
// should translate vendor errors through Wrap so callers can distinguish
// retryable failures from permanent ones.
type Provider interface {
	// Generate sends a system instruction and user content to the model and
	// returns the raw generated text. The text is opaque: callers parse it
	// with pipeline.Decode and must not assume it is well-formed.
	Generate(ctx context.Context, system, user string) (string, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, system, user string) (string, error)

// Generate implements Provider.
func (f ProviderFunc) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Kind classifies a provider failure.
type Kind int

const (
	// KindTransport covers network and unclassified upstream failures.
	KindTransport Kind = iota

	// KindRateLimited means the vendor rejected the call with a rate limit.
	KindRateLimited

	// KindTimeout means the call exceeded its deadline or was cut off.
	KindTimeout

	// KindSafetyBlocked means the vendor's safety filter refused to
	// generate. Retrying the identical prompt will not help.
	KindSafetyBlocked
)

// String returns the snake_case name used in logs and audit metadata.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindSafetyBlocked:
		return "safety_blocked"
	default:
		return "transport"
	}
}

// Error is the common provider failure type.
type Error struct {
	// Provider names the adapter that failed, e.g. "google".
	Provider string

	// Kind classifies the failure for retry decisions.
	Kind Kind

	// Message is a short human-readable description.
	Message string

	// Err is the underlying vendor or context error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Provider + ": " + e.Kind.String() + ": " + e.Message
	}
	return e.Provider + ": " + e.Kind.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same call may succeed.
// Safety blocks are deterministic and never retryable.
func (e *Error) Retryable() bool {
	return e.Kind != KindSafetyBlocked
}

// Retryable reports whether err is a retryable provider failure.
// Non-provider errors are treated as not retryable.
func Retryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// Wrap classifies a raw adapter or context error into an *Error.
//
// Classification rules, in order:
//   - context deadline → KindTimeout (retryable; per-stage timeouts are
//     treated like any other transient provider failure)
//   - context cancellation passes through unchanged, so callers can
//     distinguish a cancelled run from a failed provider
//   - 429 / rate-limit text → KindRateLimited
//   - timeout text → KindTimeout
//   - safety/blocked text → KindSafetyBlocked
//   - everything else → KindTransport
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: provider, Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var pe *Error
	if errors.As(err, &pe) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"):
		return &Error{Provider: provider, Kind: KindRateLimited, Message: err.Error(), Err: err}
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"):
		return &Error{Provider: provider, Kind: KindTimeout, Message: err.Error(), Err: err}
	case strings.Contains(msg, "safety"),
		strings.Contains(msg, "blocked"):
		return &Error{Provider: provider, Kind: KindSafetyBlocked, Message: err.Error(), Err: err}
	default:
		return &Error{Provider: provider, Kind: KindTransport, Message: err.Error(), Err: err}
	}
}
