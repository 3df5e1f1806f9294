package llm

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retries for transient provider failures.
//
// The delay before attempt n is min(BaseDelay * 2^n, MaxDelay) plus jitter
// drawn from [0, BaseDelay), which avoids synchronized retry storms when
// many runs hit the same rate limit together.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means no cap.
	MaxDelay time.Duration

	// Retryable overrides the retry decision. When nil, llm.Retryable is
	// used: everything but safety blocks retries.
	Retryable func(error) bool
}

// ErrInvalidRetryPolicy is returned by Validate for impossible configurations.
var ErrInvalidRetryPolicy = fmt.Errorf("invalid retry policy")

// Validate checks the policy's constraints.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if p.MaxDelay > 0 && p.BaseDelay > 0 && p.MaxDelay < p.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// DefaultRetryPolicy is a reasonable production policy: three attempts,
// 500ms base delay, 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Retry wraps a provider with the given retry policy.
//
// Retrying lives here at the provider boundary, not in the workflow engine:
// the engine aborts a run on the first stage failure and leaves recovery to
// the provider stack and the caller.
func Retry(p Provider, policy RetryPolicy) Provider {
	return &retryProvider{next: p, policy: policy}
}

type retryProvider struct {
	next   Provider
	policy RetryPolicy
}

func (r *retryProvider) Generate(ctx context.Context, system, user string) (string, error) {
	retryable := r.policy.Retryable
	if retryable == nil {
		retryable = Retryable
	}

	attempts := r.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := computeBackoff(attempt-1, r.policy.BaseDelay, r.policy.MaxDelay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := r.next.Generate(ctx, system, user)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("provider failed after %d attempts: %w", attempts, lastErr)
}

// computeBackoff returns min(base * 2^attempt, maxDelay) + jitter(0, base).
// attempt is zero-based: the delay before the first retry uses attempt 0.
func computeBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	// Guard the shift; beyond 62 the multiplication overflows anyway.
	if attempt > 30 {
		attempt = 30
	}
	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	// Jitter for retry timing, not security.
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404
	return delay + jitter
}
