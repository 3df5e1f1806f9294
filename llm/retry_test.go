package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	flaky := ProviderFunc(func(_ context.Context, _, _ string) (string, error) {
		calls++
		if calls < 3 {
			return "", &Error{Provider: "test", Kind: KindRateLimited}
		}
		return "ok", nil
	})

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	out, err := Retry(flaky, policy).Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	failing := ProviderFunc(func(_ context.Context, _, _ string) (string, error) {
		calls++
		return "", &Error{Provider: "test", Kind: KindTransport}
	})

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	_, err := Retry(failing, policy).Generate(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error = %v, want attempt count in message", err)
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Error("final error should wrap the provider error")
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	blocked := ProviderFunc(func(_ context.Context, _, _ string) (string, error) {
		calls++
		return "", &Error{Provider: "test", Kind: KindSafetyBlocked}
	})

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	_, err := Retry(blocked, policy).Generate(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, safety blocks must not retry", calls)
	}
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failing := ProviderFunc(func(_ context.Context, _, _ string) (string, error) {
		cancel()
		return "", &Error{Provider: "test", Kind: KindTransport}
	})

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}
	start := time.Now()
	_, err := Retry(failing, policy).Generate(ctx, "sys", "user")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation must interrupt the backoff sleep")
	}
}

func TestRetryPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{name: "default is valid", policy: DefaultRetryPolicy()},
		{name: "single attempt", policy: RetryPolicy{MaxAttempts: 1}},
		{name: "zero attempts", policy: RetryPolicy{MaxAttempts: 0}, wantErr: true},
		{name: "cap below base", policy: RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: time.Millisecond}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRetryPolicy) {
				t.Errorf("Validate() = %v, want ErrInvalidRetryPolicy", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestComputeBackoffGrowsAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 400 * time.Millisecond

	for attempt := 0; attempt < 6; attempt++ {
		delay := computeBackoff(attempt, base, maxDelay)
		if delay < 0 {
			t.Fatalf("attempt %d: negative delay %v", attempt, delay)
		}
		// Exponential part is capped; jitter adds at most base.
		if delay > maxDelay+base {
			t.Errorf("attempt %d: delay %v exceeds cap plus jitter", attempt, delay)
		}
	}

	if computeBackoff(0, 0, maxDelay) != 0 {
		t.Error("zero base must disable backoff")
	}
}
