package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicebridge/internal/infra"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestWithRetry_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("401 unauthorized")
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return infra.Permanent(cause)
	})
	if !errors.Is(err, cause) {
		t.Errorf("expected cause, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return errors.New("still failing")
	})
	if err == nil || err.Error() != "still failing" {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := map[int]bool{200: false, 400: false, 401: false, 429: true, 500: true, 503: true}
	for status, want := range tests {
		if got := infra.IsRetryableHTTPStatus(status); got != want {
			t.Errorf("status %d: got %t, want %t", status, got, want)
		}
	}
}
