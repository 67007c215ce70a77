package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetry keeps test waits negligible while exercising the real loop.
var fastRetry = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

// --- Attempt Counting Tests ---

func TestRetryDo_SucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := retryDo(context.Background(), fastRetry, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryDo_FailTwiceThenSucceed(t *testing.T) {
	attempts := 0
	err := retryDo(context.Background(), fastRetry, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryDo_ExhaustedReturnsLastError(t *testing.T) {
	attempts := 0
	first := errors.New("first failure")
	last := errors.New("last failure")

	err := retryDo(context.Background(), fastRetry, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return first
		}
		return last
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, last) {
		t.Errorf("expected the last error to surface, got: %v", err)
	}
}

func TestRetryDo_TerminalFailsImmediately(t *testing.T) {
	tests := []string{
		"Invalid login credentials",
		"Email not confirmed",
		"User not found",
	}

	for _, message := range tests {
		t.Run(message, func(t *testing.T) {
			attempts := 0
			start := time.Now()
			err := retryDo(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}, func(ctx context.Context) error {
				attempts++
				return &ProviderError{Message: message, Status: 400}
			})
			if err == nil {
				t.Fatal("expected the terminal error to surface")
			}
			if attempts != 1 {
				t.Errorf("expected exactly 1 attempt, got %d", attempts)
			}
			// A terminal failure must not sit through a backoff wait.
			if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
				t.Errorf("terminal failure waited %v before returning", elapsed)
			}
		})
	}
}

func TestRetryDo_TerminalMatchIsCaseSensitive(t *testing.T) {
	attempts := 0
	err := retryDo(context.Background(), fastRetry, func(ctx context.Context) error {
		attempts++
		return errors.New("invalid login credentials") // lower case: not terminal
	})
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("expected all 3 attempts for a non-terminal message, got %d", attempts)
	}
}

func TestRetryDo_DefaultsApplied(t *testing.T) {
	attempts := 0
	// MaxAttempts is left zero so the default of three applies. BaseDelay
	// stays explicit because its default is a full second.
	err := retryDo(context.Background(), RetryConfig{BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < DefaultRetryAttempts {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != DefaultRetryAttempts {
		t.Errorf("expected %d attempts from defaults, got %d", DefaultRetryAttempts, attempts)
	}
}

// --- Cancellation Tests ---

func TestRetryDo_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := retryDo(ctx, fastRetry, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if attempts != 0 {
		t.Errorf("expected no attempts after cancellation, got %d", attempts)
	}
}

func TestRetryDo_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- retryDo(ctx, RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Second}, func(ctx context.Context) error {
			attempts++
			return errors.New("transient")
		})
	}()

	// Let the first attempt fail and enter its 10s backoff, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

// --- Backoff Schedule Tests ---

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"first failure", time.Second, 1, time.Second},
		{"second failure", time.Second, 2, 2 * time.Second},
		{"third failure", time.Second, 3, 3 * time.Second},
		{"scaled base", 250 * time.Millisecond, 2, 500 * time.Millisecond},
		{"zero base", 0, 2, 0},
		{"zero attempt", time.Second, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffDelay(tt.base, tt.attempt); got != tt.want {
				t.Errorf("backoffDelay(%v, %d) = %v, want %v", tt.base, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryDo_WaitsBetweenAttempts(t *testing.T) {
	base := 20 * time.Millisecond
	var gaps []time.Duration
	var last time.Time

	_ = retryDo(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: base}, func(ctx context.Context) error {
		now := time.Now()
		if !last.IsZero() {
			gaps = append(gaps, now.Sub(last))
		}
		last = now
		return errors.New("transient")
	})

	if len(gaps) != 2 {
		t.Fatalf("expected 2 waits for 3 attempts, got %d", len(gaps))
	}
	// Wait before attempt n+1 is base * n: 20ms then 40ms. Timers only
	// guarantee a lower bound, so assert >= and leave headroom unchecked.
	if gaps[0] < base {
		t.Errorf("first wait %v shorter than base %v", gaps[0], base)
	}
	if gaps[1] < 2*base {
		t.Errorf("second wait %v shorter than 2x base %v", gaps[1], 2*base)
	}
}

// --- Terminal Classification Tests ---

func TestTerminal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid credentials", &ProviderError{Message: "Invalid login credentials"}, true},
		{"unconfirmed email", &ProviderError{Message: "Email not confirmed"}, true},
		{"missing user", &ProviderError{Message: "User not found"}, true},
		{"embedded phrase", errors.New("provider said: User not found (id 7)"), true},
		{"rate limited", &ProviderError{Message: "Too many requests"}, false},
		{"weak password", &ProviderError{Message: "Password should be at least 6 characters"}, false},
		{"network", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Terminal(tt.err); got != tt.want {
				t.Errorf("Terminal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
