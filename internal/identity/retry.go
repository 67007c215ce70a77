package identity

import (
	"context"
	"strings"
	"time"
)

// Retry defaults: three total attempts, waits of 1s then 2s between them.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = time.Second
)

// RetryConfig controls how provider calls are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	// Zero or negative selects DefaultRetryAttempts.
	MaxAttempts int

	// BaseDelay scales the wait between attempts: the wait after failed
	// attempt n is BaseDelay * n. Zero or negative selects
	// DefaultRetryBaseDelay; retries then wait 1s, 2s, ... by default.
	BaseDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultRetryBaseDelay
	}
	return c
}

// terminalPhrases identify provider failures that no amount of retrying can
// fix: the caller got the password wrong, never confirmed their email, or
// the account does not exist. Matching is a case-sensitive substring test
// against the error message, mirroring how Translate matches provider text.
var terminalPhrases = []string{
	"Invalid login credentials",
	"Email not confirmed",
	"User not found",
}

// Terminal reports whether err is a failure that retrying cannot fix.
// A nil error is not terminal.
func Terminal(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, phrase := range terminalPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// retryDo runs op up to cfg.MaxAttempts times, waiting backoffDelay between
// attempts. Terminal failures return immediately with no further attempts
// and no wait. When every attempt fails, the last error is returned.
// Context cancellation is honored both before each attempt and during the
// backoff wait.
func retryDo(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if Terminal(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		if wait := backoffDelay(cfg.BaseDelay, attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

// backoffDelay returns the wait after failed attempt number attempt
// (1-based). The growth is linear, not exponential: base * attempt, so the
// defaults wait 1s after the first failure and 2s after the second.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}
	return base * time.Duration(attempt)
}
