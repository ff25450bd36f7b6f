package core

import (
	"context"
	"time"
)

// RetryPolicy is a fixed-delay retry contract: up to MaxAttempts calls with
// Delay between them. No backoff; the upstream service rate-limits are short
// lived and a fixed pause has proven sufficient.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do runs fn until it succeeds or attempts are exhausted, sleeping the fixed
// delay between attempts. The last error is returned. Context cancellation
// between attempts stops the loop early.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return lastErr
}
