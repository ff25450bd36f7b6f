package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicySucceedsEventually(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: 0}
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, Delay: 0}
	calls := 0
	wantErr := errors.New("still failing")
	err := policy.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the last error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly MaxAttempts calls, got %d", calls)
	}
}

func TestRetryPolicyZeroAttemptsStillRunsOnce(t *testing.T) {
	policy := RetryPolicy{}
	calls := 0
	if err := policy.Do(context.Background(), func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyStopsOnCancelledContext(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("cancelled context should stop after the first attempt, got %d calls", calls)
	}
}
