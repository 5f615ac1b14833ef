package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnDone(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{Attempts: 5, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	err := p.Do(context.Background(), func(attempt int) (bool, error) {
		calls++
		return attempt == 2, errors.New("not yet")
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn ran %d times, want 2", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("slept %v, want one 1s delay between the two attempts", slept)
	}
}

func TestRetryReturnsLastErrorAfterExhaustion(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{Attempts: 3, Delay: 250 * time.Millisecond, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	lastErr := errors.New("attempt 3 failed")
	err := p.Do(context.Background(), func(attempt int) (bool, error) {
		calls++
		if attempt == 3 {
			return false, lastErr
		}
		return false, errors.New("earlier failure")
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("got %v, want the final attempt's error", err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
	if len(slept) != 2 {
		t.Errorf("slept %d times, want 2 (no delay after the last attempt)", len(slept))
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Do(context.Background(), func(int) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn ran %d times, want 1", calls)
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryPolicy{Attempts: 3}.Do(ctx, func(int) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn ran %d times on a dead context, want 0", calls)
	}
}
