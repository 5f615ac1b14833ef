package utils

import (
	"context"
	"time"
)

// RetryPolicy is a bounded-attempt loop with a fixed inter-attempt delay.
// Sleep is injectable so tests run without wall-clock waits.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration) // defaults to time.Sleep
}

// Do invokes fn up to p.Attempts times. fn returns done=true to stop early
// (success predicate met). The last error is returned if no attempt reported
// done; a nil error with done=false after exhaustion returns nil.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) (done bool, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := fn(attempt)
		if done {
			return nil
		}
		lastErr = err
		if attempt < attempts && p.Delay > 0 {
			sleep(p.Delay)
		}
	}
	return lastErr
}
