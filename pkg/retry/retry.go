package retry

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping between attempts with exponential
// backoff: base doubles after every failed attempt. A cancelled context stops
// the loop; no attempt is started after cancellation. The last error is
// returned when all attempts fail.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Backoff(attempt, base)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// Backoff returns the delay before the given attempt (1-based for the first
// retry): base * 2^(attempt-1).
func Backoff(attempt int, base time.Duration) time.Duration {
	return base << uint(attempt-1)
}
