package places

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retryWithBackoff calls fn up to maxRetries+1 times. The delay before
// retry n is initialDelay * 2^n with ±25% jitter. A permanentError stops
// the loop and is returned unwrapped.
func retryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}

		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))
		if half := int64(delay) / 2; half > 0 {
			delay = delay - delay/4 + time.Duration(rand.Int64N(half))
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}

	return lastErr
}
