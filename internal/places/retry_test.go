package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	t.Run("success after failure", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := retryWithBackoff(context.Background(), 2, time.Millisecond, func(int) error {
			calls++
			if calls < 2 {
				return errors.New("flaky")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent stops immediately", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("denied")
		calls := 0
		err := retryWithBackoff(context.Background(), 3, time.Millisecond, func(int) error {
			calls++
			return permanent(cause)
		})
		assert.Same(t, cause, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero retries tries once", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := retryWithBackoff(context.Background(), 0, time.Millisecond, func(int) error {
			calls++
			return errors.New("down")
		})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 1, calls)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryWithBackoff(ctx, 5, time.Hour, func(int) error {
			calls++
			cancel()
			return errors.New("down")
		})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 1, calls)
	})
}
