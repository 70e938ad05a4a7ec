package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	errDown := errors.New("connection refused")

	t.Run("no wait after the last attempt", func(t *testing.T) {
		calls := 0
		start := time.Now()
		err := retry(context.Background(), 3, 300*time.Millisecond, func(int) error {
			calls++
			return errDown
		})
		elapsed := time.Since(start)

		assert.ErrorIs(t, err, errDown)
		assert.Equal(t, 3, calls)
		assert.GreaterOrEqual(t, elapsed, 600*time.Millisecond)
		assert.Less(t, elapsed, 900*time.Millisecond)
	})

	t.Run("stops on success", func(t *testing.T) {
		var attempts []int
		err := retry(context.Background(), 5, time.Millisecond, func(attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return errDown
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("single attempt does not sleep", func(t *testing.T) {
		start := time.Now()
		err := retry(context.Background(), 1, time.Hour, func(int) error { return errDown })
		assert.ErrorIs(t, err, errDown)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := retry(ctx, 5, time.Hour, func(int) error {
			calls++
			return errDown
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
