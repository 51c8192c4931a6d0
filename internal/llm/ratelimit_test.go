package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		rl := newRateLimiter(5)
		defer rl.Close()

		for i := 0; i < 5; i++ {
			assert.True(t, rl.tryAcquire(), "expected token %d to be available", i+1)
		}
		assert.False(t, rl.tryAcquire(), "expected bucket to be empty")
	})

	t.Run("wait returns immediately with tokens available", func(t *testing.T) {
		rl := newRateLimiter(10)
		defer rl.Close()

		start := time.Now()
		err := rl.wait(context.Background())
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("context cancellation unblocks wait", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()

		// Use up the only token.
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- rl.wait(ctx)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.Contains(t, err.Error(), "rate limiter canceled")
		case <-time.After(5 * time.Second):
			t.Fatal("wait did not observe cancellation")
		}
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		rl := newRateLimiter(0)
		defer rl.Close()

		for i := 0; i < 60; i++ {
			require.True(t, rl.tryAcquire())
		}
		assert.False(t, rl.tryAcquire())
	})
}
