package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to the per-minute limit", func(t *testing.T) {
		rl := newRateLimiter(10)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 10; i++ {
			require.NoError(t, rl.wait(ctx))
		}
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- rl.wait(ctx)
		}()

		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("wait did not return after cancel")
		}
	})

	t.Run("defaults non-positive limits", func(t *testing.T) {
		rl := newRateLimiter(0)
		assert.Equal(t, 60, rl.limiter.Burst())
	})
}
