package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUnderCapacity(t *testing.T) {
	limiter := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background()))
		require.Less(t, time.Since(start), time.Second)
	}
}

func TestRateLimiterHonorsContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
