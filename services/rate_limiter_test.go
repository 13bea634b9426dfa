package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewMemoryRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		decision := limiter.Check("u1")
		require.True(t, decision.Allowed)
		assert.Equal(t, 2-i, decision.Remaining)
	}
}

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	limiter := NewMemoryRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Check("u1").Allowed)
	}

	decision := limiter.Check("u1")
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.True(t, decision.ResetAt.After(time.Now()), "denied call must report a future reset time")
}

func TestRateLimiterIsolatesIdentifiers(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)

	require.True(t, limiter.Check("u1").Allowed)
	assert.False(t, limiter.Check("u1").Allowed)
	assert.True(t, limiter.Check("u2").Allowed)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, 10*time.Millisecond)

	require.True(t, limiter.Check("u1").Allowed)
	require.False(t, limiter.Check("u1").Allowed)

	time.Sleep(15 * time.Millisecond)
	assert.True(t, limiter.Check("u1").Allowed, "a fresh window starts once the previous one ends")
}
