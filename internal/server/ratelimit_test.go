package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute, perDay int, data int64) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, perDay, data)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_MinuteWindow(t *testing.T) {
	rl, clock := newTestLimiter(2, 0, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("a", 0))

	clock.advance(20 * time.Second)
	err := rl.CheckRateLimit("a", 0)
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "minute", rateErr.Type)
	assert.Equal(t, 2, rateErr.Limit)
	assert.Equal(t, 40*time.Second, rateErr.RetryAfter)

	// Other clients have their own window.
	require.NoError(t, rl.CheckRateLimit("b", 0))

	clock.advance(40 * time.Second)
	assert.NoError(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_DailyRequests(t *testing.T) {
	rl, clock := newTestLimiter(0, 3, 0)

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("a", 0))
	}
	err := rl.CheckRateLimit("a", 0)
	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, "requests", quotaErr.Type)
	assert.Equal(t, int64(3), quotaErr.Used)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), quotaErr.Resets)

	clock.advance(14 * time.Hour)
	assert.NoError(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_DataQuota(t *testing.T) {
	rl, _ := newTestLimiter(0, 0, 1000)

	require.NoError(t, rl.CheckRateLimit("a", 600))
	err := rl.CheckRateLimit("a", 500)
	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, "data", quotaErr.Type)
	assert.Equal(t, int64(1000), quotaErr.Limit)
	assert.Equal(t, int64(600), quotaErr.Used)

	// A smaller upload still fits.
	require.NoError(t, rl.CheckRateLimit("a", 400))
	requests, data := rl.Usage("a")
	assert.Equal(t, 2, requests)
	assert.Equal(t, int64(1000), data)
}

func TestRateLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	rl, clock := newTestLimiter(1, 5, 0)

	require.NoError(t, rl.CheckRateLimit("a", 10))
	for range 3 {
		require.Error(t, rl.CheckRateLimit("a", 10))
	}
	requests, data := rl.Usage("a")
	assert.Equal(t, 1, requests)
	assert.Equal(t, int64(10), data)

	clock.advance(time.Minute)
	assert.NoError(t, rl.CheckRateLimit("a", 10))
}

func TestRateLimiter_Usage(t *testing.T) {
	rl, clock := newTestLimiter(0, 0, 0)

	requests, data := rl.Usage("unknown")
	assert.Zero(t, requests)
	assert.Zero(t, data)

	require.NoError(t, rl.CheckRateLimit("a", 2048))
	requests, data = rl.Usage("a")
	assert.Equal(t, 1, requests)
	assert.Equal(t, int64(2048), data)

	clock.advance(24 * time.Hour)
	requests, data = rl.Usage("a")
	assert.Zero(t, requests)
	assert.Zero(t, data)
}

func TestRateLimitErrors_Messages(t *testing.T) {
	rateErr := &RateLimitError{Type: "minute", Limit: 60, RetryAfter: 30 * time.Second}
	assert.Contains(t, rateErr.Error(), "rate limit exceeded for minute")
	assert.Contains(t, rateErr.Error(), "limit: 60")

	quotaErr := &QuotaExceededError{
		Type:   "data",
		Limit:  100,
		Used:   90,
		Resets: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "quota exceeded for data (used: 90, limit: 100, resets: 2025-03-15T00:00:00Z)", quotaErr.Error())
}
