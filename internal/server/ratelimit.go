package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily upload quotas.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	maxRequestsPerDay int
	maxDataPerDay     int64 // in bytes

	clients map[string]*clientUsage
	now     func() time.Time
}

// clientUsage tracks one client's fixed minute window and calendar day.
type clientUsage struct {
	minuteStart    time.Time
	requestsMinute int

	day           time.Time
	requestsToday int
	dataToday     int64
}

// NewRateLimiter creates a limiter. A zero limit is not enforced.
func NewRateLimiter(requestsPerMinute, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits one request of dataSize bytes from client, or
// returns a *RateLimitError or *QuotaExceededError. Rejected requests are
// not counted.
func (rl *RateLimiter) CheckRateLimit(client string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.usage(client, now)

	if rl.requestsPerMinute > 0 && u.requestsMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: u.minuteStart.Add(time.Minute).Sub(now),
		}
	}

	resets := u.day.AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && u.requestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(u.requestsToday), Resets: resets}
	}
	if rl.maxDataPerDay > 0 && u.dataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: u.dataToday, Resets: resets}
	}

	u.requestsMinute++
	u.requestsToday++
	u.dataToday += dataSize
	return nil
}

// usage returns client's counters with expired windows cleared.
func (rl *RateLimiter) usage(client string, now time.Time) *clientUsage {
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{minuteStart: now, day: startOfDay(now)}
		rl.clients[client] = u
	}
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart = now
		u.requestsMinute = 0
	}
	if today := startOfDay(now); !today.Equal(u.day) {
		u.day = today
		u.requestsToday = 0
		u.dataToday = 0
	}
	return u
}

// Usage returns the requests and bytes client has used today.
func (rl *RateLimiter) Usage(client string) (int, int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	u, ok := rl.clients[client]
	if !ok || !startOfDay(rl.now()).Equal(u.day) {
		return 0, 0
	}
	return u.requestsToday, u.dataToday
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
