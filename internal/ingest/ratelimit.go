package ingest

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-chat-id token bucket so a single noisy chat
// cannot starve the ingress path for everyone else.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rps:      rate.Limit(ratePerSecond),
		burst:    burst,
	}
}

// Allow reports whether chatID may proceed right now, consuming a token if
// so.
func (l *RateLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
