package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// RateLimiter implements a per-client fixed window counter. Intended for the
// login endpoint; it is in-memory and resets on restart.
type RateLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	now      func() time.Time
	counters map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

// NewRateLimiter builds a limiter allowing limit requests per window per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		window:   window,
		limit:    limit,
		now:      time.Now,
		counters: make(map[string]*rateWindow),
	}
}

// Allow reports whether the client may proceed, consuming one slot if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win, ok := rl.counters[key]
	if !ok || now.Sub(win.start) >= rl.window {
		rl.counters[key] = &rateWindow{start: now, count: 1}
		rl.pruneLocked(now)
		return true
	}
	if win.count >= rl.limit {
		return false
	}
	win.count++
	return true
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, win := range rl.counters {
		if now.Sub(win.start) >= rl.window {
			delete(rl.counters, key)
		}
	}
}

// Middleware enforces the limit keyed by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			response.Error(c, apperrors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
