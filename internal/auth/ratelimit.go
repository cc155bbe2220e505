package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*limiterEntry
	rate    rate.Limit
	burst   int
	ttl     time.Duration
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst
func NewRateLimiter(perSecond float64, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*limiterEntry),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		ttl:     ttl,
	}
}

// Allow consumes one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.callers[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.callers[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Sweep drops buckets idle for longer than the ttl
func (rl *RateLimiter) Sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.callers {
		if now.Sub(e.lastSeen) > rl.ttl {
			delete(rl.callers, key)
		}
	}
}

// Run sweeps idle buckets until ctx is cancelled
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Sweep(now)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.callers)
}

// Middleware limits per authenticated caller, falling back to client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if caller, ok := CallerFrom(c); ok {
			key = caller.CallerID().String()
		}

		if !rl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "rate limit exceeded, please try again later",
			})
			return
		}
		c.Next()
	}
}
