// Package ratelimit throttles API callers with one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	limiters map[string]*entry
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*entry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// GetLimiter returns a limiter for the given key (IP, email, session, etc.)
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, exists := rl.limiters[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()

	return e.limiter
}

// Allow checks if the request is allowed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// CheckLimit checks rate limit and returns error if exceeded
func (rl *RateLimiter) CheckLimit(key string) error {
	if !rl.Allow(key) {
		return errors.ErrRateLimitExceeded
	}
	return nil
}

// Cleanup drops limiters idle for longer than the TTL and reports how many went.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
