package common

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by callers that wrap Allow into an error-
// returning guard.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter caps how often a given address may invoke a rate-limited
// operation, using a token bucket per address rather than the counting-window
// shape Quota/CheckQuota use. It complements Quota for operations (borrow,
// liquidate, validator-list update pipeline) whose cost isn't well modeled by
// a per-epoch NHB cap but still needs a burst ceiling.
type RateLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter allowing eventsPerSecond sustained events
// per address with up to burst events in a single instant.
func NewRateLimiter(eventsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     rate.Limit(eventsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) limiterFor(addr []byte) *rate.Limiter {
	key := string(addr)
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burst)
		r.limiters[key] = l
	}
	return l
}

// Allow reports whether addr may perform one more event right now, consuming
// a token from its bucket if so.
func (r *RateLimiter) Allow(addr []byte) bool {
	return r.limiterFor(addr).Allow()
}

// CheckRateLimit wraps Allow with the package's usual error-return
// convention, matching CheckQuota's signature style.
func (r *RateLimiter) CheckRateLimit(addr []byte) error {
	if !r.Allow(addr) {
		return ErrRateLimited
	}
	return nil
}
