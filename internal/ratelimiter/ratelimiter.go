package ratelimiter

import "golang.org/x/time/rate"

// RateLimiter throttles PLDM requests arriving on one adapter connection
// using a token bucket.
//
// A zero rate disables limiting entirely. Otherwise the bucket refills at
// requestsPerSecond and holds at most burst tokens; a burst of zero is
// raised to one so a configured limiter never rejects everything.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter. requestsPerSecond == 0 means unlimited.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter lets every request through.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes one token if available and reports whether the request may
// proceed. It never blocks.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
