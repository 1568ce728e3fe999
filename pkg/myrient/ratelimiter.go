// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token-bucket limiter used to pace requests to a single
// host. Tokens refill continuously at RateLimit.TokensPerSec, up to a
// burst ceiling.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	updated  time.Time
}

// NewRateLimiter builds a RateLimiter from the given rate (tokens/sec) and
// burst capacity, starting full.
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     ratePerSec,
		capacity: float64(burst),
		tokens:   float64(burst),
		updated:  time.Now(),
	}
}

// Take blocks until n tokens are available, refilling as time passes, or
// returns ctx.Err() if ctx is canceled first.
//
// The lock is held across the wait, matching the reference
// implementation's token bucket: callers contend for the bucket one at a
// time rather than racing to claim tokens as they refill.
func (r *RateLimiter) Take(ctx context.Context, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	need := float64(n)
	for {
		now := time.Now()
		elapsed := now.Sub(r.updated).Seconds()
		r.tokens = min(r.capacity, r.tokens+elapsed*r.rate)
		r.updated = now

		if r.tokens >= need {
			r.tokens -= need
			return nil
		}

		wait := time.Duration((need - r.tokens) / r.rate * float64(time.Second))
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
}

// hostRateLimiters lazily creates one RateLimiter per host, all sharing
// the same configured rate and burst.
type hostRateLimiters struct {
	mu       sync.Mutex
	rate     float64
	burst    int
	limiters map[string]*RateLimiter
}

func newHostRateLimiters(cfg RateLimitConfig) *hostRateLimiters {
	return &hostRateLimiters{
		rate:     cfg.TokensPerSec,
		burst:    cfg.Burst,
		limiters: make(map[string]*RateLimiter),
	}
}

func (h *hostRateLimiters) get(host string) *RateLimiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	rl, ok := h.limiters[host]
	if !ok {
		rl = NewRateLimiter(h.rate, h.burst)
		h.limiters[host] = rl
	}
	return rl
}
