// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"sync"
	"time"

	"github.com/jeranaias/tidedesk/internal/util"
)

const (
	// DefaultMaxRequests is the number of attempts allowed per window.
	DefaultMaxRequests = 10

	// DefaultRateWindow is the trailing window attempts are counted over.
	DefaultRateWindow = 60 * time.Second
)

// =============================================================================
// RATE LIMITER
// =============================================================================

// RateLimiter is a sliding-window-log limiter keyed by identifier. Each
// identifier keeps the timestamps of its accepted requests inside the
// trailing window. Expired timestamps are pruned when the identifier is
// checked; there is no background sweep, so identifiers that are never
// checked again stay in the map until Reset.
type RateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
	clock       util.Clock
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMaxRequests sets the per-window quota.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithWindow sets the trailing window.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithRateClock replaces the time source.
func WithRateClock(c util.Clock) RateLimiterOption {
	return func(r *RateLimiter) { r.clock = c }
}

// NewRateLimiter returns a limiter allowing 10 requests per 60 seconds
// unless overridden.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: DefaultMaxRequests,
		window:      DefaultRateWindow,
		clock:       util.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// CORE OPERATIONS
// =============================================================================

// IsAllowed records a request for id and reports whether it fits in the
// window. Rejected requests are not recorded.
func (r *RateLimiter) IsAllowed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	live := r.pruneLocked(id, now)
	if len(live) >= r.maxRequests {
		return false
	}
	r.requests[id] = append(live, now)
	return true
}

// Remaining reports how many more requests id may make right now.
func (r *RateLimiter) Remaining(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.maxRequests - len(r.pruneLocked(id, r.clock.Now()))
	if n < 0 {
		return 0
	}
	return n
}

// RetryAfter reports how long until id regains one request, or 0 if it
// has quota now.
func (r *RateLimiter) RetryAfter(id string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	live := r.pruneLocked(id, now)
	if len(live) < r.maxRequests {
		return 0
	}
	return live[0].Add(r.window).Sub(now)
}

// Reset forgets every request recorded for id.
func (r *RateLimiter) Reset(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
}

// Tracked returns the number of identifiers currently held.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// pruneLocked keeps timestamps with now-ts < window. Caller holds mu.
func (r *RateLimiter) pruneLocked(id string, now time.Time) []time.Time {
	stamps := r.requests[id]
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= r.window {
		i++
	}
	if i == 0 {
		return stamps
	}
	live := append([]time.Time(nil), stamps[i:]...)
	if len(live) == 0 {
		delete(r.requests, id)
		return nil
	}
	r.requests[id] = live
	return live
}
