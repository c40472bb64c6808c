package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter bounds classifier API calls to a fixed number per sliding
// minute. The classification provider throttles on a per-minute window, so
// the limiter tracks call timestamps over that same window.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	lastRequests      []time.Time
}

// NewRateLimiter returns a limiter allowing rpm calls per sliding minute.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: rpm,
		lastRequests:      make([]time.Time, 0),
	}
}

// Wait blocks until the next classifier call may proceed or the context is
// cancelled. Time spent here counts against the classify timeout held by the
// caller's context.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-time.Minute)

	// Drop timestamps that have left the sliding window.
	validRequests := make([]time.Time, 0)
	for _, t := range r.lastRequests {
		if t.After(windowStart) {
			validRequests = append(validRequests, t)
		}
	}
	r.lastRequests = validRequests

	if len(r.lastRequests) >= r.requestsPerMinute {
		// At capacity: wait for the oldest call to age out of the window.
		oldestRequest := r.lastRequests[0]
		waitUntil := oldestRequest.Add(time.Minute)
		waitDuration := waitUntil.Sub(now)

		if waitDuration > 0 {
			slog.Info("Classifier rate limit reached, waiting",
				"waitSeconds", waitDuration.Seconds(),
				"rpm", r.requestsPerMinute,
			)

			select {
			case <-time.After(waitDuration):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	r.lastRequests = append(r.lastRequests, now)
	return nil
}
