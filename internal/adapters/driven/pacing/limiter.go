package pacing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.Pacer = (*Limiter)(nil)

// defaultBackoff applies when the provider gives no retry hint.
const defaultBackoff = 60 * time.Second

// Limiter provides token-bucket pacing for provider requests.
// It also respects any backoff period set by RecordRateLimit.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewLimiter creates a limiter allowing requestsPerMinute sustained calls
// with the given burst. A burst below 1 is raised to 1.
func NewLimiter(requestsPerMinute float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
func (l *Limiter) Wait(ctx context.Context) error {
	// First, check for backoff from previous rate limit responses
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	// Then wait for the token bucket
	return l.limiter.Wait(ctx)
}

// RecordRateLimit pushes the next allowed call back by retryAfter.
// A non-positive value uses a 60 second backoff.
func (l *Limiter) RecordRateLimit(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = defaultBackoff
	}
	l.retryAt = time.Now().Add(retryAfter)
}
