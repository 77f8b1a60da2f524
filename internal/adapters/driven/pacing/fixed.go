package pacing

import (
	"context"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// Ensure Fixed implements the interface.
var _ driven.Pacer = (*Fixed)(nil)

// Fixed waits the same interval on every call.
type Fixed struct {
	interval time.Duration
}

// NewFixed creates a fixed-interval pacer. A non-positive interval never waits.
func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{interval: interval}
}

// Interval returns the configured wait.
func (f *Fixed) Interval() time.Duration {
	return f.interval
}

// Wait sleeps for the interval or until ctx is done.
func (f *Fixed) Wait(ctx context.Context) error {
	if f.interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
