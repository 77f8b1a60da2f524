package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

func TestFixed_Waits(t *testing.T) {
	p := NewFixed(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixed_ZeroInterval(t *testing.T) {
	p := NewFixed(0)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestFixed_Cancelled(t *testing.T) {
	p := NewFixed(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_FirstCallImmediate(t *testing.T) {
	l := NewLimiter(60, 1)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// The next token is a second away.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_RecordRateLimit(t *testing.T) {
	l := NewLimiter(6000, 5)
	l.RecordRateLimit(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestLimiter_WaitCancelledDuringBackoff(t *testing.T) {
	l := NewLimiter(60, 1)
	l.RecordRateLimit(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestForJob(t *testing.T) {
	job := domain.DefaultJob("fx", domain.ProviderAlphaVantage, "m", "t")
	job.PacingInterval = 15 * time.Second

	fixed, ok := ForJob(job).(*Fixed)
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, fixed.Interval())

	job.PacingMode = domain.PacingTokenBucket
	job.RequestsPerMinute = 5
	_, ok = ForJob(job).(*Limiter)
	assert.True(t, ok)
}
