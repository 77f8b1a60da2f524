package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrSyncInProgress", ErrSyncInProgress},
		{"ErrSourceUnavailable", ErrSourceUnavailable},
		{"ErrConfig", ErrConfig},
		{"ErrProviderRateLimited", ErrProviderRateLimited},
		{"ErrProviderNoData", ErrProviderNoData},
		{"ErrProviderTimeout", ErrProviderTimeout},
		{"ErrProviderError", ErrProviderError},
		{"ErrStoreWrite", ErrStoreWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Provider: "alphavantage", Message: "5 calls per minute", RetryAfter: time.Minute}

	assert.Equal(t, "alphavantage: rate limit exceeded: 5 calls per minute", err.Error())
	assert.True(t, errors.Is(err, ErrProviderRateLimited))
	assert.False(t, errors.Is(err, ErrProviderNoData))

	wrapped := fmt.Errorf("fetch EURUSD: %w", err)
	assert.True(t, IsRateLimited(wrapped))

	var rl *RateLimitError
	assert.True(t, errors.As(wrapped, &rl))
	assert.Equal(t, time.Minute, rl.RetryAfter)
}

func TestRateLimitError_NoMessage(t *testing.T) {
	err := &RateLimitError{Provider: "yahoo"}
	assert.Equal(t, "yahoo: rate limit exceeded", err.Error())
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "alphavantage", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "alphavantage: API error 500: boom", err.Error())
	assert.True(t, errors.Is(err, ErrProviderError))
	assert.False(t, IsRateLimited(err))

	noStatus := &ProviderError{Provider: "alphavantage", Message: "Invalid API call"}
	assert.Equal(t, "alphavantage: Invalid API call", noStatus.Error())
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(fmt.Errorf("AAPL: %w", ErrProviderNoData)))
	assert.False(t, IsNoData(ErrProviderTimeout))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"source unavailable", fmt.Errorf("list: %w", ErrSourceUnavailable), true},
		{"config", ConfigErrorf("start %s not before end %s", "2024-02-01", "2024-01-01"), true},
		{"rate limited", ErrProviderRateLimited, false},
		{"store write", ErrStoreWrite, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestConfigErrorf(t *testing.T) {
	err := ConfigErrorf("batch size must be positive, got %d", 0)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Equal(t, "invalid configuration: batch size must be positive, got 0", err.Error())
}
