package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, store driver or filter mode.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running for a job.
	ErrSyncInProgress = errors.New("sync in progress")

	// Run-level errors. These abort a run before any entity is processed.

	// ErrSourceUnavailable indicates the symbol master could not be read.
	ErrSourceUnavailable = errors.New("symbol source unavailable")

	// ErrConfig indicates invalid operator configuration, such as an
	// explicit window whose start is not before its end, or a filter that
	// matches no entities.
	ErrConfig = errors.New("invalid configuration")

	// Entity-level errors. These are counted against one entity and the run continues.

	// ErrProviderRateLimited indicates the provider throttled the request.
	// The entity is skipped and picked up again on the next run.
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrProviderNoData indicates the provider has nothing for the window.
	ErrProviderNoData = errors.New("provider returned no data")

	// ErrProviderTimeout indicates a network timeout talking to the provider.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderError indicates a failed or malformed provider response.
	ErrProviderError = errors.New("provider error")

	// ErrStoreWrite indicates a row write or batch commit failed.
	ErrStoreWrite = errors.New("store write failed")
)

// RateLimitError carries the provider's throttling details.
// It matches ErrProviderRateLimited with errors.Is.
type RateLimitError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rate limit exceeded", e.Provider)
	}
	return fmt.Sprintf("%s: rate limit exceeded: %s", e.Provider, e.Message)
}

// Is reports whether target is ErrProviderRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrProviderRateLimited
}

// ProviderError represents an error response from a data provider.
// It matches ErrProviderError with errors.Is.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Is reports whether target is ErrProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

// IsRateLimited checks if the error indicates provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrProviderRateLimited)
}

// IsNoData checks if the error indicates the provider had nothing to return.
func IsNoData(err error) bool {
	return errors.Is(err, ErrProviderNoData)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrConfig)
}

// ConfigErrorf returns a formatted error wrapping ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
