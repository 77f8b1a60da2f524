package pacing

import (
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Ensure ForJob matches the factory signature.
var _ driven.PacerFactory = ForJob

// ForJob returns the pacer configured for a job.
func ForJob(job domain.JobSettings) driven.Pacer {
	if job.PacingMode == domain.PacingTokenBucket && job.RequestsPerMinute > 0 {
		logger.Debug("Pacing %s at %.1f requests per minute", job.Name, job.RequestsPerMinute)
		return NewLimiter(job.RequestsPerMinute, 1)
	}
	fixed := NewFixed(job.PacingInterval)
	logger.Debug("Pacing %s with a fixed %s between calls", job.Name, fixed.Interval())
	return fixed
}
