package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Ensure FundamentalsSync implements the interface.
var _ driving.FundamentalsService = (*FundamentalsSync)(nil)

// FundamentalsSync stores one fundamentals snapshot per entity per day.
type FundamentalsSync struct {
	settings  domain.Settings
	stores    driven.StoreProvider
	providers driven.ProviderFactory
	pacers    driven.PacerFactory
	now       func() time.Time
}

// NewFundamentalsSync creates a fundamentals sync service.
func NewFundamentalsSync(
	settings domain.Settings,
	stores driven.StoreProvider,
	providers driven.ProviderFactory,
	pacers driven.PacerFactory,
) *FundamentalsSync {
	return &FundamentalsSync{
		settings:  settings,
		stores:    stores,
		providers: providers,
		pacers:    pacers,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for the fetch date.
func (s *FundamentalsSync) WithClock(now func() time.Time) *FundamentalsSync {
	s.now = now
	return s
}

// Sync runs a fundamentals job. Per-entity failures are recorded in the
// summary; only setup failures return an error.
func (s *FundamentalsSync) Sync(ctx context.Context, name string, opts driving.RunOptions) (*domain.RunSummary, error) {
	job, err := resolveJob(s.settings, name, opts)
	if err != nil {
		return nil, err
	}
	if job.Kind != domain.JobFundamentals {
		return nil, domain.ConfigErrorf("job %s syncs %s, not fundamentals", job.Name, job.Kind)
	}

	source := s.stores.SymbolSource(job)
	entities, err := source.ListEntities(ctx, job.EntityFilter())
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	if len(entities) == 0 {
		return nil, domain.ConfigErrorf("no entities match filter %q for job %s", job.Filter, job.Name)
	}

	store := s.stores.FundamentalsStore(job)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	provider, err := s.providers.CreateFundamentals(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	var pacer driven.Pacer
	if s.pacers != nil {
		pacer = s.pacers(job)
	}

	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		Job:       job.Name,
		StartedAt: s.now(),
	}
	today := domain.Day(s.now())
	logger.WithComponent("fundamentals").Infof("Starting %s: %d entities", job.Name, len(entities))

	var runErr error
	for i, entity := range entities {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if i > 0 && pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}

		out := s.syncOne(ctx, provider, store, source, job, entity, today)
		if out.State == domain.StateCommitted {
			summary.Add(out, &today, &today)
		} else {
			summary.Add(out, nil, nil)
		}
	}

	summary.FinishedAt = s.now()
	tot := summary.Totals()
	logger.Info("Finished %s: %d inserted, %d updated, %d failed", job.Name, tot.Inserted, tot.Updated, tot.Failed)
	return summary, runErr
}

func (s *FundamentalsSync) syncOne(
	ctx context.Context,
	provider driven.FundamentalsProvider,
	store driven.FundamentalsStore,
	source driven.SymbolSource,
	job domain.JobSettings,
	entity domain.Entity,
	today time.Time,
) (out domain.EntityOutcome) {
	started := time.Now()
	out = domain.EntityOutcome{Symbol: entity.Symbol, State: domain.StateFetching}
	log := logger.WithSymbol(entity.Symbol)
	defer func() { out.Duration = time.Since(started) }()

	f, err := provider.FetchFundamentals(ctx, entity)
	switch {
	case domain.IsRateLimited(err):
		out.State = domain.StateSkipped
		out.SkipReason = domain.SkipRateLimited
		log.WithError(err).Warn("Skipping: provider rate limited, retry next run")
		return out
	case domain.IsNoData(err) || (err == nil && f == nil):
		out.State = domain.StateSkipped
		out.SkipReason = domain.SkipNoData
		log.Info("Skipping: no fundamentals available")
		return out
	case err != nil:
		out.State = domain.StateFailed
		out.Errored = 1
		out.Err = fmt.Errorf("fetch: %w", err)
		log.WithError(err).Error("Entity failed")
		return out
	}
	out.Fetched = 1

	f.Symbol = entity.Symbol
	f.FetchDate = today
	f.UpdatedAt = s.now()

	result, err := store.Upsert(ctx, *f)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreWrite) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
		}
		out.State = domain.StateFailed
		out.Errored = 1
		out.Err = err
		log.WithError(err).Error("Entity failed")
		return out
	}
	switch result {
	case domain.Inserted:
		out.Inserted = 1
	case domain.Updated:
		out.Updated = 1
	}
	out.Commits = 1
	out.State = domain.StateCommitted

	if job.ClearProcessFlag {
		if err := source.ClearProcessFlag(ctx, entity.Symbol); err != nil {
			log.WithError(err).Warn("Failed to clear process flag")
		}
	}
	if err := source.MarkSynced(ctx, entity.Symbol, s.now()); err != nil {
		log.WithError(err).Debug("Failed to record last-synced time")
	}
	log.Debugf("Stored fundamentals (%s)", result)
	return out
}
