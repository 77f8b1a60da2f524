package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// EngineConfig tunes one SyncEngine run.
type EngineConfig struct {
	// Job names the run in logs and the summary.
	Job string

	Filter       domain.EntityFilter
	LookbackDays int
	BatchSize    int
	Overwrite    bool

	// Explicit, when set, bounds every entity's window.
	Explicit *domain.Window

	// ClearProcessFlag resets the entity's process flag after success.
	ClearProcessFlag bool

	// FetchAttempts retries provider timeouts with exponential backoff
	// starting at RetryDelay. Values below 1 mean a single attempt.
	FetchAttempts int
	RetryDelay    time.Duration
}

// EngineConfigFromJob builds an engine config from job settings.
func EngineConfigFromJob(job domain.JobSettings, explicit *domain.Window) EngineConfig {
	return EngineConfig{
		Job:              job.Name,
		Filter:           job.EntityFilter(),
		LookbackDays:     job.LookbackDays,
		BatchSize:        job.BatchSize,
		Overwrite:        job.Overwrite,
		Explicit:         explicit,
		ClearProcessFlag: job.ClearProcessFlag,
		FetchAttempts:    job.FetchAttempts,
		RetryDelay:       job.RetryDelay,
	}
}

// Validate checks the config before any entity is processed.
func (c EngineConfig) Validate() error {
	if c.BatchSize <= 0 {
		return domain.ConfigErrorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LookbackDays <= 0 {
		return domain.ConfigErrorf("lookback days must be positive, got %d", c.LookbackDays)
	}
	if c.Explicit != nil && c.Explicit.IsEmpty() {
		return domain.ConfigErrorf("explicit window %s is empty", c.Explicit)
	}
	return c.Filter.Validate()
}

// Progress is reported after every entity.
type Progress struct {
	Current     string
	Done        int
	Total       int
	RowsWritten int
	Failed      int
}

// rateLimitRecorder is implemented by pacers that back off after throttling.
type rateLimitRecorder interface {
	RecordRateLimit(retryAfter time.Duration)
}

// SyncEngine reconciles provider time series against an observation store
// one entity at a time.
type SyncEngine struct {
	source   driven.SymbolSource
	provider driven.DataProvider
	store    driven.ObservationStore
	pacer    driven.Pacer
	cfg      EngineConfig

	now        func() time.Time
	onProgress func(Progress)

	// calls counts provider calls in the current run, for pacing.
	calls int
}

// NewSyncEngine creates a sync engine. The pacer may be nil to disable pacing.
func NewSyncEngine(
	source driven.SymbolSource,
	provider driven.DataProvider,
	store driven.ObservationStore,
	pacer driven.Pacer,
	cfg EngineConfig,
) *SyncEngine {
	return &SyncEngine{
		source:   source,
		provider: provider,
		store:    store,
		pacer:    pacer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for "today" and write timestamps.
func (e *SyncEngine) WithClock(now func() time.Time) *SyncEngine {
	e.now = now
	return e
}

// OnProgress registers a callback invoked after each entity.
func (e *SyncEngine) OnProgress(fn func(Progress)) *SyncEngine {
	e.onProgress = fn
	return e
}

// Run syncs every entity selected by the filter and returns the summary.
//
// A nil summary with a non-nil error means the run could not start: invalid
// configuration, an unreadable symbol source or an empty entity list.
// Entity failures never abort the run; they are recorded in the summary.
// If ctx is cancelled the summary so far is returned together with ctx.Err().
func (e *SyncEngine) Run(ctx context.Context) (*domain.RunSummary, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	entities, err := e.source.ListEntities(ctx, e.cfg.Filter)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("list entities: %w", err)
	}
	if len(entities) == 0 {
		return nil, domain.ConfigErrorf("no entities match filter %q for job %s", e.cfg.Filter.Mode, e.cfg.Job)
	}

	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		Job:       e.cfg.Job,
		StartedAt: e.now(),
	}
	today := domain.Day(e.now())
	e.calls = 0

	log := logger.WithComponent("engine").WithField("run_id", summary.RunID)
	log.Infof("Starting %s: %d entities via %s", e.cfg.Job, len(entities), e.provider.Name())

	progress := Progress{Total: len(entities)}
	var runErr error
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			runErr = err
			log.Warnf("Run interrupted before %s", entity.Symbol)
			break
		}

		progress.Current = entity.Symbol
		outcome, first, last, interrupted := e.syncEntity(ctx, entity, today)
		if interrupted != nil {
			runErr = interrupted
			log.Warnf("Run interrupted while pacing before %s", entity.Symbol)
			break
		}
		summary.Add(outcome, first, last)

		progress.Done++
		progress.RowsWritten += outcome.Inserted + outcome.Updated
		if outcome.Failed() {
			progress.Failed++
		}
		if e.onProgress != nil {
			e.onProgress(progress)
		}
	}

	summary.FinishedAt = e.now()
	tot := summary.Totals()
	log.Infof("Finished %s: %d inserted, %d updated, %d skipped, %d failed of %d entities",
		e.cfg.Job, tot.Inserted, tot.Updated, tot.Rows, tot.Failed, tot.Entities)
	return summary, runErr
}

// syncEntity runs the per-entity state machine and returns the outcome plus
// the first and last committed trading dates. A non-nil error means ctx ended
// before the entity was fetched and no outcome should be recorded.
func (e *SyncEngine) syncEntity(
	ctx context.Context,
	entity domain.Entity,
	today time.Time,
) (domain.EntityOutcome, *time.Time, *time.Time, error) {
	started := time.Now()
	out := domain.EntityOutcome{Symbol: entity.Symbol, State: domain.StatePending}
	log := logger.WithSymbol(entity.Symbol)

	finish := func() domain.EntityOutcome {
		out.Duration = time.Since(started)
		return out
	}
	fail := func(err error) domain.EntityOutcome {
		out.State = domain.StateFailed
		out.Err = err
		if out.Errored == 0 {
			out.Errored = 1
		}
		log.WithError(err).Error("Entity failed")
		return finish()
	}

	// 1. Window
	window, err := e.window(ctx, entity, today)
	if err != nil {
		return fail(err), nil, nil, nil
	}
	out.Window = &window
	if window.IsEmpty() {
		out.State = domain.StateSkipped
		out.SkipReason = domain.SkipEmptyWindow
		log.Debugf("Skipping: window %s is empty", window)
		return finish(), nil, nil, nil
	}

	// 2. Pace, then fetch
	if e.calls > 0 && e.pacer != nil {
		if err := e.pacer.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, nil, nil, ctxErr
			}
			return fail(fmt.Errorf("pacing: %w", err)), nil, nil, nil
		}
	}
	e.calls++

	out.State = domain.StateFetching
	log.Debugf("Fetching %s %s window %s (%d days)", e.provider.Name(), window.Kind, window, window.Days())
	rows, err := e.fetch(ctx, entity, window)
	switch {
	case domain.IsRateLimited(err):
		out.State = domain.StateSkipped
		out.SkipReason = domain.SkipRateLimited
		e.recordRateLimit(err)
		log.WithError(err).Warn("Skipping: provider rate limited, retry next run")
		return finish(), nil, nil, nil
	case domain.IsNoData(err) || (err == nil && len(rows) == 0):
		out.State = domain.StateSkipped
		out.SkipReason = domain.SkipNoData
		log.Infof("Skipping: no data for window %s", window)
		return finish(), nil, nil, nil
	case err != nil:
		return fail(fmt.Errorf("fetch: %w", err)), nil, nil, nil
	}
	out.Fetched = len(rows)

	// 3-4. Reconcile with batched commits
	out.State = domain.StateReconciling
	first, last, err := e.reconcile(ctx, entity, window, rows, &out)
	if err != nil {
		return fail(err), nil, nil, nil
	}
	out.State = domain.StateCommitted

	// 7. Post-conditions
	if e.cfg.ClearProcessFlag {
		if err := e.source.ClearProcessFlag(ctx, entity.Symbol); err != nil {
			log.WithError(err).Warn("Failed to clear process flag")
		}
	}
	if err := e.source.MarkSynced(ctx, entity.Symbol, e.now()); err != nil {
		log.WithError(err).Debug("Failed to record last-synced time")
	}

	log.Infof("Committed: %d inserted, %d updated, %d skipped in %d commits",
		out.Inserted, out.Updated, out.Skipped, out.Commits)
	return finish(), first, last, nil
}

// window computes the fetch window for one entity.
func (e *SyncEngine) window(ctx context.Context, entity domain.Entity, today time.Time) (domain.Window, error) {
	maxDate, found, err := e.store.MaxTradingDate(ctx, entity.Symbol)
	if err != nil {
		return domain.Window{}, fmt.Errorf("max trading date: %w", err)
	}

	var natural domain.Window
	if found {
		natural = domain.IncrementalWindow(maxDate, today)
	} else {
		natural = domain.BootstrapWindow(today, e.cfg.LookbackDays)
	}

	if e.cfg.Explicit == nil {
		return natural, nil
	}

	// An explicit window may revisit persisted days but never reaches past
	// tomorrow.
	bounds := domain.Window{Start: e.cfg.Explicit.Start, End: natural.End}
	return e.cfg.Explicit.Intersect(bounds), nil
}

// fetch calls the provider, retrying timeouts when configured. Other
// provider errors are returned on the first attempt.
func (e *SyncEngine) fetch(ctx context.Context, entity domain.Entity, window domain.Window) ([]domain.Observation, error) {
	attempts := e.cfg.FetchAttempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(e.cfg.RetryDelay),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	)
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)

	tried := 0
	rows, err := backoff.RetryNotifyWithData(func() ([]domain.Observation, error) {
		tried++
		rows, err := e.provider.Fetch(ctx, entity, window)
		if err != nil && !errors.Is(err, domain.ErrProviderTimeout) {
			return nil, backoff.Permanent(err)
		}
		return rows, err
	}, b, func(err error, next time.Duration) {
		logger.WithSymbol(entity.Symbol).Debugf("Attempt %d timed out, retrying in %v", tried, next)
	})
	if err != nil && tried > 1 && errors.Is(err, domain.ErrProviderTimeout) {
		return nil, fmt.Errorf("after %d attempts: %w", tried, err)
	}
	return rows, err
}

// reconcile writes rows in ascending date order, committing every BatchSize
// written rows and once more at the end. On error the caller marks the entity
// failed; uncommitted rows are rolled back here.
func (e *SyncEngine) reconcile(
	ctx context.Context,
	entity domain.Entity,
	window domain.Window,
	rows []domain.Observation,
	out *domain.EntityOutcome,
) (*time.Time, *time.Time, error) {
	writer, err := e.store.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin: %w", domain.ErrStoreWrite, err)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TradingDate.Before(rows[j].TradingDate) })

	var (
		prev            decimal.NullDecimal
		pendingInserted int
		pendingUpdated  int
		pendingFirst    *time.Time
		pendingLast     *time.Time
		first, last     *time.Time
	)

	commit := func() error {
		if err := writer.Commit(); err != nil {
			if errors.Is(err, domain.ErrStoreWrite) {
				return fmt.Errorf("commit: %w", err)
			}
			return fmt.Errorf("%w: commit: %w", domain.ErrStoreWrite, err)
		}
		out.Commits++
		out.Inserted += pendingInserted
		out.Updated += pendingUpdated
		pendingInserted, pendingUpdated = 0, 0
		if pendingFirst != nil && (first == nil || pendingFirst.Before(*first)) {
			first = pendingFirst
		}
		if pendingLast != nil && (last == nil || pendingLast.After(*last)) {
			last = pendingLast
		}
		pendingFirst, pendingLast = nil, nil
		return nil
	}
	abort := func(err error) (*time.Time, *time.Time, error) {
		if rbErr := writer.Rollback(); rbErr != nil {
			logger.WithSymbol(entity.Symbol).WithError(rbErr).Warn("Rollback failed")
		}
		return nil, nil, err
	}

	sinceCommit := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		row := rows[i]
		row.Symbol = entity.Symbol
		row.TradingDate = domain.Day(row.TradingDate)
		if !window.Contains(row.TradingDate) {
			out.Skipped++
			continue
		}
		if row.CurrencyFrom == "" && row.CurrencyTo == "" {
			row.CurrencyFrom, row.CurrencyTo = entity.CurrencyFrom, entity.CurrencyTo
		}

		previous := prev
		if !previous.Valid {
			previous = row.SnapshotPreviousClose
		}
		row.ApplyPreviousClose(previous)
		prev = decimal.NewNullDecimal(row.Close)
		row.UpdatedAt = e.now()

		key := row.Key()
		if !e.cfg.Overwrite {
			exists, err := writer.Exists(ctx, key)
			if err != nil {
				out.Errored++
				return abort(fmt.Errorf("exists %s: %w", key, err))
			}
			if exists {
				out.Skipped++
				continue
			}
		}

		result, err := writer.Upsert(ctx, row)
		if err != nil {
			out.Errored++
			if !errors.Is(err, domain.ErrStoreWrite) {
				err = fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
			}
			return abort(fmt.Errorf("upsert %s: %w", key, err))
		}
		switch result {
		case domain.Inserted:
			pendingInserted++
		case domain.Updated:
			pendingUpdated++
		}
		d := row.TradingDate
		if pendingFirst == nil {
			pendingFirst = &d
		}
		pendingLast = &d

		sinceCommit++
		if sinceCommit == e.cfg.BatchSize {
			if err := commit(); err != nil {
				return abort(err)
			}
			sinceCommit = 0
		}
	}

	if err := commit(); err != nil {
		return abort(err)
	}
	return first, last, nil
}

func (e *SyncEngine) recordRateLimit(err error) {
	rec, ok := e.pacer.(rateLimitRecorder)
	if !ok {
		return
	}
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		rec.RecordRateLimit(rl.RetryAfter)
		return
	}
	rec.RecordRateLimit(0)
}
