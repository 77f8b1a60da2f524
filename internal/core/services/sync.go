package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator resolves jobs into stores, providers and pacers and runs
// a SyncEngine over them.
type SyncOrchestrator struct {
	settings  domain.Settings
	stores    driven.StoreProvider
	providers driven.ProviderFactory
	pacers    driven.PacerFactory
	now       func() time.Time

	// Status tracking
	mu         sync.RWMutex
	activeRuns map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
// pacers may be nil, in which case runs are not paced.
func NewSyncOrchestrator(
	settings domain.Settings,
	stores driven.StoreProvider,
	providers driven.ProviderFactory,
	pacers driven.PacerFactory,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		settings:   settings,
		stores:     stores,
		providers:  providers,
		pacers:     pacers,
		now:        time.Now,
		activeRuns: make(map[string]*driving.SyncStatus),
	}
}

// WithClock overrides the clock passed to engines.
func (o *SyncOrchestrator) WithClock(now func() time.Time) *SyncOrchestrator {
	o.now = now
	return o
}

// Sync runs one observations job.
func (o *SyncOrchestrator) Sync(ctx context.Context, name string, opts driving.RunOptions) (*domain.RunSummary, error) {
	// 1. Resolve and validate the job
	job, err := resolveJob(o.settings, name, opts)
	if err != nil {
		return nil, err
	}
	if job.Kind != domain.JobObservations {
		return nil, domain.ConfigErrorf("job %s syncs %s, not observations", job.Name, job.Kind)
	}
	explicit, err := jobWindow(job, o.now())
	if err != nil {
		return nil, err
	}

	// 2. Claim the job
	if !o.claim(job.Name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, job.Name)
	}
	defer o.clearStatus(job.Name)

	// 3. Prepare store and provider
	if o.providers == nil {
		return nil, fmt.Errorf("create provider: provider factory not configured")
	}
	store := o.stores.ObservationStore(job)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	provider, err := o.providers.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	var pacer driven.Pacer
	if o.pacers != nil {
		pacer = o.pacers(job)
	}

	// 4. Run the engine
	logger.Section("Sync " + job.Name)
	engine := NewSyncEngine(o.stores.SymbolSource(job), provider, store, pacer, EngineConfigFromJob(job, explicit)).
		WithClock(o.now).
		OnProgress(func(p Progress) { o.updateStatus(job.Name, p) })

	return engine.Run(ctx)
}

// Status returns live status for a job.
func (o *SyncOrchestrator) Status(_ context.Context, job string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeRuns[job]; ok {
		// Return a copy to avoid race conditions
		cp := *status
		return &cp, nil
	}

	// Not running - return idle status
	return &driving.SyncStatus{Job: job, Running: false}, nil
}

// Jobs lists the configured jobs.
func (o *SyncOrchestrator) Jobs() []domain.JobSettings {
	jobs := make([]domain.JobSettings, len(o.settings.Jobs))
	copy(jobs, o.settings.Jobs)
	return jobs
}

// claim marks a job as running. Returns false if it already is.
func (o *SyncOrchestrator) claim(job string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.activeRuns[job]; running {
		return false
	}
	o.activeRuns[job] = &driving.SyncStatus{Job: job, Running: true}
	return true
}

// updateStatus records engine progress for a job.
func (o *SyncOrchestrator) updateStatus(job string, p Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status, ok := o.activeRuns[job]
	if !ok {
		return
	}
	status.Current = p.Current
	status.EntitiesDone = p.Done
	status.EntitiesTotal = p.Total
	status.RowsWritten = p.RowsWritten
	status.ErrorCount = p.Failed
}

// clearStatus removes the status for a job.
func (o *SyncOrchestrator) clearStatus(job string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRuns, job)
}

// resolveJob looks up a job and applies per-run overrides.
func resolveJob(settings domain.Settings, name string, opts driving.RunOptions) (domain.JobSettings, error) {
	job, err := settings.Job(name)
	if err != nil {
		return domain.JobSettings{}, err
	}

	if symbols := domain.NormalizeSymbols(opts.Symbols); len(symbols) > 0 {
		job.Filter = domain.FilterSymbols
		job.Symbols = symbols
	}
	if opts.StartDate != "" || opts.EndDate != "" {
		job.StartDate = opts.StartDate
		job.EndDate = opts.EndDate
		job.PreviousDayOnly = false
	}
	if opts.Overwrite != nil {
		job.Overwrite = *opts.Overwrite
	}

	if err := job.Validate(); err != nil {
		return domain.JobSettings{}, err
	}
	return job, nil
}

// jobWindow returns the explicit window for a job, if any.
func jobWindow(job domain.JobSettings, now time.Time) (*domain.Window, error) {
	if job.PreviousDayOnly {
		prev := domain.PreviousTradingDay(now)
		w, err := domain.NewWindow(prev, prev.AddDate(0, 0, 1), domain.WindowExplicit)
		if err != nil {
			return nil, err
		}
		return &w, nil
	}
	return job.ExplicitWindow()
}
