package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tickersync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
)

// --- Mock implementations for engine testing ---

type fetchCall struct {
	symbol string
	window domain.Window
}

// engineMockProvider implements driven.DataProvider for testing.
// Rows are filtered to the requested window like a real provider.
type engineMockProvider struct {
	mu    stdsync.Mutex
	data  map[string][]domain.Observation
	errs  map[string][]error
	calls []fetchCall
}

func newEngineMockProvider() *engineMockProvider {
	return &engineMockProvider{
		data: make(map[string][]domain.Observation),
		errs: make(map[string][]error),
	}
}

func (m *engineMockProvider) Name() string { return "mock" }

func (m *engineMockProvider) Fetch(_ context.Context, entity domain.Entity, window domain.Window) ([]domain.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fetchCall{symbol: entity.Symbol, window: window})

	if queue := m.errs[entity.Symbol]; len(queue) > 0 {
		err := queue[0]
		m.errs[entity.Symbol] = queue[1:]
		if err != nil {
			return nil, err
		}
	}

	var out []domain.Observation
	for _, o := range m.data[entity.Symbol] {
		if window.Contains(o.TradingDate) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *engineMockProvider) failNext(symbol string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = append(m.errs[symbol], errs...)
}

func (m *engineMockProvider) callsFor(symbol string) []fetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []fetchCall
	for _, c := range m.calls {
		if c.symbol == symbol {
			out = append(out, c)
		}
	}
	return out
}

// countingPacer implements driven.Pacer and records waits.
type countingPacer struct {
	waits       int
	rateLimited []time.Duration
	err         error

	// cancel, when set, is called on Wait to simulate an interrupt.
	cancel context.CancelFunc
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.cancel != nil {
		p.cancel()
		return ctx.Err()
	}
	return p.err
}

func (p *countingPacer) RecordRateLimit(d time.Duration) {
	p.rateLimited = append(p.rateLimited, d)
}

var _ driven.Pacer = (*countingPacer)(nil)

// --- Helpers ---

var testToday = time.Date(2024, 1, 8, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testToday }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func series(symbol string, start time.Time, closes ...string) []domain.Observation {
	out := make([]domain.Observation, 0, len(closes))
	for i, c := range closes {
		px := decimal.RequireFromString(c)
		out = append(out, domain.Observation{
			Symbol:      symbol,
			TradingDate: start.AddDate(0, 0, i),
			Open:        px,
			High:        px,
			Low:         px,
			Close:       px,
		})
	}
	return out
}

func testConfig() EngineConfig {
	return EngineConfig{
		Job:           "test",
		Filter:        domain.EntityFilter{Mode: domain.FilterActive},
		LookbackDays:  5,
		BatchSize:     50,
		Overwrite:     true,
		FetchAttempts: 1,
	}
}

type engineFixture struct {
	source   *memory.SymbolSource
	store    *memory.ObservationStore
	provider *engineMockProvider
	pacer    *countingPacer
}

func newEngineFixture(entities ...domain.Entity) *engineFixture {
	return &engineFixture{
		source:   memory.NewSymbolSource(entities...),
		store:    memory.NewObservationStore(),
		provider: newEngineMockProvider(),
		pacer:    &countingPacer{},
	}
}

func (f *engineFixture) engine(cfg EngineConfig) *SyncEngine {
	return NewSyncEngine(f.source, f.provider, f.store, f.pacer, cfg).WithClock(fixedClock)
}

func eurusd() domain.Entity {
	return domain.Entity{Symbol: "EURUSD", ProviderSymbol: "EURUSD=X", CurrencyFrom: "EUR", CurrencyTo: "USD", Active: true}
}

// --- Tests ---

func TestEngine_Scenario_EURUSDBootstrap(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.data["EURUSD"] = series("EURUSD", day(2024, 1, 3), "1.10", "1.11", "1.09", "1.12", "1.12")

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, ok := summary.Outcome("EURUSD")
	require.True(t, ok)
	assert.Equal(t, domain.StateCommitted, out.State)
	assert.Equal(t, 5, out.Inserted)
	assert.Equal(t, 0, out.Updated)

	rows := f.store.Rows("EURUSD")
	require.Len(t, rows, 5)

	assert.False(t, rows[0].Change.Valid, "first row has no previous close")
	assert.True(t, rows[1].Change.Decimal.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, rows[2].Change.Decimal.Equal(decimal.RequireFromString("-0.02")))
	require.True(t, rows[4].Change.Valid)
	assert.True(t, rows[4].Change.Decimal.IsZero())
	assert.True(t, rows[4].PreviousClose.Decimal.Equal(decimal.RequireFromString("1.12")))

	// Currency metadata comes from the entity.
	assert.Equal(t, "EUR", rows[0].CurrencyFrom)
	assert.Equal(t, "USD", rows[0].CurrencyTo)
	assert.Equal(t, testToday, rows[0].UpdatedAt)

	require.NotNil(t, summary.FirstDate)
	assert.Equal(t, day(2024, 1, 3), *summary.FirstDate)
	assert.Equal(t, day(2024, 1, 7), *summary.LastDate)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "test", summary.Job)
}

func TestEngine_SnapshotPreviousCloseFallback(t *testing.T) {
	f := newEngineFixture(eurusd())
	rows := series("EURUSD", day(2024, 1, 5), "1.20", "1.25")
	rows[0].SnapshotPreviousClose = decimal.NewNullDecimal(decimal.RequireFromString("1.00"))
	rows[1].SnapshotPreviousClose = decimal.NewNullDecimal(decimal.RequireFromString("9.99"))
	f.provider.data["EURUSD"] = rows

	_, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	got := f.store.Rows("EURUSD")
	require.Len(t, got, 2)
	assert.True(t, got[0].Change.Decimal.Equal(decimal.RequireFromString("0.2")), "first row falls back to snapshot")
	assert.True(t, got[0].ChangePercent.Decimal.Equal(decimal.RequireFromString("20")))
	assert.True(t, got[1].PreviousClose.Decimal.Equal(decimal.RequireFromString("1.2")), "in-batch previous row wins")
}

func TestEngine_RowsReconciledInAscendingOrder(t *testing.T) {
	f := newEngineFixture(eurusd())
	rows := series("EURUSD", day(2024, 1, 4), "1.0", "2.0", "4.0")
	f.provider.data["EURUSD"] = []domain.Observation{rows[2], rows[0], rows[1]}

	_, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	got := f.store.Rows("EURUSD")
	require.Len(t, got, 3)
	assert.True(t, got[1].Change.Decimal.Equal(decimal.RequireFromString("1")))
	assert.True(t, got[2].Change.Decimal.Equal(decimal.RequireFromString("2")))
}

func TestEngine_Idempotence(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.data["EURUSD"] = series("EURUSD", day(2024, 1, 3), "1.10", "1.11", "1.09", "1.12", "1.12")

	explicit, err := domain.NewWindow(day(2024, 1, 1), day(2024, 1, 9), domain.WindowExplicit)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Explicit = &explicit

	first, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)
	firstTotals := first.Totals()
	assert.Equal(t, 5, firstTotals.Inserted)
	before := f.store.Rows("EURUSD")

	second, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)
	secondTotals := second.Totals()
	assert.Equal(t, 0, secondTotals.Inserted)
	assert.Equal(t, 5, secondTotals.Updated)

	after := f.store.Rows("EURUSD")
	require.Len(t, after, 5)
	assert.Equal(t, before, after)
}

func TestEngine_NoDuplicateKeys(t *testing.T) {
	f := newEngineFixture(eurusd())
	rows := series("EURUSD", day(2024, 1, 4), "1.0", "1.1")
	dup := rows[1]
	dup.Close = decimal.RequireFromString("1.2")
	f.provider.data["EURUSD"] = append(rows, dup)

	explicit, err := domain.NewWindow(day(2024, 1, 1), day(2024, 1, 9), domain.WindowExplicit)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Explicit = &explicit

	for i := 0; i < 3; i++ {
		_, err := f.engine(cfg).Run(context.Background())
		require.NoError(t, err)
	}

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEngine_WindowIncremental(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.store.Seed(series("EURUSD", day(2024, 1, 2), "1.0", "1.0", "1.0")...) // max = Jan 4

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	calls := f.provider.callsFor("EURUSD")
	require.Len(t, calls, 1)
	assert.Equal(t, day(2024, 1, 5), calls[0].window.Start)
	assert.Equal(t, day(2024, 1, 9), calls[0].window.End)
	assert.Equal(t, domain.WindowIncremental, calls[0].window.Kind)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.SkipNoData, out.SkipReason)
}

func TestEngine_WindowBootstrap(t *testing.T) {
	f := newEngineFixture(eurusd())
	cfg := testConfig()
	cfg.LookbackDays = 365

	_, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	calls := f.provider.callsFor("EURUSD")
	require.Len(t, calls, 1)
	assert.Equal(t, day(2024, 1, 8).AddDate(0, 0, -365), calls[0].window.Start)
	assert.Equal(t, domain.WindowBootstrap, calls[0].window.Kind)
}

func TestEngine_WindowUpToDateIsSkipped(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.store.Seed(series("EURUSD", day(2024, 1, 8), "1.0")...)

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateSkipped, out.State)
	assert.Equal(t, domain.SkipEmptyWindow, out.SkipReason)
	assert.Empty(t, f.provider.callsFor("EURUSD"))
}

func TestEngine_ExplicitWindowIntersect(t *testing.T) {
	f := newEngineFixture(eurusd())
	explicit, err := domain.NewWindow(day(2024, 1, 1), day(2024, 3, 1), domain.WindowExplicit)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Explicit = &explicit

	_, err = f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	calls := f.provider.callsFor("EURUSD")
	require.Len(t, calls, 1)
	assert.Equal(t, day(2024, 1, 1), calls[0].window.Start)
	assert.Equal(t, day(2024, 1, 9), calls[0].window.End, "explicit window is capped at tomorrow")
}

func TestEngine_ExplicitWindowInFutureIsSkipped(t *testing.T) {
	f := newEngineFixture(eurusd())
	explicit, err := domain.NewWindow(day(2024, 2, 1), day(2024, 3, 1), domain.WindowExplicit)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Explicit = &explicit

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.SkipEmptyWindow, out.SkipReason)
	assert.Empty(t, f.provider.calls)
}

func TestEngine_FailureIsolation(t *testing.T) {
	a := domain.Entity{Symbol: "AAA", Active: true}
	b := domain.Entity{Symbol: "BBB", Active: true}
	c := domain.Entity{Symbol: "CCC", Active: true}
	f := newEngineFixture(a, b, c)
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "10", "11")
	f.provider.data["BBB"] = series("BBB", day(2024, 1, 5), "20", "21")
	f.provider.data["CCC"] = series("CCC", day(2024, 1, 5), "30", "31")
	f.provider.failNext("BBB", &domain.ProviderError{Provider: "mock", Message: "malformed response"})

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.store.Rows("AAA"), 2)
	assert.Empty(t, f.store.Rows("BBB"))
	assert.Len(t, f.store.Rows("CCC"), 2)

	out, _ := summary.Outcome("BBB")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.Equal(t, 1, out.Errored)
	assert.True(t, errors.Is(out.Err, domain.ErrProviderError))

	tot := summary.Totals()
	assert.Equal(t, 2, tot.Committed)
	assert.Equal(t, 1, tot.Failed)
	assert.Equal(t, 1, tot.Errored)
	assert.True(t, summary.HasFailures())
}

func TestEngine_StoreWriteFailureRollsBackEntity(t *testing.T) {
	a := domain.Entity{Symbol: "AAA", Active: true}
	b := domain.Entity{Symbol: "BBB", Active: true}
	f := newEngineFixture(a, b)
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "10", "11")
	f.provider.data["BBB"] = series("BBB", day(2024, 1, 5), "20", "21")
	f.store.FailWrites("AAA", errors.New("constraint violation"))

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("AAA")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, domain.ErrStoreWrite))
	assert.Zero(t, out.Inserted)
	assert.Empty(t, f.store.Rows("AAA"))

	assert.Len(t, f.store.Rows("BBB"), 2)
}

func TestEngine_CommitFailureMarksEntityFailed(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.data["EURUSD"] = series("EURUSD", day(2024, 1, 5), "1.1", "1.2")
	f.store.FailCommits(errors.New("database is locked"))

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, domain.ErrStoreWrite))
	assert.Zero(t, out.Inserted, "uncommitted rows are not counted")
	assert.Equal(t, 1, f.store.Rollbacks())
}

func TestEngine_BatchCommitBoundary(t *testing.T) {
	f := newEngineFixture(eurusd())
	start := day(2024, 1, 8).AddDate(0, 0, -119)
	closes := make([]string, 120)
	for i := range closes {
		closes[i] = fmt.Sprintf("1.%03d", i)
	}
	f.provider.data["EURUSD"] = series("EURUSD", start, closes...)

	cfg := testConfig()
	cfg.LookbackDays = 200
	cfg.BatchSize = 50

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, 120, out.Inserted)
	assert.Equal(t, 3, out.Commits)
	assert.Equal(t, 3, f.store.Commits())
}

func TestEngine_OverwriteDisabledSkipsExisting(t *testing.T) {
	f := newEngineFixture(eurusd())
	k := series("EURUSD", day(2024, 1, 4), "1.00")[0]
	f.store.Seed(k)
	f.provider.data["EURUSD"] = series("EURUSD", day(2024, 1, 4), "2.00", "2.10")

	explicit, err := domain.NewWindow(day(2024, 1, 4), day(2024, 1, 6), domain.WindowExplicit)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Overwrite = false
	cfg.Explicit = &explicit

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Updated)
	assert.Equal(t, 1, out.Inserted)

	stored, ok := f.store.Get("EURUSD", day(2024, 1, 4))
	require.True(t, ok)
	assert.Equal(t, "1", stored.Close.String())

	next, ok := f.store.Get("EURUSD", day(2024, 1, 5))
	require.True(t, ok)
	assert.True(t, next.PreviousClose.Decimal.Equal(decimal.RequireFromString("2")),
		"previous close follows the fetched batch, even for skipped rows")
}

func TestEngine_RateLimitedVsNoData(t *testing.T) {
	a := domain.Entity{Symbol: "AAA", Active: true}
	b := domain.Entity{Symbol: "BBB", Active: true}
	c := domain.Entity{Symbol: "CCC", Active: true}
	f := newEngineFixture(a, b, c)
	f.provider.failNext("AAA", &domain.RateLimitError{Provider: "mock", RetryAfter: time.Minute})
	f.provider.failNext("BBB", fmt.Errorf("BBB: %w", domain.ErrProviderNoData))
	// CCC returns an empty slice.

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	outA, _ := summary.Outcome("AAA")
	outB, _ := summary.Outcome("BBB")
	outC, _ := summary.Outcome("CCC")
	assert.Equal(t, domain.SkipRateLimited, outA.SkipReason)
	assert.Equal(t, domain.SkipNoData, outB.SkipReason)
	assert.Equal(t, domain.SkipNoData, outC.SkipReason)
	assert.False(t, summary.HasFailures())
	assert.Equal(t, 1, summary.Totals().RateLimited)

	assert.Equal(t, []time.Duration{time.Minute}, f.pacer.rateLimited)
}

func TestEngine_PacingBetweenCalls(t *testing.T) {
	f := newEngineFixture(
		domain.Entity{Symbol: "AAA", Active: true},
		domain.Entity{Symbol: "BBB", Active: true},
		domain.Entity{Symbol: "CCC", Active: true},
	)
	f.store.Seed(series("BBB", day(2024, 1, 8), "1")...) // BBB is up to date, no call

	_, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.provider.calls, 2)
	assert.Equal(t, 1, f.pacer.waits, "no wait before the first call")
}

func TestEngine_PacerErrorFailsEntity(t *testing.T) {
	f := newEngineFixture(domain.Entity{Symbol: "AAA", Active: true}, domain.Entity{Symbol: "BBB", Active: true})
	f.pacer.err = errors.New("limiter closed")

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("BBB")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.Contains(t, out.Error, "pacing")
	assert.Len(t, f.provider.calls, 1)
}

func TestEngine_InterruptedWhilePacing(t *testing.T) {
	f := newEngineFixture(
		domain.Entity{Symbol: "AAA", Active: true},
		domain.Entity{Symbol: "BBB", Active: true},
		domain.Entity{Symbol: "CCC", Active: true},
	)
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pacer.cancel = cancel

	summary, err := f.engine(testConfig()).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	require.Len(t, summary.Entities, 1, "the interrupted entity is not recorded")
	assert.Equal(t, "AAA", summary.Entities[0].Symbol)
	assert.False(t, summary.HasFailures())
	assert.Len(t, f.provider.calls, 1)
	assert.Len(t, f.store.Rows("AAA"), 1)
}

func TestEngine_FlagResetAfterSuccess(t *testing.T) {
	ok := domain.Entity{Symbol: "AAA", Active: true, ProcessPending: true}
	bad := domain.Entity{Symbol: "BBB", Active: true, ProcessPending: true}
	f := newEngineFixture(ok, bad)
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "1")
	f.provider.failNext("BBB", &domain.ProviderError{Provider: "mock", Message: "boom"})

	cfg := testConfig()
	cfg.Filter = domain.EntityFilter{Mode: domain.FilterPending}
	cfg.ClearProcessFlag = true

	_, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	gotOK, err := f.source.Get(context.Background(), "AAA")
	require.NoError(t, err)
	assert.False(t, gotOK.ProcessPending)
	require.NotNil(t, gotOK.LastSyncedAt)
	assert.Equal(t, testToday, *gotOK.LastSyncedAt)

	gotBad, err := f.source.Get(context.Background(), "BBB")
	require.NoError(t, err)
	assert.True(t, gotBad.ProcessPending, "failed entity keeps its flag")
}

func TestEngine_FlagKeptWhenResetDisabled(t *testing.T) {
	f := newEngineFixture(domain.Entity{Symbol: "AAA", Active: true, ProcessPending: true})
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "1")

	_, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	got, err := f.source.Get(context.Background(), "AAA")
	require.NoError(t, err)
	assert.True(t, got.ProcessPending)
}

func TestEngine_RetriesTimeouts(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.data["EURUSD"] = series("EURUSD", day(2024, 1, 5), "1.1")
	f.provider.failNext("EURUSD", fmt.Errorf("get: %w", domain.ErrProviderTimeout))

	cfg := testConfig()
	cfg.FetchAttempts = 3
	cfg.RetryDelay = time.Millisecond

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateCommitted, out.State)
	assert.Len(t, f.provider.callsFor("EURUSD"), 2)
}

func TestEngine_RetriesExhausted(t *testing.T) {
	f := newEngineFixture(eurusd())
	timeout := fmt.Errorf("get: %w", domain.ErrProviderTimeout)
	f.provider.failNext("EURUSD", timeout, timeout, timeout)

	cfg := testConfig()
	cfg.FetchAttempts = 3
	cfg.RetryDelay = time.Millisecond

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrProviderTimeout)
	assert.Contains(t, out.Err.Error(), "after 3 attempts")
	assert.Len(t, f.provider.callsFor("EURUSD"), 3)
}

func TestEngine_OnlyTimeoutsAreRetried(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.failNext("EURUSD", &domain.ProviderError{Provider: "test", StatusCode: 500, Message: "boom"})

	cfg := testConfig()
	cfg.FetchAttempts = 3
	cfg.RetryDelay = time.Millisecond

	summary, err := f.engine(cfg).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.Len(t, f.provider.callsFor("EURUSD"), 1)
}

func TestEngine_TimeoutWithoutRetryFails(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.provider.failNext("EURUSD", fmt.Errorf("get: %w", domain.ErrProviderTimeout))

	summary, err := f.engine(testConfig()).Run(context.Background())
	require.NoError(t, err)

	out, _ := summary.Outcome("EURUSD")
	assert.Equal(t, domain.StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, domain.ErrProviderTimeout))
}

func TestEngine_SourceUnavailableIsFatal(t *testing.T) {
	f := newEngineFixture(eurusd())
	f.source.Err = errors.New("no route to host")

	summary, err := f.engine(testConfig()).Run(context.Background())
	assert.Nil(t, summary)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	assert.True(t, domain.IsFatal(err))
	assert.Empty(t, f.provider.calls)
}

func TestEngine_EmptyFilterResultIsConfigError(t *testing.T) {
	f := newEngineFixture(domain.Entity{Symbol: "AAA", Active: false})

	summary, err := f.engine(testConfig()).Run(context.Background())
	assert.Nil(t, summary)
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *EngineConfig)
	}{
		{"zero batch", func(c *EngineConfig) { c.BatchSize = 0 }},
		{"zero lookback", func(c *EngineConfig) { c.LookbackDays = 0 }},
		{"empty explicit", func(c *EngineConfig) {
			c.Explicit = &domain.Window{Start: day(2024, 1, 2), End: day(2024, 1, 1)}
		}},
		{"symbols without list", func(c *EngineConfig) { c.Filter = domain.EntityFilter{Mode: domain.FilterSymbols} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(eurusd())
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := f.engine(cfg).Run(context.Background())
			assert.True(t, errors.Is(err, domain.ErrConfig))
			assert.Empty(t, f.provider.calls)
		})
	}
}

func TestEngine_CancelledContextStopsRun(t *testing.T) {
	f := newEngineFixture(domain.Entity{Symbol: "AAA", Active: true}, domain.Entity{Symbol: "BBB", Active: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.engine(testConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Entities)
}

func TestEngine_Progress(t *testing.T) {
	f := newEngineFixture(domain.Entity{Symbol: "AAA", Active: true}, domain.Entity{Symbol: "BBB", Active: true})
	f.provider.data["AAA"] = series("AAA", day(2024, 1, 5), "1", "2")

	var seen []Progress
	_, err := f.engine(testConfig()).OnProgress(func(p Progress) { seen = append(seen, p) }).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, Progress{Current: "AAA", Done: 1, Total: 2, RowsWritten: 2}, seen[0])
	assert.Equal(t, "BBB", seen[1].Current)
	assert.Equal(t, 2, seen[1].Done)
}

func TestEngineConfigFromJob(t *testing.T) {
	job := domain.DefaultJob("fx", domain.ProviderAlphaVantage, "forex_master", "forex_hist_data")
	job.Filter = domain.FilterPending
	job.ClearProcessFlag = true
	job.Overwrite = false

	cfg := EngineConfigFromJob(job, nil)
	assert.Equal(t, "fx", cfg.Job)
	assert.Equal(t, domain.FilterPending, cfg.Filter.Mode)
	assert.Equal(t, domain.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, domain.DefaultLookbackDays, cfg.LookbackDays)
	assert.True(t, cfg.ClearProcessFlag)
	assert.False(t, cfg.Overwrite)
	assert.NoError(t, cfg.Validate())
}
