package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
)

// latestDatesShown is how many recent trading dates a check reports.
const latestDatesShown = 5

// Ensure Diagnostics implements the interfaces.
var (
	_ driving.DiagnosticsService = (*Diagnostics)(nil)
	_ driving.FlagService        = (*Diagnostics)(nil)
)

// Diagnostics answers read-only questions about job tables and maintains
// process flags.
type Diagnostics struct {
	settings domain.Settings
	stores   driven.StoreProvider
}

// NewDiagnostics creates a diagnostics service.
func NewDiagnostics(settings domain.Settings, stores driven.StoreProvider) *Diagnostics {
	return &Diagnostics{settings: settings, stores: stores}
}

// Check reports entity counts and target row counts for a job. It only reads;
// a target table that has not been created is reported as missing.
func (d *Diagnostics) Check(ctx context.Context, name string) (*driving.Report, error) {
	job, err := d.settings.Job(name)
	if err != nil {
		return nil, err
	}

	report := &driving.Report{
		Job:         job.Name,
		MasterTable: job.MasterTable,
		TargetTable: job.TargetTable,
	}

	source := d.stores.SymbolSource(job)
	counts := []struct {
		mode domain.FilterMode
		dst  *int
	}{
		{domain.FilterAll, &report.EntitiesTotal},
		{domain.FilterActive, &report.EntitiesActive},
		{domain.FilterPending, &report.EntitiesPending},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := source.Count(gctx, domain.EntityFilter{Mode: c.mode})
			if err != nil {
				return fmt.Errorf("count %s entities: %w", c.mode, err)
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch job.Kind {
	case domain.JobFundamentals:
		store := d.stores.FundamentalsStore(job)
		exists, err := store.TableExists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check target table: %w", err)
		}
		if !exists {
			report.TargetMissing = true
			return report, nil
		}
		if report.Rows, err = store.Count(ctx); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
	default:
		store := d.stores.ObservationStore(job)
		exists, err := store.TableExists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check target table: %w", err)
		}
		if !exists {
			report.TargetMissing = true
			return report, nil
		}
		if report.Rows, err = store.Count(ctx); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
		dates, err := store.LatestDates(ctx, latestDatesShown)
		if err != nil {
			return nil, fmt.Errorf("latest dates: %w", err)
		}
		for _, dc := range dates {
			report.LatestDates = append(report.LatestDates, driving.DateRows{Date: dc.TradingDate, Rows: dc.Rows})
		}
	}

	return report, nil
}

// SetPending sets or clears the process flag on a job's master table.
func (d *Diagnostics) SetPending(ctx context.Context, name string, symbols []string, pending bool) (int, error) {
	job, err := d.settings.Job(name)
	if err != nil {
		return 0, err
	}
	n, err := d.stores.SymbolSource(job).SetProcessFlag(ctx, domain.NormalizeSymbols(symbols), pending)
	if err != nil {
		return 0, fmt.Errorf("set process flag: %w", err)
	}
	return n, nil
}
