// Command tickersync synchronises daily market data into SQL history tables.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/tickersync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tickersync/internal/adapters/driven/pacing"
	"github.com/custodia-labs/tickersync/internal/adapters/driven/provider"
	"github.com/custodia-labs/tickersync/internal/adapters/driven/storage/mysql"
	"github.com/custodia-labs/tickersync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tickersync/internal/adapters/driving/cli"
	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/core/ports/driving"
	"github.com/custodia-labs/tickersync/internal/core/services"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// store is a StoreProvider that owns a database connection.
type store interface {
	driven.StoreProvider
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.Wiring{
		Settings: newSettingsService,
		Open:     openServices,
	})
	stop()
	os.Exit(code)
}

func newSettingsService(configPath string) (driving.SettingsService, error) {
	settingsStore, err := file.NewSettingsStore(configPath)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(settingsStore), nil
}

func openServices(ctx context.Context, settings domain.Settings) (*cli.Services, error) {
	st, err := openStore(ctx, settings.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened %s store", settings.Database.Driver)

	providers := provider.NewFactory(settings)
	diagnostics := services.NewDiagnostics(settings, st)

	return &cli.Services{
		Sync:         services.NewSyncOrchestrator(settings, st, providers, pacing.ForJob),
		Fundamentals: services.NewFundamentalsSync(settings, st, providers, pacing.ForJob),
		Diagnostics:  diagnostics,
		Flags:        diagnostics,
		Close: func() error {
			return errors.Join(st.Close(), logger.Close())
		},
	}, nil
}

func openStore(ctx context.Context, db domain.DatabaseSettings) (store, error) {
	switch db.Driver {
	case domain.StoreMySQL:
		st, err := mysql.NewStore(ctx, db.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := sqlite.NewStore(db.DataDir)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}
