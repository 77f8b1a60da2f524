package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tickersync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tickersync/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore(nil))

	require.NotNil(t, service)
	assert.Equal(t, "memory://config.toml", service.Path())
}

func TestSettingsService_Load_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewSettingsStore(nil))

	settings, err := service.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsService_Load_Validates(t *testing.T) {
	held := domain.DefaultSettings()
	held.Jobs[0].BatchSize = 0
	service := NewSettingsService(memory.NewSettingsStore(&held))

	_, err := service.Load()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestSettingsService_Load_MySQLNeedsDSN(t *testing.T) {
	held := domain.DefaultSettings()
	held.Database.Driver = domain.StoreMySQL
	service := NewSettingsService(memory.NewSettingsStore(&held))

	_, err := service.Load()

	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestSettingsService_Init(t *testing.T) {
	store := memory.NewSettingsStore(nil)
	service := NewSettingsService(store)

	path, err := service.Init(false)

	require.NoError(t, err)
	assert.Equal(t, "memory://config.toml", path)
	assert.True(t, store.Written())
}

func TestSettingsService_Init_Exists(t *testing.T) {
	held := domain.DefaultSettings()
	service := NewSettingsService(memory.NewSettingsStore(&held))

	_, err := service.Init(false)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
