package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data/papertrader.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.InitialCash.Equal(decimal.NewFromInt(10000)))
	assert.False(t, cfg.AllowFractionalSells)
	assert.NotEmpty(t, cfg.PriceRefreshSchedule)
	assert.NotEmpty(t, cfg.SnapshotSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("INITIAL_CASH", "2500.50")
	t.Setenv("ALLOW_FRACTIONAL_SELLS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.InitialCash.Equal(decimal.RequireFromString("2500.50")))
	assert.True(t, cfg.AllowFractionalSells)
}

func TestLoadRejectsBadInitialCash(t *testing.T) {
	t.Setenv("INITIAL_CASH", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("INITIAL_CASH", "-100")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabasePath: "", InitialCash: decimal.NewFromInt(10000)}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DatabasePath: "./data/papertrader.db", InitialCash: decimal.Zero}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DatabasePath: "./data/papertrader.db", InitialCash: decimal.NewFromInt(1)}
	assert.NoError(t, cfg.Validate())
}
