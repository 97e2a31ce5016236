package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 200.0, cfg.Risk.StartingCapital)
	assert.Equal(t, 0.03, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 0.05, cfg.Risk.MaxDailyLossPct)
	assert.Equal(t, "weighted_vote", cfg.Strategies.Aggregation)
	assert.Zero(t, cfg.Strategies.MinConfidence)
	assert.True(t, cfg.Strategies.Volume.Enabled)
	assert.Equal(t, 0.8, cfg.Strategies.Volume.Weight)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"risk": {"starting_capital": 1000, "risk_per_trade": 0.02, "max_daily_loss_pct": 0.05},
		"strategies": {
			"aggregation": "unanimous",
			"min_confidence": 0.5,
			"sentiment": {"enabled": true, "weight": 1},
			"technical": {"enabled": true, "weight": 1},
			"volume": {"enabled": false, "weight": 0}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Risk.StartingCapital)
	assert.Equal(t, 0.02, cfg.Risk.RiskPerTrade)
	assert.Equal(t, "unanimous", cfg.Strategies.Aggregation)
	assert.Equal(t, 0.5, cfg.Strategies.MinConfidence)
	assert.False(t, cfg.Strategies.Volume.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.0026, cfg.Backtest.FeeRate)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative weight", body: `{"strategies": {"sentiment": {"enabled": true, "weight": -1}}}`},
		{name: "unknown aggregation", body: `{"strategies": {"aggregation": "majority"}}`},
		{name: "risk fraction above one", body: `{"risk": {"risk_per_trade": 1.5}}`},
		{name: "fee rate of one", body: `{"backtest": {"fee_rate": 1}}`},
		{name: "malformed json", body: `{"risk": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Risk.StartingCapital = 5000

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
