package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
backtest:
  symbol: KCUSDT
  timeframe: 30m
strategy:
  contract_multiplier: 3.768
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9975", cfg.App.HTTPAddr)
	assert.Equal(t, "KCUSDT", cfg.Backtest.Symbol)
	assert.Equal(t, 100000.0, cfg.Backtest.StartingEquity)
	assert.Equal(t, 2, cfg.Backtest.MaxConcurrent)

	assert.Equal(t, 3.768, cfg.Strategy.ContractMultiplier)
	assert.Equal(t, 0.01, cfg.Strategy.RiskFraction)
	assert.Equal(t, 2.0, cfg.Strategy.TPRMultiple)
	assert.Equal(t, 4.0, cfg.Strategy.TrailingATRMult)
	assert.Equal(t, 19.0, cfg.Strategy.ADXThreshold)
	assert.Equal(t, 200, cfg.Strategy.MinBars)
	assert.Equal(t, 5, cfg.Strategy.MaxTradesPerDay)
	assert.Equal(t, 0.3, cfg.Strategy.PartialExitRatio)
	assert.Zero(t, cfg.Strategy.FixedNotional, "risk sizing is the default")
}

func TestLoadFixedNotionalOverride(t *testing.T) {
	path := writeConfig(t, `
strategy:
  fixed_notional: 20000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20000.0, cfg.Strategy.FixedNotional)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad log level": `
app:
  log_level: loud
`,
		"bad exchange": `
market:
  exchange: kraken
`,
		"risk fraction out of range": `
strategy:
  risk_fraction: 1.5
`,
		"partial ratio too large": `
strategy:
  partial_exit_ratio: 1.0
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
