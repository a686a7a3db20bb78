package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coffeeProfiles = `
profiles:
  coffee-30m:
    description: coffee futures, 30 minute bars
    strategy:
      fixed_notional: 20000
      risk_fraction: 0.01
      tp_r_multiple: 2.0
      trailing_atr_mult: 4.0
      adx_threshold: 19
      contract_multiplier: 3.768
      min_bars: 200
      max_trades_per_day: 5
      partial_exit_ratio: 0.3
  crypto-risk:
    strategy:
      risk_fraction: 0.02
      tp_r_multiple: 2.0
      trailing_atr_mult: 4.0
      adx_threshold: 19
      contract_multiplier: 1
      min_bars: 200
      max_trades_per_day: 5
      partial_exit_ratio: 0.3
    indicator:
      gaussian_period: 26
      kijun_period: 100
      vapi_period: 13
      adx_period: 14
      atr_period: 14
      smma_period: 200
      swing_order: 55
`

func writeProfiles(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistryLoadsPresets(t *testing.T) {
	reg, err := NewRegistry(writeProfiles(t, coffeeProfiles))
	require.NoError(t, err)

	assert.Equal(t, []string{"coffee-30m", "crypto-risk"}, reg.IDs())

	coffee, ok := reg.Preset("coffee-30m")
	require.True(t, ok)
	assert.Equal(t, "coffee-30m", coffee.ID)
	assert.Equal(t, 20000.0, coffee.Strategy.FixedNotional)
	assert.Equal(t, 3.768, coffee.Strategy.ContractMultiplier)
	assert.Equal(t, 26, coffee.Indicator.GaussianPeriod, "indicator defaults fill in")

	crypto, ok := reg.Preset("crypto-risk")
	require.True(t, ok)
	assert.Zero(t, crypto.Strategy.FixedNotional)
	assert.Equal(t, 0.02, crypto.Strategy.RiskFraction)
	assert.Equal(t, 55, crypto.Indicator.SwingOrder)

	_, ok = reg.Preset("missing")
	assert.False(t, ok)
}

func TestRegistryFillsStrategyDefaults(t *testing.T) {
	reg, err := NewRegistry(writeProfiles(t, `
profiles:
  sparse:
    strategy:
      risk_fraction: 0.02
`))
	require.NoError(t, err)

	p, ok := reg.Preset("sparse")
	require.True(t, ok)
	assert.Equal(t, 0.02, p.Strategy.RiskFraction, "explicit value kept")
	assert.Equal(t, 2.0, p.Strategy.TPRMultiple)
	assert.Equal(t, 4.0, p.Strategy.TrailingATRMult)
	assert.Equal(t, 19.0, p.Strategy.ADXThreshold)
	assert.Equal(t, 1.0, p.Strategy.ContractMultiplier)
	assert.Equal(t, 200, p.Strategy.MinBars)
	assert.Equal(t, 5, p.Strategy.MaxTradesPerDay)
	assert.Equal(t, 0.3, p.Strategy.PartialExitRatio,
		"an omitted ratio must not silently disable the scale-out")
	assert.Zero(t, p.Strategy.FixedNotional, "zero notional means risk-based sizing")
}

func TestRegistryRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"unknown field": `
profiles:
  bad:
    strategy:
      lot_size: 3
`,
		"risk fraction out of range": `
profiles:
  bad:
    strategy:
      risk_fraction: 2.0
      tp_r_multiple: 2.0
      trailing_atr_mult: 4.0
      contract_multiplier: 1
      max_trades_per_day: 5
`,
		"indicator period too small": `
profiles:
  bad:
    strategy:
      risk_fraction: 0.01
      tp_r_multiple: 2.0
      trailing_atr_mult: 4.0
      contract_multiplier: 1
      max_trades_per_day: 5
    indicator:
      gaussian_period: 1
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(writeProfiles(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	reg, err := NewRegistry(writeProfiles(t, coffeeProfiles))
	require.NoError(t, err)

	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	delete(snap.Presets, "coffee-30m")

	_, ok := reg.Preset("coffee-30m")
	assert.True(t, ok, "mutating a snapshot must not touch the registry")
}
