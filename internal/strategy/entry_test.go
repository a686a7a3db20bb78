package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func entryConfig() Config {
	return Config{
		RiskFraction:       0.01,
		TPRMultiple:        2,
		TrailingATRMult:    4,
		ADXThreshold:       19,
		ContractMultiplier: 1,
		MinBars:            2,
		MaxTradesPerDay:    5,
		PartialExitRatio:   0.3,
	}
}

func longSetup() (Bar, Bar) {
	prev := Bar{
		CloseTime: 1_700_000_000_000,
		Open:      397, High: 399, Low: 396, Close: 398,
		Gauss: 396, Kijun: 392, VAPI: 1.0, ADX: 24, SMMA: 390, ATR: 5,
		SwingLow: 388, SwingHigh: 408,
	}
	cur := Bar{
		CloseTime: 1_700_001_800_000,
		Open:      398, High: 401, Low: 397, Close: 400,
		Gauss: 397, Kijun: 393, VAPI: 1.2, ADX: 25, SMMA: 391, ATR: 5,
		SwingLow: 390, SwingHigh: 410,
	}
	return cur, prev
}

func shortSetup() (Bar, Bar) {
	prev := Bar{
		CloseTime: 1_700_000_000_000,
		Open:      383, High: 384, Low: 381, Close: 382,
		Gauss: 384, Kijun: 388, VAPI: 1.2, ADX: 24, SMMA: 390, ATR: 5,
		SwingLow: 372, SwingHigh: 392,
	}
	cur := Bar{
		CloseTime: 1_700_001_800_000,
		Open:      382, High: 383, Low: 379, Close: 380,
		Gauss: 383, Kijun: 387, VAPI: 1.0, ADX: 25, SMMA: 389, ATR: 5,
		SwingLow: 370, SwingHigh: 390,
	}
	return cur, prev
}

func TestEvaluateEntryLong(t *testing.T) {
	cfg := entryConfig()
	cur, prev := longSetup()

	assert.Equal(t, SignalLong, EvaluateEntry(cur, prev, cfg, 10, 0))

	t.Run("warm-up blocks", func(t *testing.T) {
		assert.Equal(t, SignalNone, EvaluateEntry(cur, prev, cfg, 1, 0))
	})

	t.Run("adx at threshold blocks", func(t *testing.T) {
		weak := cur
		weak.ADX = cfg.ADXThreshold
		assert.Equal(t, SignalNone, EvaluateEntry(weak, prev, cfg, 10, 0))
	})

	t.Run("daily cap blocks", func(t *testing.T) {
		assert.Equal(t, SignalNone, EvaluateEntry(cur, prev, cfg, 10, cfg.MaxTradesPerDay))
	})

	t.Run("gauss flat blocks", func(t *testing.T) {
		flat := cur
		flat.Gauss = prev.Gauss
		assert.Equal(t, SignalNone, EvaluateEntry(flat, prev, cfg, 10, 0))
	})

	t.Run("close below long average blocks", func(t *testing.T) {
		below := cur
		below.SMMA = below.Close + 1
		assert.Equal(t, SignalNone, EvaluateEntry(below, prev, cfg, 10, 0))
	})

	t.Run("swing low above close blocks", func(t *testing.T) {
		bad := cur
		bad.SwingLow = bad.Close + 1
		assert.Equal(t, SignalNone, EvaluateEntry(bad, prev, cfg, 10, 0))
	})
}

func TestEvaluateEntryShort(t *testing.T) {
	cfg := entryConfig()
	cur, prev := shortSetup()

	assert.Equal(t, SignalShort, EvaluateEntry(cur, prev, cfg, 10, 0))

	t.Run("rising momentum blocks", func(t *testing.T) {
		up := cur
		up.VAPI = prev.VAPI + 1
		assert.Equal(t, SignalNone, EvaluateEntry(up, prev, cfg, 10, 0))
	})
}

func TestEvaluateEntryIncompleteBar(t *testing.T) {
	cfg := entryConfig()
	cur, prev := longSetup()

	gap := cur
	gap.ADX = math.NaN()
	assert.Equal(t, SignalNone, EvaluateEntry(gap, prev, cfg, 10, 0))

	gapPrev := prev
	gapPrev.Gauss = math.NaN()
	assert.Equal(t, SignalNone, EvaluateEntry(cur, gapPrev, cfg, 10, 0))
}
