package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizePositionFixedNotional(t *testing.T) {
	cfg := Config{FixedNotional: 20000}

	assert.Equal(t, 50, SizePosition(400.0, 390.0, 100000, cfg))

	t.Run("minimum one contract", func(t *testing.T) {
		assert.Equal(t, 1, SizePosition(50000.0, 49000.0, 100000, cfg))
	})

	t.Run("invalid entry price", func(t *testing.T) {
		assert.Equal(t, 0, SizePosition(0, 390.0, 100000, cfg))
	})
}

func TestSizePositionRiskBased(t *testing.T) {
	cfg := Config{RiskFraction: 0.01, ContractMultiplier: 3.768}

	// floor(1000 / (10 * 3.768)) = floor(26.53) = 26
	assert.Equal(t, 26, SizePosition(400.0, 390.0, 100000, cfg))

	t.Run("short side uses absolute distance", func(t *testing.T) {
		assert.Equal(t, 26, SizePosition(390.0, 400.0, 100000, cfg))
	})

	t.Run("zero distance returns zero", func(t *testing.T) {
		assert.Equal(t, 0, SizePosition(400.0, 400.0, 100000, cfg))
	})

	t.Run("never negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, SizePosition(400.0, 390.0, -5000, cfg), 0)
	})

	t.Run("equity too small floors to zero", func(t *testing.T) {
		assert.Equal(t, 0, SizePosition(400.0, 390.0, 1000, cfg))
	})
}
