package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe(" 30M ")
	require.NoError(t, err)
	assert.Equal(t, "30m", tf.Key)
	assert.Equal(t, 30*time.Minute, tf.Duration)

	_, err = ParseTimeframe("2m")
	assert.Error(t, err)
}

func TestAlignRange(t *testing.T) {
	tf, _ := ParseTimeframe("30m")
	step := tf.Step()

	start, end := tf.AlignRange(3*step+100, 7*step+step-1)
	assert.Equal(t, 3*step, start)
	assert.Equal(t, 7*step, end)

	t.Run("swapped bounds", func(t *testing.T) {
		start, end := tf.AlignRange(9*step, 2*step)
		assert.LessOrEqual(t, start, end)
		assert.Equal(t, 2*step, start)
	})
}

func TestExpectedBars(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	step := tf.Step()
	assert.Equal(t, int64(5), tf.ExpectedBars(0, 4*step))
	assert.Equal(t, int64(0), tf.ExpectedBars(step, 0))
}

func TestDropUnclosed(t *testing.T) {
	now := time.UnixMilli(10_000)
	candles := []Candle{
		{OpenTime: 0, CloseTime: 4_999},
		{OpenTime: 5_000, CloseTime: 9_999},
		{OpenTime: 10_000, CloseTime: 14_999},
	}
	kept := DropUnclosed(candles, now)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(5_000), kept[1].OpenTime)
}
