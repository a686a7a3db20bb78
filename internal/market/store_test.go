package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandles(tf Timeframe, n int, base int64) []Candle {
	out := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		open := base + int64(i)*tf.Step()
		price := 400 + float64(i)
		out = append(out, Candle{
			OpenTime:  open,
			CloseTime: open + tf.Step() - 1,
			Open:      price, High: price + 1, Low: price - 1, Close: price + 0.5,
			Volume: 100, Trades: 10,
		})
	}
	return out
}

func TestStoreUpsertAndRange(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("30m")
	candles := testCandles(tf, 5, tf.Step())

	n, err := store.Upsert(ctx, "kcusdt", "30m", candles)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := store.Range(ctx, "KCUSDT", "30m", candles[0].OpenTime, candles[4].OpenTime)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, candles[0].OpenTime, got[0].OpenTime)
	assert.Equal(t, 400.5, got[0].Close)

	t.Run("duplicate open time overwrites", func(t *testing.T) {
		dup := candles[2]
		dup.Close = 999
		_, err := store.Upsert(ctx, "KCUSDT", "30m", []Candle{dup})
		require.NoError(t, err)

		got, err := store.Range(ctx, "KCUSDT", "30m", dup.OpenTime, dup.OpenTime)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 999.0, got[0].Close)
	})

	t.Run("manifest tracks bounds", func(t *testing.T) {
		m, err := store.Manifest(ctx, "KCUSDT", "30m")
		require.NoError(t, err)
		assert.Equal(t, "KCUSDT", m.Symbol)
		assert.Equal(t, candles[0].OpenTime, m.MinTime)
		assert.Equal(t, candles[4].OpenTime, m.MaxTime)
		assert.Equal(t, int64(5), m.Rows)
	})
}

func TestMissingOpenTimes(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("30m")
	candles := testCandles(tf, 5, tf.Step())
	withGap := append(candles[:2:2], candles[3:]...) // drop index 2

	_, err = store.Upsert(ctx, "KCUSDT", "30m", withGap)
	require.NoError(t, err)

	missing, err := MissingOpenTimes(ctx, store, "KCUSDT", tf, candles[0].OpenTime, candles[4].OpenTime)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, candles[2].OpenTime, missing[0])
}
