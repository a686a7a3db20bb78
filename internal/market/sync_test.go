package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves a fixed history honoring Start and Limit, like the
// exchange REST endpoint does.
type pagedSource struct {
	candles []Candle
	calls   int
}

func (p *pagedSource) Name() string { return "paged" }

func (p *pagedSource) Fetch(_ context.Context, req FetchRequest) ([]Candle, error) {
	p.calls++
	var out []Candle
	for _, c := range p.candles {
		if req.Start > 0 && c.OpenTime < req.Start {
			continue
		}
		if req.End > 0 && c.OpenTime > req.End {
			continue
		}
		out = append(out, c)
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

func TestBackfillPagesThroughHistory(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("30m")
	history := testCandles(tf, 2500, tf.Step())
	src := &pagedSource{candles: history}

	start := history[0].OpenTime
	end := history[len(history)-1].OpenTime
	n, err := Backfill(ctx, src, store, "KCUSDT", tf, start, end)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)
	assert.GreaterOrEqual(t, src.calls, 3, "2500 rows at 1000 per page")

	missing, err := MissingOpenTimes(ctx, store, "KCUSDT", tf, start, end)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestBackfillStopsOnEmptyPage(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("30m")
	history := testCandles(tf, 10, tf.Step())
	src := &pagedSource{candles: history}

	// Ask past the end of available history.
	end := history[len(history)-1].OpenTime + 100*tf.Step()
	n, err := Backfill(ctx, src, store, "KCUSDT", tf, history[0].OpenTime, end)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
