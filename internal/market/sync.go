package market

import (
	"context"
	"fmt"

	"arabica/internal/logger"
)

const backfillPage = 1000

// Backfill pages candles from src into the store until the aligned range
// start..end is covered. It returns the number of rows written. Gaps the
// exchange itself has (delistings, outages) remain gaps.
func Backfill(ctx context.Context, src Source, store *Store, symbol string, tf Timeframe, start, end int64) (int, error) {
	if src == nil || store == nil {
		return 0, fmt.Errorf("source and store are required")
	}
	start, end = tf.AlignRange(start, end)
	total := 0
	cursor := start
	for cursor <= end {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := src.Fetch(ctx, FetchRequest{
			Symbol:   symbol,
			Interval: tf.SourceInterval,
			Start:    cursor,
			End:      end,
			Limit:    backfillPage,
		})
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		SortCandles(batch)
		n, err := store.Upsert(ctx, symbol, tf.Key, batch)
		if err != nil {
			return total, err
		}
		total += n
		last := batch[len(batch)-1].OpenTime
		logger.Infof("[market] backfill %s@%s wrote %d rows through %d", symbol, tf.Key, n, last)
		next := last + tf.Step()
		if next <= cursor {
			break
		}
		cursor = next
	}
	return total, nil
}

// MissingOpenTimes lists grid slots in start..end with no stored candle.
func MissingOpenTimes(ctx context.Context, store *Store, symbol string, tf Timeframe, start, end int64) ([]int64, error) {
	start, end = tf.AlignRange(start, end)
	have, err := store.OpenTimes(ctx, symbol, tf.Key, start, end)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(have))
	for _, ts := range have {
		seen[ts] = struct{}{}
	}
	var missing []int64
	for ts := start; ts <= end; ts += tf.Step() {
		if _, ok := seen[ts]; !ok {
			missing = append(missing, ts)
		}
	}
	return missing, nil
}
