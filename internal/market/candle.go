package market

import (
	"context"
	"sort"
	"time"
)

// Candle is one raw exchange kline, times in Unix milliseconds.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// FetchRequest bounds one page of history. Start/End are optional
// millisecond filters; Limit caps the page size.
type FetchRequest struct {
	Symbol   string
	Interval string
	Start    int64
	End      int64
	Limit    int
}

// Source provides historical candles from an exchange.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]Candle, error)
}

// SortCandles orders candles by open time in place.
func SortCandles(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
}

// DropUnclosed removes the trailing candle when its close time is still in
// the future. Exchanges report the forming bar alongside finished ones.
func DropUnclosed(candles []Candle, now time.Time) []Candle {
	for len(candles) > 0 {
		last := candles[len(candles)-1]
		if last.CloseTime <= now.UnixMilli() {
			break
		}
		candles = candles[:len(candles)-1]
	}
	return candles
}
