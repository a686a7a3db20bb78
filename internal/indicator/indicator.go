package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"arabica/internal/market"
	"arabica/internal/strategy"
)

// Params holds the lookback periods for the bar enrichment pass.
type Params struct {
	GaussianPeriod int `json:"gaussian_period" yaml:"gaussian_period" mapstructure:"gaussian_period"`
	KijunPeriod    int `json:"kijun_period" yaml:"kijun_period" mapstructure:"kijun_period"`
	VAPIPeriod     int `json:"vapi_period" yaml:"vapi_period" mapstructure:"vapi_period"`
	ADXPeriod      int `json:"adx_period" yaml:"adx_period" mapstructure:"adx_period"`
	ATRPeriod      int `json:"atr_period" yaml:"atr_period" mapstructure:"atr_period"`
	SMMAPeriod     int `json:"smma_period" yaml:"smma_period" mapstructure:"smma_period"`
	SwingOrder     int `json:"swing_order" yaml:"swing_order" mapstructure:"swing_order"`
}

func DefaultParams() Params {
	return Params{
		GaussianPeriod: 26,
		KijunPeriod:    100,
		VAPIPeriod:     13,
		ADXPeriod:      14,
		ATRPeriod:      14,
		SMMAPeriod:     200,
		SwingOrder:     55,
	}
}

func (p Params) Validate() error {
	for name, v := range map[string]int{
		"gaussian_period": p.GaussianPeriod,
		"kijun_period":    p.KijunPeriod,
		"vapi_period":     p.VAPIPeriod,
		"adx_period":      p.ADXPeriod,
		"atr_period":      p.ATRPeriod,
		"smma_period":     p.SMMAPeriod,
		"swing_order":     p.SwingOrder,
	} {
		if v < 2 {
			return fmt.Errorf("%s must be >= 2", name)
		}
	}
	return nil
}

// Warmup returns the number of leading bars that cannot carry a full
// indicator set. ADX needs the longest relative window (2p-1).
func (p Params) Warmup() int {
	longest := p.GaussianPeriod
	for _, v := range []int{p.KijunPeriod, p.VAPIPeriod, 2*p.ADXPeriod - 1, p.ATRPeriod, p.SMMAPeriod, p.SwingOrder} {
		if v > longest {
			longest = v
		}
	}
	return longest
}

// Enrich converts raw candles into decision bars. Indicator fields are NaN
// until their lookback is satisfied; Bar.Complete gates on that downstream.
func Enrich(candles []market.Candle, p Params) ([]strategy.Bar, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(candles)
	if n == 0 {
		return nil, nil
	}
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	gauss := gaussianSmooth(closes, p.GaussianPeriod)
	kijun := midline(highs, lows, p.KijunPeriod)
	vapi := volumePressure(opens, closes, volumes, p.VAPIPeriod)
	smma := smoothedMA(closes, p.SMMAPeriod)
	swingLow := rollingMin(lows, p.SwingOrder)
	swingHigh := rollingMax(highs, p.SwingOrder)

	adx := maskWarmup(talib.Adx(highs, lows, closes, p.ADXPeriod), 2*p.ADXPeriod-1)
	atr := maskWarmup(talib.Atr(highs, lows, closes, p.ATRPeriod), p.ATRPeriod)

	bars := make([]strategy.Bar, n)
	for i, c := range candles {
		bars[i] = strategy.Bar{
			OpenTime:  c.OpenTime,
			CloseTime: c.CloseTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Gauss:     gauss[i],
			Kijun:     kijun[i],
			VAPI:      vapi[i],
			ADX:       adx[i],
			SMMA:      smma[i],
			ATR:       atr[i],
			SwingLow:  swingLow[i],
			SwingHigh: swingHigh[i],
		}
	}
	return bars, nil
}

// maskWarmup replaces the leading lookback values with NaN. talib emits
// zeros there, which would read as real prices downstream.
func maskWarmup(series []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}
