package indicator

import (
	"math"
)

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// gaussianSmooth applies a Gaussian-kernel weighted average over the trailing
// window. Heavier weight sits on recent closes, sigma fixed at period/6 so
// the kernel tails off within the window.
func gaussianSmooth(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period < 2 || len(values) < period {
		return out
	}
	weights := make([]float64, period)
	sigma := float64(period) / 6.0
	var sum float64
	for i := 0; i < period; i++ {
		// i counts back from the newest bar
		x := float64(i) / sigma
		weights[i] = math.Exp(-0.5 * x * x)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	for i := period - 1; i < len(values); i++ {
		var acc float64
		for j := 0; j < period; j++ {
			acc += weights[j] * values[i-j]
		}
		out[i] = acc
	}
	return out
}

// midline is the Ichimoku-style baseline: mean of the highest high and
// lowest low over the window.
func midline(highs, lows []float64, period int) []float64 {
	out := nanSeries(len(highs))
	hi := rollingMax(highs, period)
	lo := rollingMin(lows, period)
	for i := range out {
		if !math.IsNaN(hi[i]) && !math.IsNaN(lo[i]) {
			out[i] = (hi[i] + lo[i]) / 2
		}
	}
	return out
}

// volumePressure is a volume-weighted body momentum: the volume-weighted
// average of (close-open) over the window, normalized by total volume.
func volumePressure(opens, closes, volumes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if len(closes) < period {
		return out
	}
	for i := period - 1; i < len(closes); i++ {
		var body, vol float64
		for j := i - period + 1; j <= i; j++ {
			body += (closes[j] - opens[j]) * volumes[j]
			vol += volumes[j]
		}
		if vol > 0 {
			out[i] = body / vol
		} else {
			out[i] = 0
		}
	}
	return out
}

// smoothedMA is the Wilder smoothed moving average: seeded with a simple
// average, then prev + (value-prev)/period.
func smoothedMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if len(values) < period {
		return out
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[period-1] = prev
	for i := period; i < len(values); i++ {
		prev = prev + (values[i]-prev)/float64(period)
		out[i] = prev
	}
	return out
}

func rollingMin(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		m := values[i]
		for j := i - period + 1; j < i; j++ {
			if values[j] < m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollingMax(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		m := values[i]
		for j := i - period + 1; j < i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}
