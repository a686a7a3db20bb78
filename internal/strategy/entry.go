package strategy

// EvaluateEntry decides whether the current bar triggers a long or short
// entry. Pure: it inspects only its arguments and never mutates state.
//
// All signals require the warm-up count, the ADX trend filter, and the daily
// trade cap to pass. The long and short conditions are mutually exclusive by
// construction (rising vs. falling trend); long is checked first, so it wins
// if malformed indicator data ever made both hold.
func EvaluateEntry(bar, prev Bar, cfg Config, barsSeen, tradesToday int) EntrySignal {
	if !bar.Complete() || !prev.Complete() {
		return SignalNone
	}
	if barsSeen < cfg.MinBars {
		return SignalNone
	}
	if bar.ADX <= cfg.ADXThreshold {
		return SignalNone
	}
	if tradesToday >= cfg.MaxTradesPerDay {
		return SignalNone
	}

	gaussUp := bar.Gauss > prev.Gauss
	vapiUp := bar.VAPI > prev.VAPI

	// Long: trend and momentum rising, close above the long average and the
	// smoothed trend, and a swing low below price to anchor the stop.
	if gaussUp && vapiUp && bar.Close > bar.SMMA && bar.Close > bar.Gauss && bar.SwingLow < bar.Close {
		return SignalLong
	}
	// Short mirror.
	if !gaussUp && !vapiUp && bar.Close < bar.SMMA && bar.Close < bar.Gauss && bar.SwingHigh > bar.Close {
		return SignalShort
	}
	return SignalNone
}
