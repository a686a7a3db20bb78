package strategy

import "math"

// SizePosition returns the contract count for an entry at entry with the
// given stop, or 0 when the setup must be skipped. Pure.
//
// With FixedNotional set the size is notional/price (at least one contract).
// Otherwise the size risks equity*RiskFraction across the stop distance,
// scaled by the contract multiplier, floored. A zero return means "do not
// enter" and must not consume a daily trade slot.
func SizePosition(entry, stop, equity float64, cfg Config) int {
	if entry <= 0 {
		return 0
	}
	if cfg.FixedNotional > 0 {
		size := int(math.Floor(cfg.FixedNotional / entry))
		if size < 1 {
			size = 1
		}
		return size
	}
	distance := math.Abs(entry - stop)
	if distance <= 0 {
		return 0
	}
	riskAmount := equity * cfg.RiskFraction
	raw := riskAmount / (distance * cfg.ContractMultiplier)
	size := int(math.Floor(raw))
	if size < 0 {
		return 0
	}
	return size
}
