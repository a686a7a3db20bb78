package strategy

// Position is the mutable state of the single open trade. It exists only
// between a confirmed open and a confirmed full close and is owned
// exclusively by the Engine.
type Position struct {
	Side        Side    `json:"side"`
	EntryPrice  float64 `json:"entry_price"`
	InitialStop float64 `json:"initial_stop"`
	CurrentStop float64 `json:"current_stop"`
	TakeProfit  float64 `json:"take_profit"`

	// EntryRisk and InitialATR are fixed at entry. Breakeven and trailing
	// levels derive from them and from ExtremeSinceEntry, never from the
	// live stop.
	EntryRisk  float64 `json:"entry_risk"`
	InitialATR float64 `json:"initial_atr"`

	BreakevenActive   bool    `json:"breakeven_active"`
	ExtremeSinceEntry float64 `json:"extreme_since_entry"`
	PartialExitDone   bool    `json:"partial_exit_done"`
	CloseReason       string  `json:"close_reason,omitempty"`

	OpenSize    int   `json:"open_size"`
	SizeAtEntry int   `json:"size_at_entry"`
	OpenedAt    int64 `json:"opened_at"`
}

// updateExtreme folds the bar's high (long) or low (short) into the best
// price seen since entry.
func (p *Position) updateExtreme(bar Bar) {
	if p.Side == SideLong {
		if bar.High > p.ExtremeSinceEntry {
			p.ExtremeSinceEntry = bar.High
		}
		return
	}
	if bar.Low < p.ExtremeSinceEntry {
		p.ExtremeSinceEntry = bar.Low
	}
}

// raiseStop moves the stop to level. The stop is a one-way ratchet: it only
// ever tightens (up for longs, down for shorts); an adverse move is a logic
// defect, not a data condition.
func (p *Position) raiseStop(level float64) {
	if p.Side == SideLong {
		invariant(decimalGTE(level, p.CurrentStop),
			"long stop moved down: %.6f -> %.6f", p.CurrentStop, level)
	} else {
		invariant(decimalLTE(level, p.CurrentStop),
			"short stop moved up: %.6f -> %.6f", p.CurrentStop, level)
	}
	p.CurrentStop = level
}

// stopImproves reports whether level tightens the stop versus the current one.
func (p *Position) stopImproves(level float64) bool {
	if p.Side == SideLong {
		return decimalGT(level, p.CurrentStop)
	}
	return decimalLT(level, p.CurrentStop)
}

// targetReached reports whether the bar's favorable extreme touched the
// first take-profit level.
func (p *Position) targetReached(bar Bar) bool {
	if p.Side == SideLong {
		return decimalGTE(bar.High, p.TakeProfit)
	}
	return decimalLTE(bar.Low, p.TakeProfit)
}

// stopHit reports whether the bar's close crossed through the current stop
// against the position.
func (p *Position) stopHit(bar Bar) bool {
	if p.Side == SideLong {
		return decimalLTE(bar.Close, p.CurrentStop)
	}
	return decimalGTE(bar.Close, p.CurrentStop)
}
