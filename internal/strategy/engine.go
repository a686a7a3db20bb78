package strategy

import (
	"fmt"
	"math"

	"arabica/internal/logger"
)

// Engine owns the trade lifecycle for one instrument: flat -> open ->
// partially exited -> flat. Bars must arrive strictly in time order, one at
// a time; the engine is not safe for concurrent use. Separate instruments
// get separate engines and may run in parallel with each other.
type Engine struct {
	symbol string
	cfg    Config
	broker Broker

	barsSeen    int
	today       string
	tradesToday int

	// prev is the last complete bar; bars with indicator gaps never become
	// prev, so entry and trend-break comparisons always see usable data.
	prev    *Bar
	hasPrev bool

	pos *Position
	// exitPending marks an outstanding partial take-profit limit order, so
	// the same opportunity is not submitted twice while it rests.
	exitPending bool

	lastCloseReason string
	events          []Event
}

func NewEngine(symbol string, cfg Config, broker Broker) (*Engine, error) {
	if symbol == "" {
		return nil, fmt.Errorf("engine requires a symbol")
	}
	if broker == nil {
		return nil, fmt.Errorf("engine requires a broker")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy config invalid: %w", err)
	}
	return &Engine{symbol: symbol, cfg: cfg, broker: broker}, nil
}

// OnBar advances the state machine by one bar: day rollover, then entry
// evaluation when flat, or position management and exit checks when open.
func (e *Engine) OnBar(bar Bar) {
	e.rollDay(bar)
	e.barsSeen++

	if !bar.Complete() {
		// Data gaps skip the whole bar for decisions; the bar still counted
		// above for warm-up and day bookkeeping.
		e.record(Event{Time: bar.CloseTime, Type: EventDataGap})
		return
	}

	if e.pos == nil {
		e.tryEnter(bar)
	} else {
		e.manage(bar)
	}

	prev := bar
	e.prev = &prev
	e.hasPrev = true
}

func (e *Engine) rollDay(bar Bar) {
	day := bar.Day()
	if day != e.today {
		e.today = day
		e.tradesToday = 0
	}
}

func (e *Engine) tryEnter(bar Bar) {
	if !e.hasPrev {
		return
	}
	e.lastCloseReason = ""
	sig := EvaluateEntry(bar, *e.prev, e.cfg, e.barsSeen, e.tradesToday)
	if sig == SignalNone {
		return
	}
	side := SideLong
	stop := bar.SwingLow
	if sig == SignalShort {
		side = SideShort
		stop = bar.SwingHigh
	}
	size := SizePosition(bar.Close, stop, e.broker.Equity(), e.cfg)
	if size <= 0 {
		// Degenerate or dust-sized setup: skip without consuming a daily slot.
		e.record(Event{Time: bar.CloseTime, Type: EventSkip, Side: side.String(),
			Note: "size 0 for stop " + fmtPrice(stop)})
		return
	}
	if err := e.open(bar, side, size, stop); err != nil {
		e.record(Event{Time: bar.CloseTime, Type: EventReject, Side: side.String(),
			Quantity: size, Note: err.Error()})
	}
}

// ForceEntry opens a position outside the evaluator's gating (an external
// override). Sizing and position construction follow the same rules as a
// signalled entry, so every invariant still holds.
func (e *Engine) ForceEntry(bar Bar, side Side) error {
	if e.pos != nil {
		return fmt.Errorf("position already open")
	}
	if !bar.Complete() {
		return ErrDataGap
	}
	e.rollDay(bar)
	stop := bar.SwingLow
	if side == SideShort {
		stop = bar.SwingHigh
	}
	size := SizePosition(bar.Close, stop, e.broker.Equity(), e.cfg)
	if size <= 0 {
		return ErrDegenerateSetup
	}
	return e.open(bar, side, size, stop)
}

func (e *Engine) open(bar Bar, side Side, size int, stop float64) error {
	invariant(e.pos == nil, "entry while a position is open")
	risk := side.Sign() * (bar.Close - stop)
	if risk <= 0 {
		return ErrDegenerateSetup
	}
	if err := e.broker.Submit(Intent{Kind: IntentOpen, Side: side, Quantity: size}); err != nil {
		return fmt.Errorf("open rejected: %w", err)
	}
	tp := bar.Close + side.Sign()*e.cfg.TPRMultiple*risk
	e.pos = &Position{
		Side:              side,
		EntryPrice:        bar.Close,
		InitialStop:       stop,
		CurrentStop:       stop,
		TakeProfit:        tp,
		EntryRisk:         risk,
		InitialATR:        bar.ATR,
		ExtremeSinceEntry: bar.Close,
		OpenSize:          size,
		SizeAtEntry:       size,
		OpenedAt:          bar.CloseTime,
	}
	e.exitPending = false
	e.lastCloseReason = ""
	e.tradesToday++
	e.record(Event{Time: bar.CloseTime, Type: EventEntry, Side: side.String(),
		Quantity: size, Price: bar.Close,
		Note: "sl " + fmtPrice(stop) + " tp " + fmtPrice(tp)})
	logger.Debugf("[%s] %s entry %d@%s sl=%s tp=%s", e.symbol, side, size,
		fmtPrice(bar.Close), fmtPrice(stop), fmtPrice(tp))
	return nil
}

// manage runs the per-bar maintenance on the open position: extreme update,
// breakeven ratchet, ATR trail, partial take-profit, then the exit checks
// (trend-break before stop-loss; only one full close per bar).
func (e *Engine) manage(bar Bar) {
	pos := e.pos
	pos.updateExtreme(bar)

	// Breakeven triggers at the same R-multiple as the first take-profit
	// and never reverts once active.
	bePrice := pos.EntryPrice + pos.Side.Sign()*e.cfg.TPRMultiple*pos.EntryRisk
	beReached := decimalGTE(bar.High, bePrice)
	if pos.Side == SideShort {
		beReached = decimalLTE(bar.Low, bePrice)
	}
	if beReached && !pos.BreakevenActive {
		// The trail may already hold the stop past entry when the trailing
		// distance is shorter than the breakeven distance; activation then
		// only latches the flag, it never loosens the ratchet.
		if pos.stopImproves(pos.EntryPrice) {
			pos.raiseStop(pos.EntryPrice)
		}
		pos.BreakevenActive = true
		e.record(Event{Time: bar.CloseTime, Type: EventBreakeven, Side: pos.Side.String(),
			Price: pos.CurrentStop})
		logger.Debugf("[%s] breakeven active, stop %s", e.symbol, fmtPrice(pos.CurrentStop))
	}

	// Trail from the best price since entry using the ATR captured at
	// entry; adopt only when it tightens the stop.
	trail := pos.ExtremeSinceEntry - pos.Side.Sign()*e.cfg.TrailingATRMult*pos.InitialATR
	if pos.stopImproves(trail) {
		pos.raiseStop(trail)
		e.record(Event{Time: bar.CloseTime, Type: EventTrail, Side: pos.Side.String(),
			Price: trail})
		logger.Debugf("[%s] trail stop %s (extreme %s)", e.symbol,
			fmtPrice(trail), fmtPrice(pos.ExtremeSinceEntry))
	}

	e.maybePartialExit(bar)

	if pos.CloseReason != "" {
		return
	}
	if e.trendBroken(bar) {
		e.close(bar, CloseReasonTrendBreak, EventTrendBreak)
		return
	}
	if pos.stopHit(bar) {
		e.close(bar, CloseReasonStopLoss, EventStopLoss)
	}
}

func (e *Engine) maybePartialExit(bar Bar) {
	pos := e.pos
	if pos.PartialExitDone || e.exitPending || pos.CloseReason != "" {
		return
	}
	if !pos.targetReached(bar) {
		return
	}
	qty := int(math.Floor(float64(pos.SizeAtEntry) * e.cfg.PartialExitRatio))
	if qty <= 0 {
		// Too small to scale out; the opportunity is consumed either way.
		pos.PartialExitDone = true
		return
	}
	invariant(qty < pos.OpenSize, "partial exit %d would not leave a remainder of %d", qty, pos.OpenSize)
	err := e.broker.Submit(Intent{
		Kind:     IntentPartialClose,
		Side:     pos.Side,
		Quantity: qty,
		Price:    pos.TakeProfit,
	})
	if err != nil {
		// Rejected orders leave the pre-intent state intact so the same
		// opportunity can fire again on a later bar.
		e.record(Event{Time: bar.CloseTime, Type: EventReject, Side: pos.Side.String(),
			Quantity: qty, Note: err.Error()})
		return
	}
	pos.PartialExitDone = true
	e.exitPending = true
	e.record(Event{Time: bar.CloseTime, Type: EventPartialTP, Side: pos.Side.String(),
		Quantity: qty, Price: pos.TakeProfit})
	logger.Debugf("[%s] partial take-profit %d@%s", e.symbol, qty, fmtPrice(pos.TakeProfit))
}

// trendBroken reports a two-bar close beyond the kijun baseline against the
// position.
func (e *Engine) trendBroken(bar Bar) bool {
	if !e.hasPrev {
		return false
	}
	prev := *e.prev
	if e.pos.Side == SideLong {
		return bar.Close < bar.Kijun && prev.Close < prev.Kijun
	}
	return bar.Close > bar.Kijun && prev.Close > prev.Kijun
}

func (e *Engine) close(bar Bar, reason, eventType string) {
	pos := e.pos
	err := e.broker.Submit(Intent{
		Kind:     IntentClose,
		Side:     pos.Side,
		Quantity: pos.OpenSize,
		Reason:   reason,
	})
	if err != nil {
		e.record(Event{Time: bar.CloseTime, Type: EventReject, Side: pos.Side.String(),
			Quantity: pos.OpenSize, Note: err.Error()})
		return
	}
	pos.CloseReason = reason
	e.record(Event{Time: bar.CloseTime, Type: eventType, Side: pos.Side.String(),
		Quantity: pos.OpenSize, Price: bar.Close})
	logger.Debugf("[%s] close %s: %s", e.symbol, pos.Side, reason)
}

// ForceClose emits a full-close intent regardless of indicator state, e.g.
// at end of data. No-op when flat or when a close was already decided.
func (e *Engine) ForceClose(bar Bar) {
	if e.pos == nil || e.pos.CloseReason != "" {
		return
	}
	e.close(bar, CloseReasonForced, EventForcedExit)
}

// OnPartialFill confirms a partial take-profit fill. The remaining size
// shrinks once; the in-flight marker clears so a later stop or trend-break
// can still close the remainder.
func (e *Engine) OnPartialFill(qty int) {
	invariant(e.pos != nil, "partial fill with no open position")
	invariant(qty > 0 && qty < e.pos.OpenSize,
		"partial fill quantity %d out of range for open size %d", qty, e.pos.OpenSize)
	e.pos.OpenSize -= qty
	e.exitPending = false
}

// OnFullClose confirms the position is flat. The close reason stays readable
// through LastCloseReason until the next entry.
func (e *Engine) OnFullClose() {
	invariant(e.pos != nil, "full close with no open position")
	e.lastCloseReason = e.pos.CloseReason
	e.pos = nil
	e.exitPending = false
}

// OnCancel tells the engine a resting exit order was cancelled by the host,
// re-arming the corresponding exit path for later bars.
func (e *Engine) OnCancel(kind IntentKind) {
	switch kind {
	case IntentPartialClose:
		e.exitPending = false
		if e.pos != nil {
			e.pos.PartialExitDone = false
		}
	case IntentClose:
		if e.pos != nil {
			e.pos.CloseReason = ""
		}
	}
}

// Position returns a copy of the open position, or nil when flat.
func (e *Engine) Position() *Position {
	if e.pos == nil {
		return nil
	}
	snapshot := *e.pos
	return &snapshot
}

// LastCloseReason reports why the most recent trade closed; cleared when a
// new trade opens.
func (e *Engine) LastCloseReason() string { return e.lastCloseReason }

func (e *Engine) TradesToday() int { return e.tradesToday }
func (e *Engine) BarsSeen() int    { return e.barsSeen }

func (e *Engine) record(ev Event) {
	e.events = append(e.events, ev)
}

// Events drains the decision records accumulated since the last call.
func (e *Engine) Events() []Event {
	out := e.events
	e.events = nil
	return out
}

func fmtPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
