package backtest

import (
	"fmt"
	"math"

	"arabica/internal/strategy"
)

// Fill reports an executed intent back to the runner, which forwards it to
// the engine after the bar finishes.
type Fill struct {
	Kind     strategy.IntentKind
	Side     strategy.Side
	Quantity int
	Price    float64
	Reason   string
	Time     int64
}

type brokerPosition struct {
	side       strategy.Side
	entryPrice float64
	qty        int
	initialQty int
	openedAt   int64
	// net accumulates realized pnl minus all fees, entry fee included, so a
	// finished trade counts as a win only when it actually made money.
	net float64
}

// SimBroker fills intents against the current bar: market orders at the bar
// close with slippage, partial take-profits at their limit price. Fees are
// charged on notional both ways.
type SimBroker struct {
	symbol     string
	runID      string
	feeRate    float64
	slipRate   float64
	multiplier float64

	balance float64
	bar     strategy.Bar
	hasBar  bool
	pos     *brokerPosition

	fills  []Fill
	orders []Order
	trades []Trade

	orderCount int
	tradeCount int
	wins       int
	losses     int
}

func NewSimBroker(runID, symbol string, initial, feeRate, slippageBps, multiplier float64) (*SimBroker, error) {
	if initial <= 0 {
		return nil, fmt.Errorf("initial balance must be > 0")
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("contract multiplier must be > 0")
	}
	return &SimBroker{
		symbol:     symbol,
		runID:      runID,
		feeRate:    math.Max(feeRate, 0),
		slipRate:   math.Max(slippageBps, 0) / 10000,
		multiplier: multiplier,
		balance:    initial,
	}, nil
}

// SetBar points the broker at the bar currently being processed.
func (b *SimBroker) SetBar(bar strategy.Bar) {
	b.bar = bar
	b.hasBar = true
}

func (b *SimBroker) Equity() float64 {
	if !b.hasBar {
		return b.balance
	}
	return b.balance + b.unrealized(b.bar.Close)
}

func (b *SimBroker) Balance() float64 { return b.balance }

func (b *SimBroker) unrealized(price float64) float64 {
	if b.pos == nil {
		return 0
	}
	return b.pos.side.Sign() * (price - b.pos.entryPrice) * float64(b.pos.qty) * b.multiplier
}

// Exposure is the open notional relative to the given base, for snapshots.
func (b *SimBroker) Exposure(base float64) float64 {
	if b.pos == nil || base <= 0 {
		return 0
	}
	return math.Abs(b.pos.entryPrice * float64(b.pos.qty) * b.multiplier / base)
}

func (b *SimBroker) Submit(intent strategy.Intent) error {
	if !b.hasBar {
		return fmt.Errorf("no bar to fill against")
	}
	switch intent.Kind {
	case strategy.IntentOpen:
		return b.open(intent)
	case strategy.IntentPartialClose:
		return b.closePartial(intent)
	case strategy.IntentClose:
		return b.closeFull(intent)
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
}

func (b *SimBroker) open(intent strategy.Intent) error {
	if b.pos != nil {
		return fmt.Errorf("position already open")
	}
	if intent.Quantity <= 0 {
		return fmt.Errorf("open quantity must be > 0")
	}
	// Market entries pay slippage against the trade direction.
	price := b.bar.Close * (1 + intent.Side.Sign()*b.slipRate)
	notional := price * float64(intent.Quantity) * b.multiplier
	fee := notional * b.feeRate
	if fee >= b.balance {
		return fmt.Errorf("insufficient balance for entry fee")
	}
	b.balance -= fee
	b.pos = &brokerPosition{
		side:       intent.Side,
		entryPrice: price,
		qty:        intent.Quantity,
		initialQty: intent.Quantity,
		openedAt:   b.bar.CloseTime,
		net:        -fee,
	}
	b.recordOrder(intent, "market", price, intent.Quantity, notional, fee)
	b.fills = append(b.fills, Fill{
		Kind: intent.Kind, Side: intent.Side, Quantity: intent.Quantity,
		Price: price, Time: b.bar.CloseTime,
	})
	return nil
}

func (b *SimBroker) closePartial(intent strategy.Intent) error {
	if b.pos == nil {
		return fmt.Errorf("no open position")
	}
	if intent.Quantity <= 0 || intent.Quantity >= b.pos.qty {
		return fmt.Errorf("partial close quantity %d out of range", intent.Quantity)
	}
	if intent.Price <= 0 {
		return fmt.Errorf("partial close requires a limit price")
	}
	// Limit orders fill at their price; the bar already touched it.
	b.realize(intent, "limit", intent.Price, intent.Quantity, "partial_tp", false)
	return nil
}

func (b *SimBroker) closeFull(intent strategy.Intent) error {
	if b.pos == nil {
		return fmt.Errorf("no open position")
	}
	qty := b.pos.qty
	price := b.bar.Close * (1 - b.pos.side.Sign()*b.slipRate)
	b.realize(intent, "market", price, qty, intent.Reason, true)
	return nil
}

func (b *SimBroker) realize(intent strategy.Intent, orderType string, price float64, qty int, reason string, final bool) {
	pos := b.pos
	pnl := pos.side.Sign() * (price - pos.entryPrice) * float64(qty) * b.multiplier
	notional := price * float64(qty) * b.multiplier
	fee := notional * b.feeRate
	b.balance += pnl - fee
	pos.net += pnl - fee

	b.recordOrder(intent, orderType, price, qty, notional, fee)
	b.trades = append(b.trades, Trade{
		RunID:      b.runID,
		Symbol:     b.symbol,
		Side:       pos.side.String(),
		EntryPrice: pos.entryPrice,
		ExitPrice:  price,
		Quantity:   qty,
		PnL:        pnl - fee,
		Fee:        fee,
		Reason:     reason,
		Final:      final,
		OpenedAt:   pos.openedAt,
		ClosedAt:   b.bar.CloseTime,
		HoldingMs:  b.bar.CloseTime - pos.openedAt,
	})
	b.tradeCount++

	pos.qty -= qty
	if final || pos.qty <= 0 {
		if pos.net > 0 {
			b.wins++
		} else {
			b.losses++
		}
		b.pos = nil
	}
	b.fills = append(b.fills, Fill{
		Kind: intent.Kind, Side: intent.Side, Quantity: qty,
		Price: price, Reason: reason, Time: b.bar.CloseTime,
	})
}

func (b *SimBroker) recordOrder(intent strategy.Intent, orderType string, price float64, qty int, notional, fee float64) {
	b.orderCount++
	b.orders = append(b.orders, Order{
		RunID:    b.runID,
		Action:   string(intent.Kind) + "_" + intent.Side.String(),
		Side:     intent.Side.String(),
		Type:     orderType,
		Price:    price,
		Quantity: qty,
		Notional: notional,
		Fee:      fee,
		Reason:   intent.Reason,
		PlacedAt: b.bar.CloseTime,
	})
}

// DrainFills hands the fills since the last call to the runner.
func (b *SimBroker) DrainFills() []Fill {
	out := b.fills
	b.fills = nil
	return out
}

func (b *SimBroker) DrainOrders() []Order {
	out := b.orders
	b.orders = nil
	return out
}

func (b *SimBroker) DrainTrades() []Trade {
	out := b.trades
	b.trades = nil
	return out
}

func (b *SimBroker) Counts() (orders, trades, wins, losses int) {
	return b.orderCount, b.tradeCount, b.wins, b.losses
}
