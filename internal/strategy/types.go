package strategy

import (
	"fmt"
	"math"
	"time"
)

// Side of an open position.
type Side int

const (
	SideLong Side = iota + 1
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "unknown"
	}
}

// Sign returns +1 for long, -1 for short. Favorable moves are sign-positive.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// EntrySignal is the outcome of entry evaluation for one bar.
type EntrySignal int

const (
	SignalNone EntrySignal = iota
	SignalLong
	SignalShort
)

func (s EntrySignal) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "none"
	}
}

// Bar is one execution-timeframe candle plus the indicator values computed
// for its timestamp. Indicator fields are NaN while their lookback window is
// still warming up; Complete reports whether the bar is usable for decisions.
type Bar struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`

	Gauss     float64 `json:"gauss"`
	Kijun     float64 `json:"kijun"`
	VAPI      float64 `json:"vapi"`
	ADX       float64 `json:"adx"`
	SMMA      float64 `json:"smma"`
	ATR       float64 `json:"atr"`
	SwingLow  float64 `json:"swing_low"`
	SwingHigh float64 `json:"swing_high"`
}

// Complete reports whether every decision-relevant field is a finite number.
func (b Bar) Complete() bool {
	for _, v := range []float64{
		b.Open, b.High, b.Low, b.Close,
		b.Gauss, b.Kijun, b.VAPI, b.ADX, b.SMMA, b.ATR, b.SwingLow, b.SwingHigh,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Day returns the UTC calendar date of the bar close, used for the daily
// trade-count rollover.
func (b Bar) Day() string {
	return time.UnixMilli(b.CloseTime).UTC().Format("2006-01-02")
}

// Config holds the per-run strategy parameters. It is frozen for the life of
// a run; profiles (internal/profile) only affect runs started afterwards.
type Config struct {
	// FixedNotional, when > 0, sizes every entry as notional/price and
	// overrides risk-based sizing.
	FixedNotional float64 `json:"fixed_notional" yaml:"fixed_notional" mapstructure:"fixed_notional"`
	// RiskFraction is the fraction of account equity risked per trade.
	RiskFraction float64 `json:"risk_fraction" yaml:"risk_fraction" mapstructure:"risk_fraction"`
	// TPRMultiple expresses the first take-profit (and the breakeven
	// trigger) as a multiple of the initial risk distance.
	TPRMultiple float64 `json:"tp_r_multiple" yaml:"tp_r_multiple" mapstructure:"tp_r_multiple"`
	// TrailingATRMult scales the entry-time ATR into the trailing distance.
	TrailingATRMult float64 `json:"trailing_atr_mult" yaml:"trailing_atr_mult" mapstructure:"trailing_atr_mult"`
	// ADXThreshold gates all entries on trend strength.
	ADXThreshold float64 `json:"adx_threshold" yaml:"adx_threshold" mapstructure:"adx_threshold"`
	// ContractMultiplier is the currency value of one price point per contract.
	ContractMultiplier float64 `json:"contract_multiplier" yaml:"contract_multiplier" mapstructure:"contract_multiplier"`
	// MinBars is the number of bars that must be observed before entries.
	MinBars int `json:"min_bars" yaml:"min_bars" mapstructure:"min_bars"`
	// MaxTradesPerDay caps entries per UTC calendar day.
	MaxTradesPerDay int `json:"max_trades_per_day" yaml:"max_trades_per_day" mapstructure:"max_trades_per_day"`
	// PartialExitRatio is the fraction of the entry size closed at the first
	// take-profit.
	PartialExitRatio float64 `json:"partial_exit_ratio" yaml:"partial_exit_ratio" mapstructure:"partial_exit_ratio"`
}

func (c Config) Validate() error {
	if c.FixedNotional < 0 {
		return fmt.Errorf("fixed_notional must be >= 0")
	}
	if c.FixedNotional == 0 && (c.RiskFraction <= 0 || c.RiskFraction >= 1) {
		return fmt.Errorf("risk_fraction must be in (0, 1) when fixed_notional is unset")
	}
	if c.TPRMultiple <= 0 {
		return fmt.Errorf("tp_r_multiple must be > 0")
	}
	if c.TrailingATRMult <= 0 {
		return fmt.Errorf("trailing_atr_mult must be > 0")
	}
	if c.ContractMultiplier <= 0 {
		return fmt.Errorf("contract_multiplier must be > 0")
	}
	if c.MinBars < 0 {
		return fmt.Errorf("min_bars must be >= 0")
	}
	if c.MaxTradesPerDay <= 0 {
		return fmt.Errorf("max_trades_per_day must be > 0")
	}
	if c.PartialExitRatio < 0 || c.PartialExitRatio >= 1 {
		return fmt.Errorf("partial_exit_ratio must be in [0, 1)")
	}
	return nil
}

// IntentKind classifies an order intent handed to the broker.
type IntentKind string

const (
	IntentOpen         IntentKind = "open"
	IntentPartialClose IntentKind = "partial_close"
	IntentClose        IntentKind = "close"
)

// Close reason tags, set once per trade.
const (
	CloseReasonStopLoss   = "stop-loss"
	CloseReasonTrendBreak = "trend-break"
	CloseReasonForced     = "forced"
)

// Intent is an order instruction emitted by the engine. Open and Close are
// market intents; PartialClose is a limit at Price.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Side     Side       `json:"side"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Broker executes intents and reports account equity. Submit returns an
// error to signal rejection; fills and cancellations come back through the
// engine's On* notifications.
type Broker interface {
	Equity() float64
	Submit(intent Intent) error
}

// Event records one engine decision so a run can be reconstructed bar by bar.
type Event struct {
	Time     int64   `json:"ts"`
	Type     string  `json:"type"`
	Side     string  `json:"side,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// Event types.
const (
	EventDataGap    = "data_gap"
	EventEntry      = "entry"
	EventSkip       = "entry_skip"
	EventBreakeven  = "breakeven"
	EventTrail      = "trail"
	EventPartialTP  = "partial_tp"
	EventTrendBreak = "trend_break"
	EventStopLoss   = "stop_loss"
	EventForcedExit = "forced_exit"
	EventReject     = "reject"
)
