package backtest

import (
	"time"

	"arabica/internal/indicator"
	"arabica/internal/strategy"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig is the frozen parameter snapshot for one run. Profile edits
// after submission never touch it.
type RunConfig struct {
	Profile         string           `json:"profile"`
	Symbol          string           `json:"symbol"`
	Timeframe       string           `json:"timeframe"`
	StartTS         int64            `json:"start_ts"`
	EndTS           int64            `json:"end_ts"`
	InitialBalance  float64          `json:"initial_balance"`
	FeeRate         float64          `json:"fee_rate"`
	SlippageBps     float64          `json:"slippage_bps"`
	WarmupLookback  int              `json:"warmup_lookback"`
	PersistEvents   bool             `json:"persist_events"`
	ForceCloseAtEnd bool             `json:"force_close_at_end"`
	Strategy        strategy.Config  `json:"strategy"`
	Indicator       indicator.Params `json:"indicator"`
	Notes           string           `json:"notes,omitempty"`
}

// RunStats summarizes the finished equity curve.
type RunStats struct {
	FinalBalance      float64   `json:"final_balance"`
	Profit            float64   `json:"profit"`
	ReturnPct         float64   `json:"return_pct"`
	WinRate           float64   `json:"win_rate"`
	MaxDrawdownPct    float64   `json:"max_drawdown_pct"`
	Orders            int       `json:"orders"`
	Trades            int       `json:"trades"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	AvgHoldingMinutes float64   `json:"avg_holding_minutes"`
	Snapshots         int       `json:"snapshots"`
	EquityPeak        float64   `json:"equity_peak"`
	EquityValley      float64   `json:"equity_valley"`
	FinishedAt        time.Time `json:"finished_at"`
}

// Run is one simulation task.
type Run struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Profile        string    `json:"profile"`
	Status         string    `json:"status"`
	Timeframe      string    `json:"timeframe"`
	StartTS        int64     `json:"start_ts"`
	EndTS          int64     `json:"end_ts"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	Message        string    `json:"message"`
	Config         RunConfig `json:"config"`
	Stats          RunStats  `json:"stats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Order is one simulated fill.
type Order struct {
	ID       int64   `json:"id"`
	RunID    string  `json:"run_id"`
	Action   string  `json:"action"` // open_long/partial_close_long/close_short/...
	Side     string  `json:"side"`
	Type     string  `json:"type"` // market or limit
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Notional float64 `json:"notional"`
	Fee      float64 `json:"fee"`
	Reason   string  `json:"reason,omitempty"`
	PlacedAt int64   `json:"placed_at"`
}

// Trade is one realized exit, partial or final.
type Trade struct {
	ID         int64   `json:"id"`
	RunID      string  `json:"run_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Quantity   int     `json:"quantity"`
	PnL        float64 `json:"pnl"`
	Fee        float64 `json:"fee"`
	Reason     string  `json:"reason"`
	Final      bool    `json:"final"`
	OpenedAt   int64   `json:"opened_at"`
	ClosedAt   int64   `json:"closed_at"`
	HoldingMs  int64   `json:"holding_ms"`
}

// Snapshot is one equity-curve point.
type Snapshot struct {
	ID       int64   `json:"id"`
	RunID    string  `json:"run_id"`
	TS       int64   `json:"ts"`
	Equity   float64 `json:"equity"`
	Balance  float64 `json:"balance"`
	Drawdown float64 `json:"drawdown"`
	Exposure float64 `json:"exposure"`
}

// EventRecord persists one engine decision for replay inspection.
type EventRecord struct {
	ID       int64   `json:"id"`
	RunID    string  `json:"run_id"`
	TS       int64   `json:"ts"`
	Type     string  `json:"type"`
	Side     string  `json:"side,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// RunRequest is the HTTP submission payload.
type RunRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	Profile        string  `json:"profile"`
	Timeframe      string  `json:"timeframe"`
	StartTS        int64   `json:"start_ts" binding:"required"`
	EndTS          int64   `json:"end_ts" binding:"required"`
	InitialBalance float64 `json:"initial_balance"`
	// FeeRate and SlippageBps values <= 0 fall back to the configured
	// defaults. A literal zero-fee run needs fee_rate: 0 in the app
	// config, not in the request.
	FeeRate     float64 `json:"fee_rate"`
	SlippageBps float64 `json:"slippage_bps"`
}
