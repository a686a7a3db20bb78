package backtest

import (
	"gorm.io/datatypes"
)

type runModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Symbol         string         `gorm:"column:symbol;index"`
	Profile        string         `gorm:"column:profile"`
	Status         string         `gorm:"column:status;index"`
	Timeframe      string         `gorm:"column:timeframe"`
	StartTS        int64          `gorm:"column:start_ts"`
	EndTS          int64          `gorm:"column:end_ts"`
	InitialBalance float64        `gorm:"column:initial_balance"`
	FinalBalance   float64        `gorm:"column:final_balance"`
	Message        string         `gorm:"column:message"`
	ConfigJSON     datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	StatsJSON      datatypes.JSON `gorm:"column:stats_json;type:TEXT"`
	CreatedAtUnix  int64          `gorm:"column:created_at;index"`
	UpdatedAtUnix  int64          `gorm:"column:updated_at"`
	CompletedAt    *int64         `gorm:"column:completed_at"`
}

func (runModel) TableName() string { return "backtest_runs" }

type orderModel struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string  `gorm:"column:run_id;index"`
	Action   string  `gorm:"column:action"`
	Side     string  `gorm:"column:side"`
	Type     string  `gorm:"column:type"`
	Price    float64 `gorm:"column:price"`
	Quantity int     `gorm:"column:quantity"`
	Notional float64 `gorm:"column:notional"`
	Fee      float64 `gorm:"column:fee"`
	Reason   string  `gorm:"column:reason"`
	PlacedAt int64   `gorm:"column:placed_at"`
}

func (orderModel) TableName() string { return "backtest_orders" }

type tradeModel struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string  `gorm:"column:run_id;index"`
	Symbol     string  `gorm:"column:symbol"`
	Side       string  `gorm:"column:side"`
	EntryPrice float64 `gorm:"column:entry_price"`
	ExitPrice  float64 `gorm:"column:exit_price"`
	Quantity   int     `gorm:"column:quantity"`
	PnL        float64 `gorm:"column:pnl"`
	Fee        float64 `gorm:"column:fee"`
	Reason     string  `gorm:"column:reason"`
	Final      bool    `gorm:"column:final"`
	OpenedAt   int64   `gorm:"column:opened_at"`
	ClosedAt   int64   `gorm:"column:closed_at"`
	HoldingMs  int64   `gorm:"column:holding_ms"`
}

func (tradeModel) TableName() string { return "backtest_trades" }

type snapshotModel struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string  `gorm:"column:run_id;index:idx_snapshots_run_ts,priority:1"`
	TS       int64   `gorm:"column:ts;index:idx_snapshots_run_ts,priority:2"`
	Equity   float64 `gorm:"column:equity"`
	Balance  float64 `gorm:"column:balance"`
	Drawdown float64 `gorm:"column:drawdown"`
	Exposure float64 `gorm:"column:exposure"`
}

func (snapshotModel) TableName() string { return "backtest_snapshots" }

type eventModel struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string  `gorm:"column:run_id;index:idx_events_run_ts,priority:1"`
	TS       int64   `gorm:"column:ts;index:idx_events_run_ts,priority:2"`
	Type     string  `gorm:"column:type"`
	Side     string  `gorm:"column:side"`
	Quantity int     `gorm:"column:quantity"`
	Price    float64 `gorm:"column:price"`
	Note     string  `gorm:"column:note"`
}

func (eventModel) TableName() string { return "backtest_events" }
