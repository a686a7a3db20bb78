package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ResultStore persists runs, orders, trades, snapshots and decision events
// in a single sqlite file.
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &orderModel{}, &tradeModel{}, &snapshotModel{}, &eventModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// WAL allows concurrent HTTP reads while a run is writing.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	m, err := runToModel(run)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *ResultStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	now := time.Now().UnixMilli()
	updates := map[string]any{
		"status":     status,
		"message":    message,
		"updated_at": now,
	}
	if status == RunStatusDone || status == RunStatusFailed {
		updates["completed_at"] = now
	}
	return s.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", id).Updates(updates).Error
}

func (s *ResultStore) UpdateRunSummary(ctx context.Context, id, status string, stats RunStats, message string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	updates := map[string]any{
		"status":        status,
		"final_balance": stats.FinalBalance,
		"stats_json":    datatypes.JSON(statsJSON),
		"message":       message,
		"updated_at":    now,
	}
	if status == RunStatusDone || status == RunStatusFailed {
		updates["completed_at"] = now
	}
	return s.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", id).Updates(updates).Error
}

func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	var m runModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return Run{}, err
	}
	return runFromModel(m)
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		run, err := runFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *ResultStore) InsertOrder(ctx context.Context, order *Order) error {
	m := orderModel{
		RunID:    order.RunID,
		Action:   order.Action,
		Side:     order.Side,
		Type:     order.Type,
		Price:    order.Price,
		Quantity: order.Quantity,
		Notional: order.Notional,
		Fee:      order.Fee,
		Reason:   order.Reason,
		PlacedAt: order.PlacedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	order.ID = m.ID
	return nil
}

func (s *ResultStore) ListOrders(ctx context.Context, runID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var models []orderModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("id ASC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(models))
	for _, m := range models {
		out = append(out, Order{
			ID: m.ID, RunID: m.RunID, Action: m.Action, Side: m.Side, Type: m.Type,
			Price: m.Price, Quantity: m.Quantity, Notional: m.Notional, Fee: m.Fee,
			Reason: m.Reason, PlacedAt: m.PlacedAt,
		})
	}
	return out, nil
}

func (s *ResultStore) InsertTrade(ctx context.Context, trade *Trade) error {
	m := tradeModel{
		RunID:      trade.RunID,
		Symbol:     trade.Symbol,
		Side:       trade.Side,
		EntryPrice: trade.EntryPrice,
		ExitPrice:  trade.ExitPrice,
		Quantity:   trade.Quantity,
		PnL:        trade.PnL,
		Fee:        trade.Fee,
		Reason:     trade.Reason,
		Final:      trade.Final,
		OpenedAt:   trade.OpenedAt,
		ClosedAt:   trade.ClosedAt,
		HoldingMs:  trade.HoldingMs,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	trade.ID = m.ID
	return nil
}

func (s *ResultStore) ListTrades(ctx context.Context, runID string, limit int) ([]Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var models []tradeModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("id ASC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]Trade, 0, len(models))
	for _, m := range models {
		out = append(out, Trade{
			ID: m.ID, RunID: m.RunID, Symbol: m.Symbol, Side: m.Side,
			EntryPrice: m.EntryPrice, ExitPrice: m.ExitPrice, Quantity: m.Quantity,
			PnL: m.PnL, Fee: m.Fee, Reason: m.Reason, Final: m.Final,
			OpenedAt: m.OpenedAt, ClosedAt: m.ClosedAt, HoldingMs: m.HoldingMs,
		})
	}
	return out, nil
}

func (s *ResultStore) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	m := snapshotModel{
		RunID:    snap.RunID,
		TS:       snap.TS,
		Equity:   snap.Equity,
		Balance:  snap.Balance,
		Drawdown: snap.Drawdown,
		Exposure: snap.Exposure,
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *ResultStore) ListSnapshots(ctx context.Context, runID string, limit int) ([]Snapshot, error) {
	if limit <= 0 || limit > 5000 {
		limit = 2000
	}
	var models []snapshotModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("ts ASC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(models))
	for _, m := range models {
		out = append(out, Snapshot{
			ID: m.ID, RunID: m.RunID, TS: m.TS, Equity: m.Equity,
			Balance: m.Balance, Drawdown: m.Drawdown, Exposure: m.Exposure,
		})
	}
	return out, nil
}

func (s *ResultStore) InsertEvents(ctx context.Context, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	models := make([]eventModel, 0, len(events))
	for _, ev := range events {
		models = append(models, eventModel{
			RunID:    ev.RunID,
			TS:       ev.TS,
			Type:     ev.Type,
			Side:     ev.Side,
			Quantity: ev.Quantity,
			Price:    ev.Price,
			Note:     ev.Note,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

func (s *ResultStore) ListEvents(ctx context.Context, runID string, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	var models []eventModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("ts ASC, id ASC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]EventRecord, 0, len(models))
	for _, m := range models {
		out = append(out, EventRecord{
			ID: m.ID, RunID: m.RunID, TS: m.TS, Type: m.Type, Side: m.Side,
			Quantity: m.Quantity, Price: m.Price, Note: m.Note,
		})
	}
	return out, nil
}

func runToModel(run Run) (runModel, error) {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return runModel{}, err
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return runModel{}, err
	}
	now := time.Now().UnixMilli()
	m := runModel{
		ID:             run.ID,
		Symbol:         run.Symbol,
		Profile:        run.Profile,
		Status:         run.Status,
		Timeframe:      run.Timeframe,
		StartTS:        run.StartTS,
		EndTS:          run.EndTS,
		InitialBalance: run.InitialBalance,
		FinalBalance:   run.FinalBalance,
		Message:        run.Message,
		ConfigJSON:     datatypes.JSON(cfgJSON),
		StatsJSON:      datatypes.JSON(statsJSON),
		CreatedAtUnix:  now,
		UpdatedAtUnix:  now,
	}
	if !run.CompletedAt.IsZero() {
		ms := run.CompletedAt.UnixMilli()
		m.CompletedAt = &ms
	}
	return m, nil
}

func runFromModel(m runModel) (Run, error) {
	run := Run{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Profile:        m.Profile,
		Status:         m.Status,
		Timeframe:      m.Timeframe,
		StartTS:        m.StartTS,
		EndTS:          m.EndTS,
		InitialBalance: m.InitialBalance,
		FinalBalance:   m.FinalBalance,
		Message:        m.Message,
		CreatedAt:      time.UnixMilli(m.CreatedAtUnix),
		UpdatedAt:      time.UnixMilli(m.UpdatedAtUnix),
	}
	if m.CompletedAt != nil {
		run.CompletedAt = time.UnixMilli(*m.CompletedAt)
	}
	if len(m.ConfigJSON) > 0 {
		if err := json.Unmarshal(m.ConfigJSON, &run.Config); err != nil {
			return Run{}, err
		}
	}
	if len(m.StatsJSON) > 0 {
		if err := json.Unmarshal(m.StatsJSON, &run.Stats); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}
