package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResultStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string) Run {
	cfg := RunConfig{
		Profile:        "coffee-30m",
		Symbol:         "KCUSD",
		Timeframe:      "30m",
		StartTS:        1700000000000,
		EndTS:          1700100000000,
		InitialBalance: 100000,
		FeeRate:        0.0004,
	}
	return Run{
		ID:             id,
		Symbol:         "KCUSD",
		Profile:        "coffee-30m",
		Status:         RunStatusPending,
		Timeframe:      "30m",
		StartTS:        cfg.StartTS,
		EndTS:          cfg.EndTS,
		InitialBalance: cfg.InitialBalance,
		FinalBalance:   cfg.InitialBalance,
		Config:         cfg,
		Stats:          RunStats{FinalBalance: cfg.InitialBalance},
	}
}

func TestRunRoundtrip(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "KCUSD", got.Symbol)
	assert.Equal(t, RunStatusPending, got.Status)
	assert.Equal(t, "coffee-30m", got.Config.Profile, "config survives the JSON column")
	assert.Equal(t, 100000.0, got.Stats.FinalBalance)
	assert.True(t, got.CompletedAt.IsZero())

	_, err = store.GetRun(ctx, "missing")
	assert.Error(t, err)
}

func TestUpdateRunStatusStampsCompletion(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))

	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", RunStatusRunning, "replaying candles"))
	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.True(t, got.CompletedAt.IsZero(), "running is not terminal")

	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", RunStatusFailed, "no candles"))
	got, err = store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "no candles", got.Message)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestUpdateRunSummaryStoresStats(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))

	stats := RunStats{
		FinalBalance:   101300,
		Profit:         1300,
		ReturnPct:      0.013,
		WinRate:        0.5,
		MaxDrawdownPct: 0.02,
		Trades:         4,
		Wins:           2,
		Losses:         2,
	}
	require.NoError(t, store.UpdateRunSummary(ctx, "run-1", RunStatusDone, stats, "completed"))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, 101300.0, got.FinalBalance)
	assert.Equal(t, 0.5, got.Stats.WinRate)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestListRunsOrdersNewestFirst(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-2")))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, ids)
}

func TestOrderAndTradePersistence(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))

	order := Order{RunID: "run-1", Action: "open_long", Side: "long", Type: "market", Price: 400, Quantity: 100, Notional: 40000, Fee: 16, PlacedAt: 1700001800000}
	require.NoError(t, store.InsertOrder(ctx, &order))
	assert.NotZero(t, order.ID)

	trade := Trade{RunID: "run-1", Symbol: "KCUSD", Side: "long", EntryPrice: 400, ExitPrice: 420, Quantity: 30, PnL: 600, Reason: "partial_tp", OpenedAt: 1700001800000, ClosedAt: 1700005400000, HoldingMs: 3600000}
	require.NoError(t, store.InsertTrade(ctx, &trade))
	assert.NotZero(t, trade.ID)

	orders, err := store.ListOrders(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "open_long", orders[0].Action)

	trades, err := store.ListTrades(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 600.0, trades[0].PnL)
	assert.False(t, trades[0].Final)

	trades, err = store.ListTrades(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSnapshotAndEventPersistence(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1")))

	for i := 0; i < 3; i++ {
		snap := Snapshot{RunID: "run-1", TS: 1700000000000 + int64(i)*1800000, Equity: 100000 + float64(i)*10, Balance: 100000}
		require.NoError(t, store.InsertSnapshot(ctx, snap))
	}
	snaps, err := store.ListSnapshots(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Less(t, snaps[0].TS, snaps[2].TS, "snapshots come back in time order")

	events := []EventRecord{
		{RunID: "run-1", TS: 1700000000000, Type: "entry", Side: "long", Quantity: 100, Price: 400},
		{RunID: "run-1", TS: 1700001800000, Type: "breakeven", Side: "long", Price: 400},
	}
	require.NoError(t, store.InsertEvents(ctx, events))
	require.NoError(t, store.InsertEvents(ctx, nil), "empty batch is a no-op")

	got, err := store.ListEvents(ctx, "run-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "entry", got[0].Type)
	assert.Equal(t, "breakeven", got[1].Type)
}
