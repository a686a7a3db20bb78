package backtest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"arabica/internal/indicator"
	"arabica/internal/logger"
	"arabica/internal/market"
	"arabica/internal/profile"
	"arabica/internal/strategy"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults fill the optional RunRequest fields.
type Defaults struct {
	Timeframe       string
	InitialBalance  float64
	FeeRate         float64
	SlippageBps     float64
	WarmupLookback  int
	MaxConcurrent   int
	PersistEvents   bool
	ForceCloseAtEnd bool
	DefaultProfile  string
}

type SimulatorConfig struct {
	CandleStore *market.Store
	Results     *ResultStore
	Profiles    *profile.Registry
	Defaults    Defaults
}

// Simulator replays stored candles through the trade engine and records the
// resulting equity curve.
type Simulator struct {
	store    *market.Store
	results  *ResultStore
	profiles *profile.Registry
	defaults Defaults

	sem     chan struct{}
	baseCtx context.Context
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.CandleStore == nil {
		return nil, fmt.Errorf("candle store is required")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile registry is required")
	}
	maxConcurrent := cfg.Defaults.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Simulator{
		store:    cfg.CandleStore,
		results:  cfg.Results,
		profiles: cfg.Profiles,
		defaults: cfg.Defaults,
		sem:      make(chan struct{}, maxConcurrent),
		baseCtx:  context.Background(),
	}, nil
}

func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

func (s *Simulator) ctx() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// StartRun validates the request, inserts a pending run and returns
// immediately; the simulation happens in the background.
func (s *Simulator) StartRun(req RunRequest) (Run, error) {
	run, cfg, err := s.prepare(req)
	if err != nil {
		return Run{}, err
	}
	if err := s.results.InsertRun(s.ctx(), run); err != nil {
		return Run{}, err
	}
	go s.runLoop(run.ID, cfg)
	return run, nil
}

// RunBatch executes one run per symbol and waits for all of them. The
// worker semaphore still bounds parallelism.
func (s *Simulator) RunBatch(ctx context.Context, symbols []string, req RunRequest) ([]Run, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	runs := make([]Run, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		symReq := req
		symReq.Symbol = symbol
		run, cfg, err := s.prepare(symReq)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		if err := s.results.InsertRun(ctx, run); err != nil {
			return nil, err
		}
		runs[i] = run
		g.Go(func() error {
			s.sem <- struct{}{}
			defer func() { <-s.sem }()
			if err := gctx.Err(); err != nil {
				_ = s.results.UpdateRunStatus(s.ctx(), run.ID, RunStatusFailed, err.Error())
				return err
			}
			s.execute(run.ID, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return runs, err
	}
	for i := range runs {
		updated, err := s.results.GetRun(ctx, runs[i].ID)
		if err == nil {
			runs[i] = updated
		}
	}
	return runs, nil
}

func (s *Simulator) prepare(req RunRequest) (Run, RunConfig, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return Run{}, RunConfig{}, fmt.Errorf("symbol is required")
	}
	profileName := req.Profile
	if profileName == "" {
		profileName = s.defaults.DefaultProfile
	}
	preset, ok := s.profiles.Preset(profileName)
	if !ok {
		return Run{}, RunConfig{}, fmt.Errorf("unknown profile %q", profileName)
	}
	tfKey := req.Timeframe
	if tfKey == "" {
		tfKey = s.defaults.Timeframe
	}
	tf, err := market.ParseTimeframe(tfKey)
	if err != nil {
		return Run{}, RunConfig{}, err
	}
	start, end := tf.AlignRange(req.StartTS, req.EndTS)
	if start <= 0 || end <= start {
		return Run{}, RunConfig{}, fmt.Errorf("start/end range is invalid")
	}
	initial := req.InitialBalance
	if initial <= 0 {
		initial = s.defaults.InitialBalance
	}
	feeRate := req.FeeRate
	if feeRate <= 0 {
		feeRate = s.defaults.FeeRate
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = s.defaults.SlippageBps
	}
	lookback := s.defaults.WarmupLookback
	if warm := preset.Indicator.Warmup(); lookback < warm {
		lookback = warm
	}

	cfg := RunConfig{
		Profile:         preset.ID,
		Symbol:          symbol,
		Timeframe:       tf.Key,
		StartTS:         start,
		EndTS:           end,
		InitialBalance:  initial,
		FeeRate:         feeRate,
		SlippageBps:     slippage,
		WarmupLookback:  lookback,
		PersistEvents:   s.defaults.PersistEvents,
		ForceCloseAtEnd: s.defaults.ForceCloseAtEnd,
		Strategy:        preset.Strategy,
		Indicator:       preset.Indicator,
	}
	run := Run{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Profile:        preset.ID,
		Status:         RunStatusPending,
		Timeframe:      tf.Key,
		StartTS:        start,
		EndTS:          end,
		InitialBalance: initial,
		FinalBalance:   initial,
		Config:         cfg,
		Stats:          RunStats{FinalBalance: initial},
	}
	return run, cfg, nil
}

func (s *Simulator) runLoop(runID string, cfg RunConfig) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.execute(runID, cfg)
}

func (s *Simulator) execute(runID string, cfg RunConfig) {
	ctx := s.ctx()
	_ = s.results.UpdateRunStatus(ctx, runID, RunStatusRunning, "replaying candles")
	runner := &simRunner{store: s.store, results: s.results, cfg: cfg}
	stats, err := runner.Run(ctx, runID)
	if err != nil {
		logger.Warnf("[backtest] run %s failed: %v", runID, err)
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
		return
	}
	if err := s.results.UpdateRunSummary(ctx, runID, RunStatusDone, stats, "completed"); err != nil {
		logger.Warnf("[backtest] run %s summary write failed: %v", runID, err)
	}
}

type simRunner struct {
	store   *market.Store
	results *ResultStore
	cfg     RunConfig
}

func (r *simRunner) Run(ctx context.Context, runID string) (RunStats, error) {
	cfg := r.cfg
	tf, err := market.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return RunStats{}, err
	}
	warmStart := cfg.StartTS - int64(cfg.WarmupLookback)*tf.Step()
	if warmStart <= 0 {
		warmStart = 1
	}
	candles, err := r.store.Range(ctx, cfg.Symbol, tf.Key, warmStart, cfg.EndTS)
	if err != nil {
		return RunStats{}, err
	}
	if len(candles) == 0 {
		return RunStats{}, fmt.Errorf("no candles for %s@%s in range", cfg.Symbol, tf.Key)
	}
	bars, err := indicator.Enrich(candles, cfg.Indicator)
	if err != nil {
		return RunStats{}, err
	}

	broker, err := NewSimBroker(runID, cfg.Symbol, cfg.InitialBalance, cfg.FeeRate, cfg.SlippageBps, cfg.Strategy.ContractMultiplier)
	if err != nil {
		return RunStats{}, err
	}
	eng, err := strategy.NewEngine(cfg.Symbol, cfg.Strategy, broker)
	if err != nil {
		return RunStats{}, err
	}

	peak := cfg.InitialBalance
	valley := cfg.InitialBalance
	maxDD := 0.0
	snapshots := 0

	processBar := func(bar strategy.Bar, last bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		broker.SetBar(bar)
		eng.OnBar(bar)
		if last && cfg.ForceCloseAtEnd {
			eng.ForceClose(bar)
		}
		r.dispatchFills(eng, broker)
		r.persistActivity(ctx, runID, broker)
		if cfg.PersistEvents {
			r.persistEvents(ctx, runID, eng.Events())
		} else {
			eng.Events()
		}

		if bar.CloseTime < cfg.StartTS {
			return nil
		}
		equity := broker.Equity()
		peak = math.Max(peak, equity)
		if equity < valley {
			valley = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
		snap := Snapshot{
			RunID:    runID,
			TS:       bar.CloseTime,
			Equity:   equity,
			Balance:  broker.Balance(),
			Drawdown: maxDD,
			Exposure: broker.Exposure(cfg.InitialBalance),
		}
		if err := r.results.InsertSnapshot(ctx, snap); err != nil {
			logger.Warnf("[backtest] run %s snapshot write failed: %v", runID, err)
		} else {
			snapshots++
		}
		return nil
	}

	for i, bar := range bars {
		if err := processBar(bar, i == len(bars)-1); err != nil {
			return RunStats{}, err
		}
	}

	orders, trades, wins, losses := broker.Counts()
	finished := wins + losses
	winRate := 0.0
	if finished > 0 {
		winRate = float64(wins) / float64(finished)
	}
	avgHolding, err := r.avgHoldingMinutes(ctx, runID)
	if err != nil {
		logger.Warnf("[backtest] run %s holding stats failed: %v", runID, err)
	}
	balance := broker.Balance()
	stats := RunStats{
		FinalBalance:      balance,
		Profit:            balance - cfg.InitialBalance,
		ReturnPct:         (balance - cfg.InitialBalance) / cfg.InitialBalance,
		WinRate:           winRate,
		MaxDrawdownPct:    maxDD,
		Orders:            orders,
		Trades:            trades,
		Wins:              wins,
		Losses:            losses,
		AvgHoldingMinutes: avgHolding,
		Snapshots:         snapshots,
		EquityPeak:        peak,
		EquityValley:      valley,
		FinishedAt:        time.Now(),
	}
	return stats, nil
}

// dispatchFills forwards broker fills to the engine after the bar, keeping
// the at-emission / at-confirmation split observable in the event stream.
func (r *simRunner) dispatchFills(eng *strategy.Engine, broker *SimBroker) {
	for _, fill := range broker.DrainFills() {
		switch fill.Kind {
		case strategy.IntentPartialClose:
			eng.OnPartialFill(fill.Quantity)
		case strategy.IntentClose:
			eng.OnFullClose()
		}
	}
}

func (r *simRunner) persistActivity(ctx context.Context, runID string, broker *SimBroker) {
	for _, order := range broker.DrainOrders() {
		o := order
		if err := r.results.InsertOrder(ctx, &o); err != nil {
			logger.Warnf("[backtest] run %s order write failed: %v", runID, err)
		}
	}
	for _, trade := range broker.DrainTrades() {
		t := trade
		if err := r.results.InsertTrade(ctx, &t); err != nil {
			logger.Warnf("[backtest] run %s trade write failed: %v", runID, err)
		}
	}
}

func (r *simRunner) persistEvents(ctx context.Context, runID string, events []strategy.Event) {
	if len(events) == 0 {
		return
	}
	records := make([]EventRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, EventRecord{
			RunID:    runID,
			TS:       ev.Time,
			Type:     ev.Type,
			Side:     ev.Side,
			Quantity: ev.Quantity,
			Price:    ev.Price,
			Note:     ev.Note,
		})
	}
	if err := r.results.InsertEvents(ctx, records); err != nil {
		logger.Warnf("[backtest] run %s event write failed: %v", runID, err)
	}
}

func (r *simRunner) avgHoldingMinutes(ctx context.Context, runID string) (float64, error) {
	trades, err := r.results.ListTrades(ctx, runID, 500)
	if err != nil {
		return 0, err
	}
	var total float64
	var count int
	for _, t := range trades {
		if !t.Final {
			continue
		}
		total += float64(t.HoldingMs) / float64(time.Minute/time.Millisecond)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}
