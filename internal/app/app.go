// Package app wires the stores, the market source, the simulator and the
// HTTP layer together from one loaded config.
package app

import (
	"context"
	"fmt"
	"time"

	"arabica/internal/backtest"
	arcfg "arabica/internal/config"
	"arabica/internal/logger"
	"arabica/internal/market"
	"arabica/internal/profile"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg      *arcfg.Config
	candles  *market.Store
	results  *backtest.ResultStore
	profiles *profile.Registry
	source   market.Source
	sim      *backtest.Simulator
	http     *backtest.HTTPServer
}

func NewApp(cfg *arcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	candles, err := market.NewStore(cfg.Data.CandleRoot)
	if err != nil {
		return nil, fmt.Errorf("open candle store: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Data.ResultRoot)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	profiles, err := profile.NewRegistry(cfg.Profiles.Path)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	profiles.Subscribe(func(snap profile.Snapshot) {
		logger.Infof("[app] profiles reloaded: version=%d presets=%d", snap.Version, len(snap.Presets))
	})

	source, err := market.NewBinanceSource(market.BinanceOptions{
		BaseURL:  cfg.Market.RESTBaseURL,
		ProxyURL: cfg.Market.ProxyURL,
		Timeout:  time.Duration(cfg.Market.TimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("build market source: %w", err)
	}

	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		CandleStore: candles,
		Results:     results,
		Profiles:    profiles,
		Defaults: backtest.Defaults{
			Timeframe:       cfg.Backtest.Timeframe,
			InitialBalance:  cfg.Backtest.StartingEquity,
			FeeRate:         cfg.Backtest.FeeRate,
			SlippageBps:     cfg.Backtest.SlippageBps,
			WarmupLookback:  cfg.Backtest.WarmupLookback,
			MaxConcurrent:   cfg.Backtest.MaxConcurrent,
			PersistEvents:   cfg.Backtest.PersistEvents,
			ForceCloseAtEnd: cfg.Backtest.ForceCloseAtEnd,
			DefaultProfile:  cfg.Backtest.DefaultProfile,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build simulator: %w", err)
	}

	httpSrv, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:      cfg.App.HTTPAddr,
		Simulator: sim,
		Results:   results,
		Candles:   candles,
		Source:    source,
		Profiles:  profiles,
		ReportDir: cfg.Backtest.ReportDir,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		candles:  candles,
		results:  results,
		profiles: profiles,
		source:   source,
		sim:      sim,
		http:     httpSrv,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then closes the stores.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.sim.SetContext(ctx)
	logger.Infof("[app] listening on %s (env=%s, profiles=%s)",
		a.cfg.App.HTTPAddr, a.cfg.App.Env, a.cfg.Profiles.Path)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()

	if cerr := a.candles.Close(); cerr != nil {
		logger.Warnf("[app] candle store close: %v", cerr)
	}
	if cerr := a.results.Close(); cerr != nil {
		logger.Warnf("[app] result store close: %v", cerr)
	}
	return err
}

// Simulator exposes the run scheduler for embedding callers.
func (a *App) Simulator() *backtest.Simulator { return a.sim }
