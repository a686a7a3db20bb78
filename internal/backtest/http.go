package backtest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"arabica/internal/market"
	"arabica/internal/profile"
	"arabica/internal/report"

	"github.com/gin-gonic/gin"
)

// HTTPServer exposes run submission and result queries.
type HTTPServer struct {
	addr      string
	sim       *Simulator
	results   *ResultStore
	store     *market.Store
	source    market.Source
	profiles  *profile.Registry
	reportDir string
	router    *gin.Engine
}

type HTTPConfig struct {
	Addr      string
	Simulator *Simulator
	Results   *ResultStore
	Candles   *market.Store
	Source    market.Source
	Profiles  *profile.Registry
	ReportDir string
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Simulator == nil || cfg.Results == nil {
		return nil, errors.New("simulator and result store are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9975"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		addr:      cfg.Addr,
		sim:       cfg.Simulator,
		results:   cfg.Results,
		store:     cfg.Candles,
		source:    cfg.Source,
		profiles:  cfg.Profiles,
		reportDir: cfg.ReportDir,
		router:    router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	api := s.router.Group("/api/backtest")
	api.POST("/runs", s.handleRunStart)
	api.POST("/batch", s.handleBatch)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/orders", s.handleRunOrders)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/snapshots", s.handleRunSnapshots)
	api.GET("/runs/:id/events", s.handleRunEvents)
	api.GET("/runs/:id/report", s.handleRunReport)
	api.GET("/candles", s.handleCandles)
	api.GET("/candles/gaps", s.handleCandleGaps)
	api.POST("/candles/backfill", s.handleBackfill)
	api.GET("/manifest", s.handleManifest)
	s.router.GET("/api/profiles", s.handleProfiles)
	s.router.GET("/api/timeframes", s.handleTimeframes)
}

func (s *HTTPServer) handleRunStart(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.sim.StartRun(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *HTTPServer) handleBatch(c *gin.Context) {
	var req struct {
		Symbols        []string `json:"symbols" binding:"required"`
		Profile        string   `json:"profile"`
		Timeframe      string   `json:"timeframe"`
		StartTS        int64    `json:"start_ts" binding:"required"`
		EndTS          int64    `json:"end_ts" binding:"required"`
		InitialBalance float64  `json:"initial_balance"`
		FeeRate        float64  `json:"fee_rate"`
		SlippageBps    float64  `json:"slippage_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	runs, err := s.sim.RunBatch(c.Request.Context(), req.Symbols, RunRequest{
		Profile:        req.Profile,
		Timeframe:      req.Timeframe,
		StartTS:        req.StartTS,
		EndTS:          req.EndTS,
		InitialBalance: req.InitialBalance,
		FeeRate:        req.FeeRate,
		SlippageBps:    req.SlippageBps,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "runs": runs})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *HTTPServer) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *HTTPServer) handleRunDetail(c *gin.Context) {
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *HTTPServer) handleRunOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	orders, err := s.results.ListOrders(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *HTTPServer) handleRunTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	trades, err := s.results.ListTrades(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *HTTPServer) handleRunSnapshots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "2000"))
	snaps, err := s.results.ListSnapshots(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

func (s *HTTPServer) handleRunEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "1000"))
	events, err := s.results.ListEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *HTTPServer) handleRunReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	run, err := s.results.GetRun(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	snaps, err := s.results.ListSnapshots(ctx, id, 5000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	trades, err := s.results.ListTrades(ctx, id, 500)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	input := reportInput(run, snaps, trades)
	if c.Query("save") == "true" && s.reportDir != "" {
		path, err := report.Write(s.reportDir, input)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
		return
	}
	html, err := report.Render(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *HTTPServer) handleCandles(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle store not configured"})
		return
	}
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and timeframe are required"})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	candles, err := s.store.Range(c.Request.Context(), symbol, tf, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": candles})
}

func (s *HTTPServer) handleCandleGaps(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle store not configured"})
		return
	}
	symbol := c.Query("symbol")
	tf, err := market.ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start_ts"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_ts"), 10, 64)
	missing, err := market.MissingOpenTimes(c.Request.Context(), s.store, symbol, tf, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missing": missing, "count": len(missing)})
}

func (s *HTTPServer) handleBackfill(c *gin.Context) {
	if s.store == nil || s.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle source not configured"})
		return
	}
	var req struct {
		Symbol    string `json:"symbol" binding:"required"`
		Timeframe string `json:"timeframe" binding:"required"`
		StartTS   int64  `json:"start_ts" binding:"required"`
		EndTS     int64  `json:"end_ts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tf, err := market.ParseTimeframe(req.Timeframe)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stored, err := market.Backfill(c.Request.Context(), s.source, s.store, req.Symbol, tf, req.StartTS, req.EndTS)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "stored": stored})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": stored})
}

func (s *HTTPServer) handleManifest(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle store not configured"})
		return
	}
	symbol := c.Query("symbol")
	tf := c.Query("timeframe")
	if symbol == "" || tf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and timeframe are required"})
		return
	}
	info, err := s.store.Manifest(c.Request.Context(), symbol, tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": info})
}

func (s *HTTPServer) handleProfiles(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profiles not configured"})
		return
	}
	snap := s.profiles.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version,
		"presets":  snap.Presets,
		"loadedAt": snap.LoadedAt,
	})
}

func (s *HTTPServer) handleTimeframes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timeframes": market.SupportedTimeframes()})
}

// Handler exposes the routed mux, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func reportInput(run Run, snaps []Snapshot, trades []Trade) report.Input {
	points := make([]report.EquityPoint, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, report.EquityPoint{
			TS:       s.TS,
			Equity:   s.Equity,
			Drawdown: s.Drawdown,
		})
	}
	markers := make([]report.TradeMarker, 0, len(trades))
	for _, t := range trades {
		markers = append(markers, report.TradeMarker{
			TS:    t.ClosedAt,
			Price: t.ExitPrice,
			Side:  t.Side,
			PnL:   t.PnL,
			Final: t.Final,
		})
	}
	return report.Input{
		Title:          run.Symbol + " " + run.Timeframe + " (" + run.Profile + ")",
		RunID:          run.ID,
		InitialBalance: run.InitialBalance,
		Equity:         points,
		Trades:         markers,
	}
}
