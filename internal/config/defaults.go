package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9975"

	defaultCandleRoot = "data/candles"
	defaultResultRoot = "data/results"

	defaultMarketExchange = "binance"
	defaultMarketREST     = "https://fapi.binance.com"
	defaultMarketTimeout  = 15

	defaultBacktestSymbol    = "BTCUSDT"
	defaultBacktestTimeframe = "30m"
	defaultBacktestProfile   = "coffee-30m"
	defaultStartingEquity    = 100000.0
	defaultFeeRate           = 0.0004
	defaultSlippageBps       = 2.0
	defaultMaxConcurrent     = 2
	defaultWarmupLookback    = 300
	defaultReportDir         = "data/reports"

	defaultRiskFraction       = 0.01
	defaultTPRMultiple        = 2.0
	defaultTrailingATRMult    = 4.0
	defaultADXThreshold       = 19.0
	defaultContractMultiplier = 1.0
	defaultMinBars            = 200
	defaultMaxTradesPerDay    = 5
	defaultPartialExitRatio   = 0.3

	defaultProfilesPath = "configs/profiles.yaml"
)

// applyDefaults fills zero values with defaults. Explicit zeros that change
// behavior (fixed_notional, persist_events) stay as set.
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.Data.CandleRoot == "" {
		c.Data.CandleRoot = defaultCandleRoot
	}
	if c.Data.ResultRoot == "" {
		c.Data.ResultRoot = defaultResultRoot
	}
	if c.Market.Exchange == "" {
		c.Market.Exchange = defaultMarketExchange
	}
	if c.Market.RESTBaseURL == "" {
		c.Market.RESTBaseURL = defaultMarketREST
	}
	if c.Market.TimeoutSec <= 0 {
		c.Market.TimeoutSec = defaultMarketTimeout
	}
	if c.Backtest.Symbol == "" {
		c.Backtest.Symbol = defaultBacktestSymbol
	}
	if c.Backtest.Timeframe == "" {
		c.Backtest.Timeframe = defaultBacktestTimeframe
	}
	if c.Backtest.DefaultProfile == "" {
		c.Backtest.DefaultProfile = defaultBacktestProfile
	}
	if c.Backtest.StartingEquity <= 0 {
		c.Backtest.StartingEquity = defaultStartingEquity
	}
	if c.Backtest.FeeRate < 0 {
		c.Backtest.FeeRate = defaultFeeRate
	}
	if c.Backtest.SlippageBps < 0 {
		c.Backtest.SlippageBps = defaultSlippageBps
	}
	if c.Backtest.MaxConcurrent <= 0 {
		c.Backtest.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Backtest.WarmupLookback <= 0 {
		c.Backtest.WarmupLookback = defaultWarmupLookback
	}
	if c.Backtest.ReportDir == "" {
		c.Backtest.ReportDir = defaultReportDir
	}
	if c.Strategy.RiskFraction == 0 {
		c.Strategy.RiskFraction = defaultRiskFraction
	}
	if c.Strategy.TPRMultiple == 0 {
		c.Strategy.TPRMultiple = defaultTPRMultiple
	}
	if c.Strategy.TrailingATRMult == 0 {
		c.Strategy.TrailingATRMult = defaultTrailingATRMult
	}
	if c.Strategy.ADXThreshold == 0 {
		c.Strategy.ADXThreshold = defaultADXThreshold
	}
	if c.Strategy.ContractMultiplier == 0 {
		c.Strategy.ContractMultiplier = defaultContractMultiplier
	}
	if c.Strategy.MinBars == 0 {
		c.Strategy.MinBars = defaultMinBars
	}
	if c.Strategy.MaxTradesPerDay == 0 {
		c.Strategy.MaxTradesPerDay = defaultMaxTradesPerDay
	}
	if c.Strategy.PartialExitRatio == 0 {
		c.Strategy.PartialExitRatio = defaultPartialExitRatio
	}
	if c.Profiles.Path == "" {
		c.Profiles.Path = defaultProfilesPath
	}
}
