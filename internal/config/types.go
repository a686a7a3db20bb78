package config

import (
	"arabica/internal/strategy"
)

// Config is the root configuration for a run of the engine.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Data     DataConfig      `mapstructure:"data"`
	Market   MarketConfig    `mapstructure:"market"`
	Backtest BacktestConfig  `mapstructure:"backtest"`
	Strategy strategy.Config `mapstructure:"strategy"`
	Profiles ProfilesConfig  `mapstructure:"profiles"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogPath  string `mapstructure:"log_path"`
}

// DataConfig locates the on-disk sqlite stores.
type DataConfig struct {
	CandleRoot string `mapstructure:"candle_root"`
	ResultRoot string `mapstructure:"result_root"`
}

// MarketConfig describes the candle source used to backfill history.
type MarketConfig struct {
	Exchange    string `mapstructure:"exchange"`
	RESTBaseURL string `mapstructure:"rest_base_url"`
	ProxyURL    string `mapstructure:"proxy_url"`
	TimeoutSec  int    `mapstructure:"timeout_seconds"`
}

// BacktestConfig holds simulation-level knobs that are not part of the
// strategy itself.
type BacktestConfig struct {
	Symbol          string  `mapstructure:"symbol"`
	Timeframe       string  `mapstructure:"timeframe"`
	DefaultProfile  string  `mapstructure:"default_profile"`
	StartingEquity  float64 `mapstructure:"starting_equity"`
	FeeRate         float64 `mapstructure:"fee_rate"`
	SlippageBps     float64 `mapstructure:"slippage_bps"`
	MaxConcurrent   int     `mapstructure:"max_concurrent"`
	WarmupLookback  int     `mapstructure:"warmup_lookback"`
	ReportDir       string  `mapstructure:"report_dir"`
	PersistEvents   bool    `mapstructure:"persist_events"`
	ForceCloseAtEnd bool    `mapstructure:"force_close_at_end"`
}

// ProfilesConfig points at the hot-reloadable strategy preset file.
type ProfilesConfig struct {
	Path string `mapstructure:"path"`
}
