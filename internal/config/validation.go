package config

import (
	"fmt"
)

func (c *Config) validate() error {
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level %q is not one of debug/info/warn/error", c.App.LogLevel)
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	return nil
}

func (m MarketConfig) validate() error {
	if m.Exchange != "binance" {
		return fmt.Errorf("market.exchange %q is not supported", m.Exchange)
	}
	if m.TimeoutSec <= 0 {
		return fmt.Errorf("market.timeout_seconds must be > 0")
	}
	return nil
}

func (b BacktestConfig) validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("backtest.symbol is required")
	}
	if b.StartingEquity <= 0 {
		return fmt.Errorf("backtest.starting_equity must be > 0")
	}
	if b.FeeRate < 0 || b.FeeRate >= 0.05 {
		return fmt.Errorf("backtest.fee_rate %v is outside [0, 0.05)", b.FeeRate)
	}
	if b.SlippageBps < 0 {
		return fmt.Errorf("backtest.slippage_bps must be >= 0")
	}
	if b.MaxConcurrent <= 0 {
		return fmt.Errorf("backtest.max_concurrent must be > 0")
	}
	return nil
}
