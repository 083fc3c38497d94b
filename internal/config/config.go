// Package config defines all configuration for the backtest engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via BACKTEST_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	InitialCapital float64        `mapstructure:"initial_capital"`
	Market         MarketConfig   `mapstructure:"market"`
	Fees           FeesConfig     `mapstructure:"fees"`
	Run            RunConfig      `mapstructure:"run"`
	Strategy       StrategyConfig `mapstructure:"strategy"`
	Store          StoreConfig    `mapstructure:"store"`
	Logging        LoggingConfig  `mapstructure:"logging"`
}

// MarketConfig tunes the A-share matching-engine constants.
//
//   - SlippageBuy/SlippageSell: fractional price concession applied to the
//     bar's close to derive the execution price.
//   - CapacityLimitRatio: fraction of a bar's volume a single order may
//     consume.
//   - LotSize: minimum purchase quantity for BUY orders.
type MarketConfig struct {
	SlippageBuy        float64 `mapstructure:"slippage_buy"`
	SlippageSell       float64 `mapstructure:"slippage_sell"`
	CapacityLimitRatio float64 `mapstructure:"capacity_limit_ratio"`
	LotSize            int64   `mapstructure:"lot_size"`
}

// FeesConfig sets the commission/transfer-fee/stamp-duty schedule.
type FeesConfig struct {
	CommissionRate  float64 `mapstructure:"commission_rate"`
	MinCommission   float64 `mapstructure:"min_commission"`
	TransferFeeRate float64 `mapstructure:"transfer_fee_rate"`
	StampDutyRate   float64 `mapstructure:"stamp_duty_rate"`
}

// RunConfig sets the simulated date range and tradeable universe.
type RunConfig struct {
	Start    string   `mapstructure:"start"` // YYYY-MM-DD
	End      string   `mapstructure:"end"`   // YYYY-MM-DD
	Universe []string `mapstructure:"universe"`
}

// StrategyConfig selects and tunes the reference strategy.
//
//   - Name: currently only "dual_moving_average" is built in.
//   - FastWindow/SlowWindow: bar counts for the fast/slow simple moving
//     averages.
type StrategyConfig struct {
	Name       string `mapstructure:"name"`
	FastWindow int    `mapstructure:"fast_window"`
	SlowWindow int    `mapstructure:"slow_window"`
}

// StoreConfig sets where the trade log and snapshot history are persisted.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with BACKTEST_* env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("initial_capital", 1000000.00)
	v.SetDefault("market.slippage_buy", 0.001)
	v.SetDefault("market.slippage_sell", 0.001)
	v.SetDefault("market.capacity_limit_ratio", 0.10)
	v.SetDefault("market.lot_size", 100)
	v.SetDefault("fees.commission_rate", 0.00025)
	v.SetDefault("fees.min_commission", 5.00)
	v.SetDefault("fees.transfer_fee_rate", 0.00001)
	v.SetDefault("fees.stamp_duty_rate", 0.0005)
	v.SetDefault("strategy.name", "dual_moving_average")
	v.SetDefault("strategy.fast_window", 5)
	v.SetDefault("strategy.slow_window", 10)
	v.SetDefault("store.data_dir", "./backtest_data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be > 0")
	}
	if c.Market.SlippageBuy < 0 || c.Market.SlippageSell < 0 {
		return fmt.Errorf("market.slippage_buy/slippage_sell must be >= 0")
	}
	if c.Market.CapacityLimitRatio <= 0 || c.Market.CapacityLimitRatio > 1 {
		return fmt.Errorf("market.capacity_limit_ratio must be in (0, 1]")
	}
	if c.Market.LotSize <= 0 {
		return fmt.Errorf("market.lot_size must be > 0")
	}
	if c.Fees.CommissionRate < 0 || c.Fees.MinCommission < 0 || c.Fees.TransferFeeRate < 0 || c.Fees.StampDutyRate < 0 {
		return fmt.Errorf("fees rates and floors must be >= 0")
	}
	if len(c.Run.Universe) == 0 {
		return fmt.Errorf("run.universe must name at least one symbol")
	}
	if _, err := time.Parse("2006-01-02", c.Run.Start); err != nil {
		return fmt.Errorf("run.start must be YYYY-MM-DD: %w", err)
	}
	if _, err := time.Parse("2006-01-02", c.Run.End); err != nil {
		return fmt.Errorf("run.end must be YYYY-MM-DD: %w", err)
	}
	return nil
}
