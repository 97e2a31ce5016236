package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/strategy"
)

// Config is the root bot configuration, loaded from a JSON file with
// defaults filled in for anything the file leaves out. CLI flags may
// override individual fields after loading.
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Risk       RiskConfig       `json:"risk"`
	Strategies StrategiesConfig `json:"strategies"`
	Backtest   BacktestConfig   `json:"backtest"`
	Data       DataConfig       `json:"data"`
	Exchange   ExchangeConfig   `json:"exchange"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// RiskConfig mirrors the capital preservation policy parameters.
type RiskConfig struct {
	StartingCapital float64 `json:"starting_capital"`
	RiskPerTrade    float64 `json:"risk_per_trade"`
	MaxDailyLossPct float64 `json:"max_daily_loss_pct"`
}

// StrategySlot controls one registered strategy.
type StrategySlot struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

type StrategiesConfig struct {
	Aggregation   string       `json:"aggregation"`
	MinConfidence float64      `json:"min_confidence"`
	Sentiment     StrategySlot `json:"sentiment"`
	Technical     StrategySlot `json:"technical"`
	Volume        StrategySlot `json:"volume"`
}

type BacktestConfig struct {
	InitialCapital  float64 `json:"initial_capital"`
	FeeRate         float64 `json:"fee_rate"`
	EntryConfidence float64 `json:"entry_confidence"`
}

type DataConfig struct {
	Dir      string `json:"dir"`
	Lookback int    `json:"lookback"`
}

type ExchangeConfig struct {
	Category string `json:"category"`
	Interval string `json:"interval"`
	Testnet  bool   `json:"testnet"`
}

// Default returns the stock configuration: all three strategies enabled
// at their house weights, weighted voting with no confidence gate, and
// the default capital preservation policy.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Risk: RiskConfig{
			StartingCapital: 200,
			RiskPerTrade:    0.03,
			MaxDailyLossPct: 0.05,
		},
		Strategies: StrategiesConfig{
			Aggregation:   string(strategy.MethodWeightedVote),
			MinConfidence: 0,
			Sentiment:     StrategySlot{Enabled: true, Weight: 1.0},
			Technical:     StrategySlot{Enabled: true, Weight: 1.0},
			Volume:        StrategySlot{Enabled: true, Weight: 0.8},
		},
		Backtest: BacktestConfig{
			InitialCapital:  10000,
			FeeRate:         0.0026,
			EntryConfidence: 0.2,
		},
		Data: DataConfig{
			Dir:      "data",
			Lookback: 100,
		},
		Exchange: ExchangeConfig{
			Category: "spot",
			Interval: "60",
		},
	}
}

// Load reads a JSON config file on top of the defaults. An empty path
// returns the defaults unchanged. The result is validated before it is
// returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, errors.CategoryConfig, "config", "load",
			fmt.Sprintf("cannot read config file %s", path))
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.CategoryConfig, "config", "load",
			fmt.Sprintf("invalid JSON in config file %s", path))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the core would refuse at wiring time,
// so bad values fail at startup rather than mid-run.
func (c Config) Validate() error {
	if c.Risk.StartingCapital < 0 {
		return errors.NewConfigError("config", "validate", "risk.starting_capital must be positive")
	}
	if c.Risk.RiskPerTrade < 0 || c.Risk.RiskPerTrade > 1 {
		return errors.NewConfigError("config", "validate", "risk.risk_per_trade must be within [0, 1]")
	}
	if c.Risk.MaxDailyLossPct < 0 || c.Risk.MaxDailyLossPct > 1 {
		return errors.NewConfigError("config", "validate", "risk.max_daily_loss_pct must be within [0, 1]")
	}

	if _, err := strategy.ParseAggregationMethod(c.Strategies.Aggregation); err != nil {
		return err
	}
	if c.Strategies.MinConfidence < 0 || c.Strategies.MinConfidence > 1 {
		return errors.NewConfigError("config", "validate", "strategies.min_confidence must be within [0, 1]")
	}
	for name, slot := range map[string]StrategySlot{
		"sentiment": c.Strategies.Sentiment,
		"technical": c.Strategies.Technical,
		"volume":    c.Strategies.Volume,
	} {
		if slot.Weight < 0 {
			return errors.NewConfigError("config", "validate",
				fmt.Sprintf("strategies.%s.weight must be non-negative", name))
		}
	}

	if c.Backtest.InitialCapital < 0 {
		return errors.NewConfigError("config", "validate", "backtest.initial_capital must be positive")
	}
	if c.Backtest.FeeRate < 0 || c.Backtest.FeeRate >= 1 {
		return errors.NewConfigError("config", "validate", "backtest.fee_rate must be within [0, 1)")
	}
	if c.Backtest.EntryConfidence < 0 || c.Backtest.EntryConfidence > 1 {
		return errors.NewConfigError("config", "validate", "backtest.entry_confidence must be within [0, 1]")
	}

	if c.Data.Lookback < 0 {
		return errors.NewConfigError("config", "validate", "data.lookback must be positive")
	}

	return nil
}

// Save writes the configuration as indented JSON, for generating a
// starter config file.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "config", "save", "cannot marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "config", "save",
			fmt.Sprintf("cannot write config file %s", path))
	}
	return nil
}
