// Package config holds the run configuration for backtests and optimizer
// sweeps. A Config is loaded once and passed by value from there on.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/risk"
	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Costs     CostsConfig     `json:"costs" yaml:"costs"`
	Sizing    SizingConfig    `json:"sizing" yaml:"sizing"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Optimizer OptimizerConfig `json:"optimizer" yaml:"optimizer"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type AccountConfig struct {
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
}

// CostsConfig fractions apply to entry plus exit notional.
type CostsConfig struct {
	FeePct      float64 `json:"fee_pct" yaml:"fee_pct"`
	SlippagePct float64 `json:"slippage_pct" yaml:"slippage_pct"`
}

type SizingConfig struct {
	Mode        string  `json:"mode" yaml:"mode"` // "fixed" or "percent"
	FixedAmount float64 `json:"fixed_amount" yaml:"fixed_amount"`
	RiskPct     float64 `json:"risk_pct" yaml:"risk_pct"`
}

// DataConfig locates candle files as <dir>/<SYMBOL>_<interval>m.csv.
type DataConfig struct {
	Dir            string   `json:"dir" yaml:"dir"`
	Symbols        []string `json:"symbols" yaml:"symbols"`
	Intervals      []string `json:"intervals" yaml:"intervals"`
	HistoricalDays int      `json:"historical_days" yaml:"historical_days"`
}

type OptimizerConfig struct {
	Strategy   string `json:"strategy" yaml:"strategy"`
	Mode       string `json:"mode" yaml:"mode"` // split, walkforward or rolling
	TrainDays  int    `json:"train_days" yaml:"train_days"`
	TestDays   int    `json:"test_days" yaml:"test_days"`
	StepDays   int    `json:"step_days,omitempty" yaml:"step_days,omitempty"`
	Workers    int    `json:"workers" yaml:"workers"`
	TopN       int    `json:"top_n" yaml:"top_n"`
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (JSON or YAML). Missing
// fields keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}
	if c.Costs.FeePct < 0 || c.Costs.FeePct >= 1 {
		return fmt.Errorf("costs.fee_pct must be in [0, 1)")
	}
	if c.Costs.SlippagePct < 0 || c.Costs.SlippagePct >= 1 {
		return fmt.Errorf("costs.slippage_pct must be in [0, 1)")
	}
	if _, err := c.SizingPolicy(); err != nil {
		return err
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	for _, iv := range c.Data.Intervals {
		if _, err := market.IntervalDuration(iv); err != nil {
			return fmt.Errorf("data.intervals: %w", err)
		}
	}

	if _, err := strategies.Lookup(c.Optimizer.Strategy); err != nil {
		return fmt.Errorf("optimizer.strategy: %w", err)
	}
	mode, err := backtest.ParseMode(c.Optimizer.Mode)
	if err != nil {
		return fmt.Errorf("optimizer.mode: %w", err)
	}
	switch mode {
	case backtest.ModeWalkForward:
		if c.Data.HistoricalDays < 2 {
			return fmt.Errorf("data.historical_days must be at least 2 for walkforward")
		}
	default:
		if c.Optimizer.TrainDays <= 0 || c.Optimizer.TestDays <= 0 {
			return fmt.Errorf("optimizer.train_days and optimizer.test_days must be positive")
		}
	}
	if c.Optimizer.Workers < 0 {
		return fmt.Errorf("optimizer.workers must not be negative")
	}
	if c.Optimizer.TopN < 0 {
		return fmt.Errorf("optimizer.top_n must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{StartingBalance: 10000},
		Costs: CostsConfig{
			FeePct:      0.001,
			SlippagePct: 0.001,
		},
		Sizing: SizingConfig{
			Mode:        string(risk.Fixed),
			FixedAmount: 10,
			RiskPct:     0.01,
		},
		Data: DataConfig{
			Dir:            "data",
			Symbols:        []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"},
			Intervals:      []string{"1", "5", "15"},
			HistoricalDays: 90,
		},
		Optimizer: OptimizerConfig{
			Strategy:   "ma-cross",
			Mode:       string(backtest.ModeSplit),
			TrainDays:  20,
			TestDays:   10,
			Workers:    1,
			TopN:       10,
			ResultsDir: "results",
		},
		Journal: JournalConfig{Type: "none"},
		Log:     LogConfig{Level: "info"},
	}
}

func (c Config) SizingPolicy() (risk.Policy, error) {
	mode, err := risk.ParseMode(c.Sizing.Mode)
	if err != nil {
		return risk.Policy{}, fmt.Errorf("sizing.mode: %w", err)
	}
	p := risk.Policy{
		Mode:        mode,
		FixedAmount: c.Sizing.FixedAmount,
		RiskPct:     c.Sizing.RiskPct,
	}
	if err := p.Validate(); err != nil {
		return risk.Policy{}, err
	}
	return p, nil
}

// EngineConfig is the per-run engine setup. Call it on a validated Config.
func (c Config) EngineConfig() sim.Config {
	p, _ := c.SizingPolicy()
	return sim.Config{
		StartingBalance: c.Account.StartingBalance,
		Costs: sim.CostModel{
			FeePct:      c.Costs.FeePct,
			SlippagePct: c.Costs.SlippagePct,
		},
		Sizing: p,
	}
}

func (c Config) OptimizerOptions() backtest.Options {
	mode, _ := backtest.ParseMode(c.Optimizer.Mode)
	return backtest.Options{
		Mode:           mode,
		TrainDays:      c.Optimizer.TrainDays,
		TestDays:       c.Optimizer.TestDays,
		StepDays:       c.Optimizer.StepDays,
		HistoricalDays: c.Data.HistoricalDays,
		Workers:        c.Optimizer.Workers,
	}
}

// Open creates the configured journal sink. "none" gives a journal that
// discards everything.
func (j JournalConfig) Open() (journal.Journal, error) {
	switch j.Type {
	case "", "none":
		return journal.Nop{}, nil
	case "csv":
		cj, err := journal.NewCSV(j.TradesFile, j.EquityFile)
		if err != nil {
			return nil, err
		}
		return cj, nil
	case "sqlite":
		sj, err := journal.NewSQLite(j.DBPath)
		if err != nil {
			return nil, err
		}
		return sj, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", j.Type)
	}
}
