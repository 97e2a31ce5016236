package main

import "flag"

// Flags holds the backtest CLI options. Flag values override the
// config file where both are given.
type Flags struct {
	ConfigFile string
	EnvFile    string

	// Data source: either a CSV directory or a live Bybit fetch.
	DataDir  string
	Fetch    bool
	Symbols  string
	Interval string
	Category string
	Start    string
	End      string
	Lookback int

	// Simulation overrides.
	InitialCapital  float64
	FeeRate         float64
	EntryConfidence float64

	// Risk overrides.
	StartingCapital float64
	RiskPerTrade    float64
	MaxDailyLoss    float64

	// Strategy overrides.
	Aggregation     string
	MinConfidence   float64
	SentimentWeight float64
	TechnicalWeight float64
	VolumeWeight    float64

	// Output.
	OutputDir string
	WriteXLSX bool
	WriteJSON bool
	LastFills int

	LogLevel string
	Pretty   bool
}

// NewFlags registers and returns the CLI flags. Negative sentinel
// defaults mean "not set, keep the config value".
func NewFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigFile, "config", "", "JSON config file path")
	flag.StringVar(&f.EnvFile, "env", "", ".env file path (default .env in working dir)")

	flag.StringVar(&f.DataDir, "data", "", "directory with <symbol>_<interval>.csv files")
	flag.BoolVar(&f.Fetch, "fetch", false, "fetch candles from Bybit instead of reading CSV")
	flag.StringVar(&f.Symbols, "symbols", "BTCUSDT", "comma-separated symbols")
	flag.StringVar(&f.Interval, "interval", "", "kline interval (1, 5, 15, 60, 240, D, ...)")
	flag.StringVar(&f.Category, "category", "", "market category (spot, linear, inverse)")
	flag.StringVar(&f.Start, "start", "", "start date YYYY-MM-DD (fetch mode)")
	flag.StringVar(&f.End, "end", "", "end date YYYY-MM-DD (fetch mode)")
	flag.IntVar(&f.Lookback, "lookback", 0, "history window per context in candles")

	flag.Float64Var(&f.InitialCapital, "capital", -1, "portfolio initial capital")
	flag.Float64Var(&f.FeeRate, "fee", -1, "taker fee rate (e.g. 0.0026)")
	flag.Float64Var(&f.EntryConfidence, "entry-confidence", -1, "minimum confidence to open a buy")

	flag.Float64Var(&f.StartingCapital, "risk-capital", -1, "risk manager starting capital")
	flag.Float64Var(&f.RiskPerTrade, "risk-per-trade", -1, "fraction of capital risked per position")
	flag.Float64Var(&f.MaxDailyLoss, "max-daily-loss", -1, "daily loss fraction that trips shutdown")

	flag.StringVar(&f.Aggregation, "method", "", "aggregation method (weighted_vote, highest_confidence, unanimous)")
	flag.Float64Var(&f.MinConfidence, "min-confidence", -1, "demote BUY/SELL below this confidence to HOLD")
	flag.Float64Var(&f.SentimentWeight, "sentiment-weight", -1, "sentiment strategy weight (0 disables)")
	flag.Float64Var(&f.TechnicalWeight, "technical-weight", -1, "technical strategy weight (0 disables)")
	flag.Float64Var(&f.VolumeWeight, "volume-weight", -1, "volume strategy weight (0 disables)")

	flag.StringVar(&f.OutputDir, "output", "results", "output directory for reports")
	flag.BoolVar(&f.WriteXLSX, "xlsx", false, "write the Excel workbook")
	flag.BoolVar(&f.WriteJSON, "json", false, "write the JSON export")
	flag.IntVar(&f.LastFills, "last-fills", 10, "fills to print in the console report")

	flag.StringVar(&f.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.BoolVar(&f.Pretty, "pretty", true, "human-readable console logging")

	return f
}
