package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/backtest"
	"github.com/vquangdinh/crypto-signal-bot/internal/exchange/bybit"
	"github.com/vquangdinh/crypto-signal-bot/internal/logger"
	"github.com/vquangdinh/crypto-signal-bot/internal/risk"
	"github.com/vquangdinh/crypto-signal-bot/internal/strategy"
	"github.com/vquangdinh/crypto-signal-bot/pkg/config"
	"github.com/vquangdinh/crypto-signal-bot/pkg/data"
	"github.com/vquangdinh/crypto-signal-bot/pkg/reporting"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

const (
	AppName    = "Signal Backtest"
	AppVersion = "1.0.0"
)

func main() {
	flags := NewFlags()
	flag.Parse()

	loadEnvironment(flags.EnvFile)

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		fatal("configuration error", err)
	}
	applyOverrides(&cfg, flags)
	if err := cfg.Validate(); err != nil {
		fatal("configuration error", err)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log.Info().Str("app", AppName).Str("version", AppVersion).Msg("starting")

	symbols := splitSymbols(flags.Symbols)
	if len(symbols) == 0 {
		fatal("configuration error", fmt.Errorf("no symbols given"))
	}

	series, err := loadSeries(cfg, flags, symbols, log)
	if err != nil {
		fatal("data error", err)
	}

	snapshots, err := data.BuildSnapshots(series, data.SnapshotOptions{Lookback: cfg.Data.Lookback})
	if err != nil {
		fatal("data error", err)
	}

	strategies, err := buildStrategies(cfg, log)
	if err != nil {
		fatal("strategy error", err)
	}

	riskManager, err := risk.NewManager(risk.Config{
		StartingCapital: cfg.Risk.StartingCapital,
		RiskPerTrade:    cfg.Risk.RiskPerTrade,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
	}, log)
	if err != nil {
		fatal("risk error", err)
	}

	engine, err := backtest.NewEngine(strategies, riskManager, backtest.Config{
		InitialCapital:  cfg.Backtest.InitialCapital,
		FeeRate:         cfg.Backtest.FeeRate,
		EntryConfidence: cfg.Backtest.EntryConfidence,
	}, log)
	if err != nil {
		fatal("backtest error", err)
	}

	result, err := engine.Run(snapshots)
	if err != nil {
		fatal("backtest error", err)
	}

	interval := cfg.Exchange.Interval
	console := reporting.NewConsoleReporter()
	console.PrintRunSummary(result, symbols, interval)
	console.PrintMetrics(result.Metrics)
	console.PrintRecentFills(result.Ledger, flags.LastFills)

	xlsxPath, jsonPath := reporting.ResultPaths(flags.OutputDir, symbols, interval)
	if flags.WriteXLSX {
		if err := reporting.NewExcelReporter().WriteResult(result, xlsxPath); err != nil {
			fatal("report error", err)
		}
		log.Info().Str("path", xlsxPath).Msg("Excel report written")
	}
	if flags.WriteJSON {
		if err := reporting.NewJSONReporter().WriteResult(result, jsonPath); err != nil {
			fatal("report error", err)
		}
		log.Info().Str("path", jsonPath).Msg("JSON export written")
	}
}

// loadSeries reads each symbol's candles from CSV files or fetches them
// from Bybit when -fetch is set.
func loadSeries(cfg config.Config, flags *Flags, symbols []string, log zerolog.Logger) (map[string][]types.OHLCV, error) {
	interval := cfg.Exchange.Interval
	series := make(map[string][]types.OHLCV, len(symbols))

	if flags.Fetch {
		klineInterval, err := bybit.ParseInterval(interval)
		if err != nil {
			return nil, err
		}
		start, end, err := parseDateRange(flags.Start, flags.End)
		if err != nil {
			return nil, err
		}

		client := bybit.NewClient(bybit.Config{
			APIKey:    os.Getenv("BYBIT_API_KEY"),
			APISecret: os.Getenv("BYBIT_API_SECRET"),
			Testnet:   cfg.Exchange.Testnet,
		})
		ctx := context.Background()
		for _, symbol := range symbols {
			log.Info().Str("symbol", symbol).Str("interval", interval).Msg("fetching candles")
			candles, err := client.FetchRange(ctx, cfg.Exchange.Category, symbol, klineInterval, start, end)
			if err != nil {
				return nil, err
			}
			series[symbol] = candles
		}
		return series, nil
	}

	dir := flags.DataDir
	if dir == "" {
		dir = cfg.Data.Dir
	}
	provider := data.NewCSVProvider(log)
	for _, symbol := range symbols {
		path := data.FilePath(dir, symbol, interval)
		candles, err := provider.Load(path)
		if err != nil {
			return nil, err
		}
		series[symbol] = candles
	}

	// A CSV file may span more than the requested window; -start/-end
	// restrict it. Without either flag the whole file is used.
	if flags.Start != "" || flags.End != "" {
		start, end, err := parseDateRange(flags.Start, flags.End)
		if err != nil {
			return nil, err
		}
		if flags.Start == "" {
			start = time.Time{} // -end alone leaves the start unbounded
		}
		for symbol, candles := range series {
			series[symbol] = data.FilterByDateRange(candles, start, end)
		}
	}
	return series, nil
}

// buildStrategies registers the configured strategy set on a fresh
// manager. A zero weight or disabled slot leaves the strategy out of
// the vote without unregistering it.
func buildStrategies(cfg config.Config, log zerolog.Logger) (*strategy.Manager, error) {
	manager := strategy.NewManager(log)

	method, err := strategy.ParseAggregationMethod(cfg.Strategies.Aggregation)
	if err != nil {
		return nil, err
	}
	manager.SetAggregationMethod(method)
	if err := manager.SetMinConfidence(cfg.Strategies.MinConfidence); err != nil {
		return nil, err
	}

	type slot struct {
		cfg      config.StrategySlot
		strategy strategy.Strategy
	}
	slots := []slot{
		{cfg: cfg.Strategies.Sentiment, strategy: strategy.NewSentimentStrategy(strategy.NewKeywordClassifier())},
		{cfg: cfg.Strategies.Technical, strategy: strategy.NewTechnicalStrategy()},
		{cfg: cfg.Strategies.Volume, strategy: strategy.NewVolumeStrategy()},
	}
	for _, s := range slots {
		if err := manager.Register(s.strategy, s.cfg.Weight); err != nil {
			return nil, err
		}
		if !s.cfg.Enabled {
			if err := manager.Disable(s.strategy.Name()); err != nil {
				return nil, err
			}
		}
	}

	return manager, nil
}

func applyOverrides(cfg *config.Config, flags *Flags) {
	if flags.Interval != "" {
		cfg.Exchange.Interval = flags.Interval
	}
	if flags.Category != "" {
		cfg.Exchange.Category = flags.Category
	}
	if flags.Lookback > 0 {
		cfg.Data.Lookback = flags.Lookback
	}

	if flags.InitialCapital >= 0 {
		cfg.Backtest.InitialCapital = flags.InitialCapital
	}
	if flags.FeeRate >= 0 {
		cfg.Backtest.FeeRate = flags.FeeRate
	}
	if flags.EntryConfidence >= 0 {
		cfg.Backtest.EntryConfidence = flags.EntryConfidence
	}

	if flags.StartingCapital >= 0 {
		cfg.Risk.StartingCapital = flags.StartingCapital
	}
	if flags.RiskPerTrade >= 0 {
		cfg.Risk.RiskPerTrade = flags.RiskPerTrade
	}
	if flags.MaxDailyLoss >= 0 {
		cfg.Risk.MaxDailyLossPct = flags.MaxDailyLoss
	}

	if flags.Aggregation != "" {
		cfg.Strategies.Aggregation = flags.Aggregation
	}
	if flags.MinConfidence >= 0 {
		cfg.Strategies.MinConfidence = flags.MinConfidence
	}
	if flags.SentimentWeight >= 0 {
		cfg.Strategies.Sentiment.Weight = flags.SentimentWeight
	}
	if flags.TechnicalWeight >= 0 {
		cfg.Strategies.Technical.Weight = flags.TechnicalWeight
	}
	if flags.VolumeWeight >= 0 {
		cfg.Strategies.Volume.Weight = flags.VolumeWeight
	}

	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	cfg.Logging.Pretty = flags.Pretty
}

// parseDateRange defaults to the trailing year ending now.
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	if startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
		start = parsed
	}
	if endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
		end = parsed.AddDate(0, 0, 1) // inclusive end date
	}
	return start, end, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

func loadEnvironment(envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fatal("environment error", err)
		}
		return
	}
	// Default .env is optional.
	_ = godotenv.Load()
}

func fatal(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", prefix, err)
	os.Exit(1)
}
