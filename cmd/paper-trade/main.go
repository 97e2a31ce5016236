package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/backtest"
	"github.com/vquangdinh/crypto-signal-bot/internal/bot"
	"github.com/vquangdinh/crypto-signal-bot/internal/exchange/bybit"
	"github.com/vquangdinh/crypto-signal-bot/internal/logger"
	"github.com/vquangdinh/crypto-signal-bot/internal/monitoring"
	"github.com/vquangdinh/crypto-signal-bot/internal/risk"
	"github.com/vquangdinh/crypto-signal-bot/internal/state"
	"github.com/vquangdinh/crypto-signal-bot/internal/strategy"
	"github.com/vquangdinh/crypto-signal-bot/pkg/config"
)

func main() {
	var (
		configFile  = flag.String("config", "", "JSON config file path")
		envFile     = flag.String("env", "", ".env file path (default .env in working dir)")
		symbols     = flag.String("symbols", "BTCUSDT", "comma-separated symbols")
		interval    = flag.String("interval", "", "kline interval (overrides config)")
		category    = flag.String("category", "", "market category (overrides config)")
		cycle       = flag.Duration("cycle", 0, "decision cycle period (default the kline interval)")
		stateDir    = flag.String("state-dir", "state", "directory for persisted risk/account state (empty disables)")
		metricsAddr = flag.String("metrics-addr", ":9090", "address for Prometheus metrics and health probes (empty disables)")
		logLevel    = flag.String("log-level", "", "log level (debug, info, warn, error)")
		pretty      = flag.Bool("pretty", true, "human-readable console logging")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fatal(err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fatal(err)
	}
	if *interval != "" {
		cfg.Exchange.Interval = *interval
	}
	if *category != "" {
		cfg.Exchange.Category = *category
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.Logging.Pretty = *pretty

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	klineInterval, err := bybit.ParseInterval(cfg.Exchange.Interval)
	if err != nil {
		fatal(err)
	}
	period := *cycle
	if period <= 0 {
		period = klineInterval.Duration()
	}

	strategies, err := buildStrategies(cfg, log)
	if err != nil {
		fatal(err)
	}

	riskManager, err := risk.NewManager(risk.Config{
		StartingCapital: cfg.Risk.StartingCapital,
		RiskPerTrade:    cfg.Risk.RiskPerTrade,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
	}, log)
	if err != nil {
		fatal(err)
	}

	var store *state.Store
	if *stateDir != "" {
		store = state.NewStore(*stateDir, log)
		if err := store.Initialize(); err != nil {
			fatal(err)
		}
	}
	portfolio := restorePortfolio(store, riskManager, cfg, log)

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   cfg.Exchange.Testnet,
	})

	paperBot, err := bot.NewPaperBot(client, strategies, riskManager, portfolio, store, bot.Config{
		Symbols:         splitSymbols(*symbols),
		Category:        cfg.Exchange.Category,
		Interval:        klineInterval,
		Lookback:        cfg.Data.Lookback,
		EntryConfidence: cfg.Backtest.EntryConfidence,
	}, log)
	if err != nil {
		fatal(err)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, paperBot, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Dur("cycle", period).
		Str("interval", cfg.Exchange.Interval).
		Str("category", cfg.Exchange.Category).
		Msg("paper trading started")

	runLoop(ctx, paperBot, period, log)
	log.Info().Msg("paper trading stopped")
}

// runLoop drives one decision cycle per tick until the context is
// cancelled. The first cycle runs immediately.
func runLoop(ctx context.Context, paperBot *bot.PaperBot, period time.Duration, log zerolog.Logger) {
	step := func() {
		if err := paperBot.Step(ctx, time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("decision cycle failed")
		}
	}

	step()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step()
		}
	}
}

// restorePortfolio resumes the persisted paper account when one exists,
// along with the risk state it was saved with.
func restorePortfolio(store *state.Store, riskManager *risk.Manager, cfg config.Config, log zerolog.Logger) *backtest.Portfolio {
	if store != nil {
		if saved, found, err := store.LoadRiskState(); err != nil {
			log.Warn().Err(err).Msg("cannot load risk state, starting fresh")
		} else if found {
			if err := riskManager.Restore(saved); err != nil {
				log.Warn().Err(err).Msg("persisted risk state rejected, starting fresh")
			} else {
				log.Info().Float64("capital", saved.CurrentCapital).Msg("risk state restored")
			}
		}

		if account, found, err := store.LoadPaperAccount(); err != nil {
			log.Warn().Err(err).Msg("cannot load paper account, starting fresh")
		} else if found {
			log.Info().Float64("cash", account.Cash).Int("positions", len(account.Holdings)).Msg("paper account restored")
			return backtest.RestorePortfolio(account.Cash, cfg.Backtest.FeeRate, account.Holdings)
		}
	}
	return backtest.NewPortfolio(cfg.Backtest.InitialCapital, cfg.Backtest.FeeRate)
}

func serveMetrics(addr string, paperBot *bot.PaperBot, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", paperBot.Health())

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

// buildStrategies registers the configured strategy set on a fresh
// manager, mirroring the backtest CLI so paper and replay runs share
// one wiring.
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

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}
