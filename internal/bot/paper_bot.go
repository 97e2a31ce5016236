package bot

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/backtest"
	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/exchange/bybit"
	"github.com/vquangdinh/crypto-signal-bot/internal/monitoring"
	"github.com/vquangdinh/crypto-signal-bot/internal/risk"
	"github.com/vquangdinh/crypto-signal-bot/internal/state"
	"github.com/vquangdinh/crypto-signal-bot/internal/strategy"
	"github.com/vquangdinh/crypto-signal-bot/pkg/data"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// MarketData is the slice of the exchange client the bot needs. Tests
// substitute a deterministic stub.
type MarketData interface {
	GetKlines(ctx context.Context, params bybit.KlineParams) ([]types.OHLCV, error)
	LatestPrice(ctx context.Context, category, symbol string) (float64, error)
}

// Config holds the paper trading parameters.
type Config struct {
	Symbols         []string
	Category        string
	Interval        bybit.Interval
	Lookback        int
	EntryConfidence float64
}

// PaperBot runs the live decision pipeline against real market data
// with simulated fills. Each Step is one pure decision cycle: fetch
// recent candles, decide, gate, size, apply paper fills. The caller
// owns the schedule; the bot never sleeps or spawns goroutines.
type PaperBot struct {
	client     MarketData
	strategies *strategy.Manager
	risk       *risk.Manager
	portfolio  *backtest.Portfolio
	store      *state.Store
	health     *monitoring.HealthChecker
	cfg        Config
	logger     zerolog.Logger
}

// NewPaperBot wires the decision pipeline for paper trading. The store
// may be nil to disable persistence.
func NewPaperBot(client MarketData, strategies *strategy.Manager, riskManager *risk.Manager,
	portfolio *backtest.Portfolio, store *state.Store, cfg Config, log zerolog.Logger) (*PaperBot, error) {

	if client == nil {
		return nil, errors.NewConfigError("paper_bot", "new", "exchange client is required")
	}
	if strategies == nil {
		return nil, errors.NewConfigError("paper_bot", "new", "strategy manager is required")
	}
	if riskManager == nil {
		return nil, errors.NewConfigError("paper_bot", "new", "risk manager is required")
	}
	if portfolio == nil {
		return nil, errors.NewConfigError("paper_bot", "new", "portfolio is required")
	}
	if len(cfg.Symbols) == 0 {
		return nil, errors.NewConfigError("paper_bot", "new", "at least one symbol is required")
	}
	if cfg.Category == "" {
		cfg.Category = "spot"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = data.DefaultLookback
	}
	if cfg.EntryConfidence == 0 {
		cfg.EntryConfidence = backtest.DefaultEntryConfidence
	}

	symbols := append([]string(nil), cfg.Symbols...)
	sort.Strings(symbols)
	cfg.Symbols = symbols

	return &PaperBot{
		client:     client,
		strategies: strategies,
		risk:       riskManager,
		portfolio:  portfolio,
		store:      store,
		health:     monitoring.NewHealthChecker(),
		cfg:        cfg,
		logger:     log.With().Str("component", "paper_bot").Logger(),
	}, nil
}

// Health exposes the bot's health probe for the HTTP server.
func (b *PaperBot) Health() *monitoring.HealthChecker {
	return b.health
}

// Portfolio returns the paper portfolio for reporting.
func (b *PaperBot) Portfolio() *backtest.Portfolio {
	return b.portfolio
}

// Step runs one decision cycle at the given time. Fetch failures for a
// symbol skip that symbol for the cycle rather than aborting it.
func (b *PaperBot) Step(ctx context.Context, now time.Time) error {
	b.risk.ResetDay(now)

	prices := make(map[string]float64, len(b.cfg.Symbols))
	contexts := make(map[string]types.Context, len(b.cfg.Symbols))
	for _, symbol := range b.cfg.Symbols {
		marketCtx, err := b.fetchContext(ctx, symbol)
		if err != nil {
			b.health.RecordError(err.Error())
			b.logger.Warn().Err(err).Str("symbol", symbol).Msg("market data fetch failed, skipping symbol")
			continue
		}
		// Candles lag by up to one interval; the ticker gives the live
		// price for sizing and marking when it is reachable.
		if live, err := b.client.LatestPrice(ctx, b.cfg.Category, symbol); err != nil {
			b.logger.Debug().Err(err).Str("symbol", symbol).Msg("ticker fetch failed, using candle close")
		} else if live > 0 {
			marketCtx.Price = live
		}
		prices[symbol] = marketCtx.Price
		contexts[symbol] = marketCtx
	}
	if len(prices) == 0 {
		b.health.SetConnected(false)
		return errors.Newf(errors.CategoryExchange, "paper_bot", "step", "no market data for any symbol")
	}
	b.health.SetConnected(true)

	for _, symbol := range b.cfg.Symbols {
		marketCtx, ok := contexts[symbol]
		if !ok {
			continue
		}
		price := marketCtx.Price
		monitoring.UpdatePrice(symbol, price)

		decision := b.strategies.Decide(symbol, marketCtx)
		b.health.MarkDecision(price)

		if !b.risk.CanTrade() {
			b.logger.Info().Str("symbol", symbol).Msg("risk shutdown, holding")
			continue
		}

		switch decision.Action {
		case strategy.ActionBuy:
			if decision.Confidence > b.cfg.EntryConfidence {
				b.openPosition(symbol, price, prices, now)
			}
		case strategy.ActionSell:
			b.closePosition(symbol, price, now)
		}
	}

	point := b.portfolio.MarkEquity(now, prices)
	stats := b.risk.Stats()
	b.logger.Info().
		Float64("equity", point.Equity).
		Float64("cash", b.portfolio.Cash()).
		Float64("capital", stats.CurrentCapital).
		Float64("daily_pnl", stats.DailyPnl).
		Bool("shutdown", stats.Shutdown).
		Msg("cycle complete")

	return b.persist(now)
}

func (b *PaperBot) fetchContext(ctx context.Context, symbol string) (types.Context, error) {
	candles, err := b.client.GetKlines(ctx, bybit.KlineParams{
		Category: b.cfg.Category,
		Symbol:   symbol,
		Interval: b.cfg.Interval,
		Limit:    b.cfg.Lookback,
	})
	if err != nil {
		return types.Context{}, err
	}
	// Headlines stay empty in the paper loop; the news pipeline is an
	// external collaborator and the sentiment strategy holds without it.
	return data.ContextFromCandles(candles, b.cfg.Lookback, nil)
}

func (b *PaperBot) openPosition(symbol string, price float64, prices map[string]float64, now time.Time) {
	quantity, err := b.risk.PositionSizeForBalance(price, b.portfolio.Equity(prices))
	if err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("position sizing rejected, skipping buy")
		return
	}
	if quantity <= 0 {
		return
	}

	fill, err := b.portfolio.ApplyBuy(symbol, quantity, price, now)
	if err != nil {
		if errors.Is(err, backtest.ErrInsufficientCash) {
			b.logger.Info().Str("symbol", symbol).Float64("quantity", quantity).Msg("insufficient cash, skipping buy")
			return
		}
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("buy rejected")
		return
	}
	monitoring.RecordFill(symbol, fill.Action)
	b.logger.Info().
		Str("symbol", symbol).
		Float64("quantity", fill.Quantity).
		Float64("price", fill.Price).
		Float64("fee", fill.Fee).
		Msg("paper buy")
}

func (b *PaperBot) closePosition(symbol string, price float64, now time.Time) {
	pos, ok := b.portfolio.Position(symbol)
	if !ok {
		return
	}

	fill, realized, err := b.portfolio.ApplySell(symbol, pos.Quantity, price, now)
	if err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("sell rejected")
		return
	}
	b.risk.UpdateAfterTrade(realized)
	monitoring.RecordFill(symbol, fill.Action)
	b.logger.Info().
		Str("symbol", symbol).
		Float64("quantity", fill.Quantity).
		Float64("price", fill.Price).
		Float64("realized_pnl", realized).
		Msg("paper sell")
}

// persist saves the risk state and paper account after each cycle so a
// restart resumes where the last cycle left off.
func (b *PaperBot) persist(now time.Time) error {
	if b.store == nil {
		return nil
	}

	if err := b.store.SaveRiskState(b.risk.Snapshot()); err != nil {
		return err
	}
	return b.store.SavePaperAccount(state.PaperAccount{
		Cash:      b.portfolio.Cash(),
		Holdings:  b.portfolio.Holdings(),
		UpdatedAt: now,
	})
}
