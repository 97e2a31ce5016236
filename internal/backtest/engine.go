package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/monitoring"
	"github.com/vquangdinh/crypto-signal-bot/internal/risk"
	"github.com/vquangdinh/crypto-signal-bot/internal/strategy"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

const (
	// DefaultInitialCapital is the starting cash when the config leaves it zero.
	DefaultInitialCapital = 10000.0
	// DefaultFeeRate is the taker fee charged per fill (0.26%).
	DefaultFeeRate = 0.0026
	// DefaultEntryConfidence is the minimum aggregate confidence that turns
	// a BUY decision into a fill.
	DefaultEntryConfidence = 0.2
)

// Config holds the simulation parameters. Zero fields fall back to the
// defaults; negative ones are rejected by NewEngine.
type Config struct {
	InitialCapital  float64 `json:"initial_capital"`
	FeeRate         float64 `json:"fee_rate"`
	EntryConfidence float64 `json:"entry_confidence"`
}

// Result carries everything one run produced: the decision trail, the
// fill ledger, the equity curve, the final portfolio, and the derived
// performance metrics.
type Result struct {
	InitialCapital float64                   `json:"initial_capital"`
	FinalEquity    float64                   `json:"final_equity"`
	FinalCash      float64                   `json:"final_cash"`
	FinalHoldings  map[string]types.Position `json:"final_holdings"`
	Decisions      []types.DecisionRecord    `json:"decisions"`
	Ledger         []types.Fill              `json:"ledger"`
	EquityCurve    []types.EquityPoint       `json:"equity_curve"`
	Metrics        PerformanceMetrics        `json:"metrics"`
}

// Engine replays historical snapshots through the strategy manager and
// the risk manager, simulating fills against a fresh portfolio. The
// replay is synchronous and deterministic: snapshots in timestamp order,
// symbols in sorted order, no wall clock and no randomness inside the
// loop.
type Engine struct {
	strategies *strategy.Manager
	risk       *risk.Manager
	cfg        Config
	logger     zerolog.Logger
}

// NewEngine wires the strategy and risk managers into a simulator. The
// risk manager should be freshly constructed for each run so daily loss
// tracking starts clean.
func NewEngine(strategies *strategy.Manager, riskManager *risk.Manager, cfg Config, log zerolog.Logger) (*Engine, error) {
	if strategies == nil {
		return nil, errors.NewConfigError("backtest", "new", "strategy manager is required")
	}
	if riskManager == nil {
		return nil, errors.NewConfigError("backtest", "new", "risk manager is required")
	}

	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = DefaultInitialCapital
	}
	if cfg.FeeRate == 0 {
		cfg.FeeRate = DefaultFeeRate
	}
	if cfg.EntryConfidence == 0 {
		cfg.EntryConfidence = DefaultEntryConfidence
	}

	if cfg.InitialCapital < 0 {
		return nil, errors.NewConfigError("backtest", "new", "initial capital must be positive")
	}
	if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		return nil, errors.NewConfigError("backtest", "new", "fee rate must be within [0, 1)")
	}
	if cfg.EntryConfidence < 0 || cfg.EntryConfidence > 1 {
		return nil, errors.NewConfigError("backtest", "new", "entry confidence must be within [0, 1]")
	}

	return &Engine{
		strategies: strategies,
		risk:       riskManager,
		cfg:        cfg,
		logger:     log.With().Str("component", "backtest").Logger(),
	}, nil
}

// Run replays the snapshots in order and returns the simulation result.
// Timestamps must be strictly increasing; a regression or duplicate fails
// the run before any trading is simulated. Inputs are never mutated, so
// re-running on the same slice reproduces the same ledger and curve.
func (e *Engine) Run(snapshots []types.Snapshot) (*Result, error) {
	started := time.Now()

	if len(snapshots) == 0 {
		return nil, errors.NewInvalidInputError("backtest", "run", "no snapshots to simulate")
	}
	for i := 1; i < len(snapshots); i++ {
		if !snapshots[i].Timestamp.After(snapshots[i-1].Timestamp) {
			return nil, errors.NewOrderingError("backtest", "run",
				fmt.Sprintf("snapshot %d timestamp %s does not advance past %s",
					i, snapshots[i].Timestamp.Format(time.RFC3339), snapshots[i-1].Timestamp.Format(time.RFC3339)))
		}
	}

	e.logger.Info().
		Int("snapshots", len(snapshots)).
		Float64("initial_capital", e.cfg.InitialCapital).
		Float64("fee_rate", e.cfg.FeeRate).
		Msg("starting backtest run")

	portfolio := NewPortfolio(e.cfg.InitialCapital, e.cfg.FeeRate)
	decisions := make([]types.DecisionRecord, 0, len(snapshots))

	for _, snap := range snapshots {
		e.risk.ResetDay(snap.Timestamp)

		for _, symbol := range snap.Symbols() {
			price := snap.Prices[symbol]
			decision := e.strategies.Decide(symbol, snap.Contexts[symbol])

			if !e.risk.CanTrade() {
				decisions = append(decisions, types.DecisionRecord{
					Timestamp:  snap.Timestamp,
					Symbol:     symbol,
					Price:      price,
					Action:     strategy.ActionHold.String(),
					Confidence: 0,
					Rationale:  "risk shutdown",
				})
				continue
			}

			decisions = append(decisions, types.DecisionRecord{
				Timestamp:  snap.Timestamp,
				Symbol:     symbol,
				Price:      price,
				Action:     decision.Action.String(),
				Confidence: decision.Confidence,
				Rationale:  decision.Rationale,
			})

			switch decision.Action {
			case strategy.ActionBuy:
				if decision.Confidence > e.cfg.EntryConfidence {
					e.openPosition(portfolio, symbol, price, snap)
				}
			case strategy.ActionSell:
				e.closePosition(portfolio, symbol, price, snap.Timestamp)
			}
		}

		portfolio.MarkEquity(snap.Timestamp, snap.Prices)
	}

	curve := portfolio.EquityCurve()
	result := &Result{
		InitialCapital: e.cfg.InitialCapital,
		FinalEquity:    curve[len(curve)-1].Equity,
		FinalCash:      portfolio.Cash(),
		FinalHoldings:  portfolio.Holdings(),
		Decisions:      decisions,
		Ledger:         portfolio.Ledger(),
		EquityCurve:    curve,
	}
	result.UpdateMetrics()

	elapsed := time.Since(started)
	monitoring.ObserveBacktestDuration(elapsed.Seconds())
	e.logger.Info().
		Dur("elapsed", elapsed).
		Int("fills", len(result.Ledger)).
		Float64("final_equity", result.FinalEquity).
		Float64("total_return_pct", result.Metrics.TotalReturnPct).
		Msg("backtest run complete")

	return result, nil
}

// openPosition sizes a buy against current equity and applies the fill.
// An unaffordable or zero-quantity order is skipped, never fatal.
func (e *Engine) openPosition(portfolio *Portfolio, symbol string, price float64, snap types.Snapshot) {
	quantity, err := e.risk.PositionSizeForBalance(price, portfolio.Equity(snap.Prices))
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("position sizing rejected, skipping buy")
		return
	}
	if quantity <= 0 {
		return
	}

	fill, err := portfolio.ApplyBuy(symbol, quantity, price, snap.Timestamp)
	if err != nil {
		if errors.Is(err, ErrInsufficientCash) {
			e.logger.Debug().Str("symbol", symbol).Float64("quantity", quantity).Msg("insufficient cash, skipping buy")
			return
		}
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("buy rejected")
		return
	}
	monitoring.RecordFill(symbol, fill.Action)
}

// closePosition exits the entire holding for a symbol and feeds the
// realized P&L back into the risk manager. The sell is the closing trade;
// buys open exposure but realize nothing.
func (e *Engine) closePosition(portfolio *Portfolio, symbol string, price float64, timestamp time.Time) {
	pos, ok := portfolio.Position(symbol)
	if !ok {
		return
	}

	fill, realized, err := portfolio.ApplySell(symbol, pos.Quantity, price, timestamp)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("sell rejected")
		return
	}
	e.risk.UpdateAfterTrade(realized)
	monitoring.RecordFill(symbol, fill.Action)
}
