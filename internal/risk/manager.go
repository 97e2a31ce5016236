package risk

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/monitoring"
)

// State represents the trading permission state for the current day
type State int

const (
	// Trading is the initial state, sizing and approval succeed
	StateTrading State = iota
	// Shutdown is terminal for the day, entered when the daily loss
	// limit is breached; only a day rollover leaves it
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateTrading:
		return "TRADING"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Config holds the capital preservation policy parameters.
type Config struct {
	StartingCapital float64 // trading capital at day one
	RiskPerTrade    float64 // fraction of capital risked per position
	MaxDailyLossPct float64 // fraction of starting capital that trips shutdown
}

// DefaultConfig returns the stock policy: 200 starting capital, 3% per
// trade, 5% daily loss limit.
func DefaultConfig() Config {
	return Config{
		StartingCapital: 200,
		RiskPerTrade:    0.03,
		MaxDailyLossPct: 0.05,
	}
}

// Manager gates and sizes trades against a fixed capital preservation
// policy. It is a two state machine: Trading until the cumulative daily
// loss exceeds the limit, then Shutdown until the next day rollover.
type Manager struct {
	mu             sync.RWMutex
	cfg            Config
	state          State
	currentCapital float64
	dailyPnl       float64
	tradingDay     time.Time
	logger         zerolog.Logger
}

// NewManager creates a risk manager in the Trading state. Zero config
// fields fall back to the defaults; negative ones are rejected.
func NewManager(cfg Config, log zerolog.Logger) (*Manager, error) {
	defaults := DefaultConfig()
	if cfg.StartingCapital == 0 {
		cfg.StartingCapital = defaults.StartingCapital
	}
	if cfg.RiskPerTrade == 0 {
		cfg.RiskPerTrade = defaults.RiskPerTrade
	}
	if cfg.MaxDailyLossPct == 0 {
		cfg.MaxDailyLossPct = defaults.MaxDailyLossPct
	}

	if cfg.StartingCapital < 0 {
		return nil, errors.NewConfigError("risk_manager", "new", "starting capital must be positive")
	}
	if cfg.RiskPerTrade < 0 || cfg.RiskPerTrade > 1 {
		return nil, errors.NewConfigError("risk_manager", "new", "risk per trade must be within [0, 1]")
	}
	if cfg.MaxDailyLossPct < 0 || cfg.MaxDailyLossPct > 1 {
		return nil, errors.NewConfigError("risk_manager", "new", "max daily loss must be within [0, 1]")
	}

	return &Manager{
		cfg:            cfg,
		state:          StateTrading,
		currentCapital: cfg.StartingCapital,
		logger:         log.With().Str("component", "risk_manager").Logger(),
	}, nil
}

// State returns the current trading permission state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CanTrade reports whether new positions may be opened.
func (m *Manager) CanTrade() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateTrading
}

// PositionSize returns the quantity to trade at the given price using
// the internally tracked capital. A non-positive price is rejected;
// Shutdown yields a zero quantity, not an error, so callers that need
// to distinguish the two must check CanTrade separately.
func (m *Manager) PositionSize(price float64) (float64, error) {
	m.mu.RLock()
	capital := m.currentCapital
	m.mu.RUnlock()
	return m.size(price, capital)
}

// PositionSizeForBalance sizes against an externally supplied balance,
// such as the live exchange balance or a backtest portfolio's equity,
// instead of the internally tracked capital.
func (m *Manager) PositionSizeForBalance(price, balance float64) (float64, error) {
	if balance < 0 {
		return 0, errors.NewInvalidInputError("risk_manager", "position_size", "balance must be non-negative")
	}
	return m.size(price, balance)
}

func (m *Manager) size(price, capital float64) (float64, error) {
	if price <= 0 {
		return 0, errors.NewInvalidInputError("risk_manager", "position_size", "price must be positive")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == StateShutdown {
		return 0, nil
	}

	positionValue := capital * m.cfg.RiskPerTrade
	quantity := roundQuantity(positionValue / price)

	m.logger.Debug().
		Float64("quantity", quantity).
		Float64("price", price).
		Float64("position_value", positionValue).
		Float64("capital", capital).
		Msg("Position sized")
	return quantity, nil
}

// UpdateAfterTrade records one realized trade outcome. It adjusts the
// tracked capital and daily P&L and trips the shutdown once the daily
// loss exceeds the limit. Call exactly once per closed trade.
func (m *Manager) UpdateAfterTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentCapital += pnl
	m.dailyPnl += pnl

	maxDailyLoss := m.cfg.StartingCapital * m.cfg.MaxDailyLossPct
	if m.state == StateTrading && m.dailyPnl < -maxDailyLoss {
		m.state = StateShutdown
		m.logger.Error().
			Float64("daily_pnl", m.dailyPnl).
			Float64("limit", maxDailyLoss).
			Msg("Daily loss limit breached, trading shutdown")
	} else {
		m.logger.Info().
			Float64("pnl", pnl).
			Float64("daily_pnl", m.dailyPnl).
			Float64("capital", m.currentCapital).
			Msg("Risk state updated")
	}

	monitoring.UpdateRiskState(m.currentCapital, m.dailyPnl, m.state == StateShutdown)
}

// ResetDay rolls the tracker onto the UTC date of the given instant.
// Crossing into a new day clears the daily P&L and lifts a shutdown.
// Same-day calls are no-ops, so it is safe to invoke once per snapshot
// or cycle.
func (m *Manager) ResetDay(now time.Time) {
	day := toUTCDate(now)

	m.mu.Lock()
	defer m.mu.Unlock()

	if day.Equal(m.tradingDay) {
		return
	}

	m.dailyPnl = 0
	m.state = StateTrading
	m.tradingDay = day

	m.logger.Info().Str("trading_day", day.Format("2006-01-02")).Msg("Daily reset complete")
	monitoring.UpdateRiskState(m.currentCapital, m.dailyPnl, false)
}

// Stats is a point-in-time snapshot of the risk tracker for reporting.
type Stats struct {
	StartingCapital float64   `json:"starting_capital"`
	CurrentCapital  float64   `json:"current_capital"`
	DailyPnl        float64   `json:"daily_pnl"`
	Shutdown        bool      `json:"shutdown"`
	TradingDay      time.Time `json:"trading_day"`
	RiskPerTrade    float64   `json:"risk_per_trade"`
	MaxDailyLossPct float64   `json:"max_daily_loss_pct"`
}

// Stats returns the current risk management statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		StartingCapital: m.cfg.StartingCapital,
		CurrentCapital:  m.currentCapital,
		DailyPnl:        m.dailyPnl,
		Shutdown:        m.state == StateShutdown,
		TradingDay:      m.tradingDay,
		RiskPerTrade:    m.cfg.RiskPerTrade,
		MaxDailyLossPct: m.cfg.MaxDailyLossPct,
	}
}

// RiskState is the minimal state the tracker retains across process
// restarts. The capital figures and the shutdown flag must survive a
// crash mid-day or the daily loss limit could be evaded by restarting.
type RiskState struct {
	StartingCapital float64   `json:"starting_capital"`
	CurrentCapital  float64   `json:"current_capital"`
	DailyPnl        float64   `json:"cumulative_pnl_today"`
	Shutdown        bool      `json:"shutdown"`
	TradingDay      time.Time `json:"trading_day"`
}

// Snapshot exports the persistable state.
func (m *Manager) Snapshot() RiskState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return RiskState{
		StartingCapital: m.cfg.StartingCapital,
		CurrentCapital:  m.currentCapital,
		DailyPnl:        m.dailyPnl,
		Shutdown:        m.state == StateShutdown,
		TradingDay:      m.tradingDay,
	}
}

// Restore replaces the tracker state with a previously persisted one.
// The persisted starting capital must match the configured one so a
// config change cannot silently shift the loss limit base.
func (m *Manager) Restore(s RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.StartingCapital != m.cfg.StartingCapital {
		return errors.NewInvalidInputError("risk_manager", "restore",
			"persisted starting capital does not match configuration")
	}

	m.currentCapital = s.CurrentCapital
	m.dailyPnl = s.DailyPnl
	m.tradingDay = toUTCDate(s.TradingDay)
	if s.Shutdown {
		m.state = StateShutdown
	} else {
		m.state = StateTrading
	}

	monitoring.UpdateRiskState(m.currentCapital, m.dailyPnl, s.Shutdown)
	return nil
}

func toUTCDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// roundQuantity truncates position sizes to six decimals, enough for
// the smallest tradable increments on major pairs.
func roundQuantity(q float64) float64 {
	return math.Round(q*1e6) / 1e6
}
