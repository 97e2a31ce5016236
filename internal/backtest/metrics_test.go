package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

func equityCurve(start time.Time, values ...float64) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = types.EquityPoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Equity: v}
	}
	return curve
}

func ledgerFill(symbol, action string, quantity, price, fee float64, ts time.Time) types.Fill {
	return types.Fill{Symbol: symbol, Action: action, Quantity: quantity, Price: price, Fee: fee, Timestamp: ts}
}

func TestMetrics_KnownCurve(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		EquityCurve:    equityCurve(start, 10000, 11000, 10450),
	}
	r.UpdateMetrics()
	m := r.Metrics

	// Returns are +10% then -5%; population stddev is 0.075
	assert.InDelta(t, 4.5, m.TotalReturnPct, 1e-9)
	assert.InDelta(t, 5.0, m.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 0.075*math.Sqrt(365)*100, m.VolatilityPct, 1e-9)
	assert.InDelta(t, 0.025/0.075*math.Sqrt(365), m.SharpeRatio, 1e-9)
	assert.InDelta(t, 11000, m.PeakEquity, 1e-9)

	// Two hours is less than a day, so no annualization
	assert.Equal(t, 0, m.Days)
	assert.Zero(t, m.AnnualizedReturnPct)
	assert.Zero(t, m.CalmarRatio)
	assert.Equal(t, start, m.Start)
	assert.Equal(t, start.Add(2*time.Hour), m.End)
}

func TestMetrics_FlatCurveIsAllZeros(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{InitialCapital: 10000, EquityCurve: equityCurve(start, 10000, 10000, 10000)}
	r.UpdateMetrics()

	assert.Zero(t, r.Metrics.TotalReturnPct)
	assert.Zero(t, r.Metrics.MaxDrawdownPct)
	assert.Zero(t, r.Metrics.VolatilityPct)
	assert.Zero(t, r.Metrics.SharpeRatio)
	assert.Zero(t, r.Metrics.CalmarRatio)
}

func TestMetrics_AnnualizedOverFullYear(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		EquityCurve: []types.EquityPoint{
			{Timestamp: start, Equity: 10000},
			{Timestamp: start.AddDate(1, 0, 0), Equity: 12000},
		},
	}
	r.UpdateMetrics()

	assert.InDelta(t, 20.0, r.Metrics.TotalReturnPct, 1e-9)
	assert.InDelta(t, 20.0, r.Metrics.AnnualizedReturnPct, 1e-6)
}

func TestMetrics_CalmarFromDrawdown(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		EquityCurve: []types.EquityPoint{
			{Timestamp: start, Equity: 10000},
			{Timestamp: start.AddDate(0, 6, 0), Equity: 9000},
			{Timestamp: start.AddDate(1, 0, 0), Equity: 12000},
		},
	}
	r.UpdateMetrics()

	assert.InDelta(t, 10.0, r.Metrics.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, r.Metrics.AnnualizedReturnPct/10.0, r.Metrics.CalmarRatio, 1e-9)
}

func TestMetrics_TradePairingAndUnmatchedSell(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		Ledger: []types.Fill{
			ledgerFill("BTCUSDT", "BUY", 1, 100, 1, start),
			ledgerFill("BTCUSDT", "SELL", 1, 150, 1, start.Add(time.Hour)),
			// Exit from a restored holding, no buy on the ledger
			ledgerFill("ETHUSDT", "SELL", 1, 50, 0.5, start.Add(2*time.Hour)),
		},
	}
	r.UpdateMetrics()
	m := r.Metrics

	assert.Equal(t, 3, m.TotalFills)
	assert.Equal(t, 2, m.CompletedTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 50.0, m.WinRatePct, 1e-9)
	assert.InDelta(t, 48.0, m.GrossProfit, 1e-9)
	assert.Zero(t, m.GrossLoss)
	assert.InDelta(t, 48.0, m.NetProfit, 1e-9)
	assert.InDelta(t, 24.0, m.AvgProfitPerTrade, 1e-9)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
}

func TestMetrics_LosingRunHasZeroProfitFactor(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		Ledger: []types.Fill{
			ledgerFill("BTCUSDT", "BUY", 1, 100, 1, start),
			ledgerFill("BTCUSDT", "SELL", 1, 90, 1, start.Add(time.Hour)),
		},
	}
	r.UpdateMetrics()
	m := r.Metrics

	assert.Equal(t, 1, m.CompletedTrades)
	assert.Zero(t, m.WinningTrades)
	assert.InDelta(t, 12.0, m.GrossLoss, 1e-9)
	assert.InDelta(t, -12.0, m.NetProfit, 1e-9)
	assert.Zero(t, m.WinRatePct)
	assert.Zero(t, m.ProfitFactor)
}

func TestMetrics_MixedTradesFiniteProfitFactor(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		Ledger: []types.Fill{
			ledgerFill("BTCUSDT", "BUY", 1, 100, 1, start),
			ledgerFill("ETHUSDT", "BUY", 1, 100, 1, start),
			ledgerFill("BTCUSDT", "SELL", 1, 150, 1, start.Add(time.Hour)),
			ledgerFill("ETHUSDT", "SELL", 1, 90, 1, start.Add(time.Hour)),
		},
	}
	r.UpdateMetrics()
	m := r.Metrics

	// +48 on BTC against -12 on ETH
	assert.InDelta(t, 4.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 50.0, m.WinRatePct, 1e-9)
	assert.InDelta(t, 36.0, m.NetProfit, 1e-9)
	assert.InDelta(t, 18.0, m.AvgProfitPerTrade, 1e-9)
}

func TestMetrics_SellMatchesMostRecentBuy(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{
		InitialCapital: 10000,
		Ledger: []types.Fill{
			ledgerFill("BTCUSDT", "BUY", 1, 100, 0, start),
			ledgerFill("BTCUSDT", "SELL", 1, 110, 0, start.Add(time.Hour)),
			ledgerFill("BTCUSDT", "BUY", 1, 120, 0, start.Add(2*time.Hour)),
			ledgerFill("BTCUSDT", "SELL", 1, 115, 0, start.Add(3*time.Hour)),
		},
	}
	r.UpdateMetrics()
	m := r.Metrics

	// Second sell pairs with the 120 entry, not the first buy
	assert.InDelta(t, 10.0, m.GrossProfit, 1e-9)
	assert.InDelta(t, 5.0, m.GrossLoss, 1e-9)
	assert.InDelta(t, 2.0, m.ProfitFactor, 1e-9)
}

func TestMetrics_EmptyResult(t *testing.T) {
	r := &Result{InitialCapital: 10000}
	r.UpdateMetrics()

	assert.Zero(t, r.Metrics.TotalReturnPct)
	assert.Zero(t, r.Metrics.TotalFills)
	assert.Zero(t, r.Metrics.CompletedTrades)
	assert.Zero(t, r.Metrics.ProfitFactor)
	assert.True(t, r.Metrics.Start.IsZero())
}

func TestMetrics_ZeroEquityStepSkipped(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Result{InitialCapital: 10000, EquityCurve: equityCurve(start, 10000, 0, 5000)}
	r.UpdateMetrics()

	// The step off a zero base is dropped instead of dividing by zero
	assert.InDelta(t, 100.0, r.Metrics.MaxDrawdownPct, 1e-9)
	assert.False(t, math.IsNaN(r.Metrics.SharpeRatio))
	assert.False(t, math.IsNaN(r.Metrics.VolatilityPct))
}
