package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// annualizationDays converts per-step statistics to yearly figures. Crypto
// trades every day, so 365 rather than the equity-market 252.
const annualizationDays = 365

// PerformanceMetrics summarizes one run. Percentages are expressed as
// percent (4.5 means 4.5%), ratios as plain numbers. ProfitFactor is
// +Inf for a run with profits and no losses.
type PerformanceMetrics struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	VolatilityPct       float64 `json:"volatility_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	CalmarRatio         float64 `json:"calmar_ratio"`

	TotalFills        int     `json:"total_fills"`
	CompletedTrades   int     `json:"completed_trades"`
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	WinRatePct        float64 `json:"win_rate_pct"`
	GrossProfit       float64 `json:"gross_profit"`
	GrossLoss         float64 `json:"gross_loss"`
	NetProfit         float64 `json:"net_profit"`
	ProfitFactor      float64 `json:"profit_factor"`
	AvgProfitPerTrade float64 `json:"avg_profit_per_trade"`

	PeakEquity float64   `json:"peak_equity"`
	Days       int       `json:"days"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// UpdateMetrics recomputes the performance metrics from the equity curve
// and the fill ledger.
func (r *Result) UpdateMetrics() {
	m := PerformanceMetrics{TotalFills: len(r.Ledger)}
	r.curveMetrics(&m)
	r.tradeMetrics(&m)
	r.Metrics = m
}

// curveMetrics derives return, drawdown, and volatility figures from the
// equity curve.
func (r *Result) curveMetrics(m *PerformanceMetrics) {
	curve := r.EquityCurve
	if len(curve) == 0 || r.InitialCapital <= 0 {
		return
	}

	m.Start = curve[0].Timestamp
	m.End = curve[len(curve)-1].Timestamp
	m.Days = int(m.End.Sub(m.Start).Hours() / 24)

	final := curve[len(curve)-1].Equity
	m.TotalReturnPct = (final - r.InitialCapital) / r.InitialCapital * 100

	if m.Days > 0 && final > 0 {
		m.AnnualizedReturnPct = (math.Pow(final/r.InitialCapital, annualizationDays/float64(m.Days)) - 1) * 100
	}

	runningMax := curve[0].Equity
	maxDrawdown := 0.0
	for _, point := range curve {
		if point.Equity > runningMax {
			runningMax = point.Equity
		}
		if runningMax > 0 {
			if dd := (runningMax - point.Equity) / runningMax; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	m.PeakEquity = runningMax
	m.MaxDrawdownPct = maxDrawdown * 100

	returns := stepReturns(curve)
	if len(returns) > 0 {
		stdDev := stat.PopStdDev(returns, nil)
		m.VolatilityPct = stdDev * math.Sqrt(annualizationDays) * 100
		if stdDev > 0 {
			m.SharpeRatio = stat.Mean(returns, nil) / stdDev * math.Sqrt(annualizationDays)
		}
	}

	if m.MaxDrawdownPct > 0 {
		m.CalmarRatio = m.AnnualizedReturnPct / m.MaxDrawdownPct
	}
}

// tradeMetrics pairs each sell with the most recent earlier buy of the
// same symbol and accumulates closed-trade P&L. Sells with no matching
// buy, such as exits from restored holdings, count as completed trades
// but carry no P&L.
func (r *Result) tradeMetrics(m *PerformanceMetrics) {
	for i, fill := range r.Ledger {
		if fill.Action != "SELL" {
			continue
		}
		m.CompletedTrades++

		var entry *types.Fill
		for j := i - 1; j >= 0; j-- {
			if r.Ledger[j].Symbol == fill.Symbol && r.Ledger[j].Action == "BUY" {
				entry = &r.Ledger[j]
				break
			}
		}
		if entry == nil {
			continue
		}

		profit := (fill.Price-entry.Price)*fill.Quantity - fill.Fee - entry.Fee
		if profit > 0 {
			m.WinningTrades++
			m.GrossProfit += profit
		} else {
			m.GrossLoss += math.Abs(profit)
		}
	}

	m.LosingTrades = m.CompletedTrades - m.WinningTrades
	m.NetProfit = m.GrossProfit - m.GrossLoss

	if m.CompletedTrades > 0 {
		m.WinRatePct = float64(m.WinningTrades) / float64(m.CompletedTrades) * 100
		m.AvgProfitPerTrade = m.NetProfit / float64(m.CompletedTrades)
	}

	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
}

// stepReturns converts the equity curve into per-step simple returns,
// skipping steps whose base value is not positive.
func stepReturns(curve []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}
