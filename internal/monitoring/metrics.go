package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decision pipeline metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_decisions_total",
			Help: "Total number of aggregate decisions by action",
		},
		[]string{"symbol", "action"},
	)

	opinionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_opinions_total",
			Help: "Total number of strategy opinions by strategy and action",
		},
		[]string{"strategy", "action"},
	)

	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_bot_strategy_confidence",
			Help: "Most recent confidence per strategy",
		},
		[]string{"strategy"},
	)

	strategyErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_strategy_errors_total",
			Help: "Total number of strategy opinion failures demoted to HOLD",
		},
		[]string{"strategy"},
	)

	// Risk metrics
	riskCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_risk_capital",
			Help: "Current capital tracked by the risk manager",
		},
	)

	riskDailyPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_risk_daily_pnl",
			Help: "Cumulative realized P&L for the current trading day",
		},
	)

	riskShutdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_risk_shutdown",
			Help: "1 while the daily loss circuit breaker is tripped",
		},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_trades_total",
			Help: "Total number of fills by symbol and side",
		},
		[]string{"symbol", "side"},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_bot_current_price",
			Help: "Most recent observed price per symbol",
		},
		[]string{"symbol"},
	)

	// Backtest metrics
	backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_bot_backtest_duration_seconds",
			Help:    "Wall time of completed backtest runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(opinionsTotal)
	prometheus.MustRegister(strategyConfidence)
	prometheus.MustRegister(strategyErrorsTotal)
	prometheus.MustRegister(riskCapital)
	prometheus.MustRegister(riskDailyPnl)
	prometheus.MustRegister(riskShutdown)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(backtestDuration)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordDecision records one aggregate decision
func RecordDecision(symbol, action string) {
	decisionsTotal.WithLabelValues(symbol, action).Inc()
}

// RecordOpinion records one strategy opinion and its confidence
func RecordOpinion(strategy, action string, confidence float64) {
	opinionsTotal.WithLabelValues(strategy, action).Inc()
	strategyConfidence.WithLabelValues(strategy).Set(confidence)
}

// RecordStrategyError counts a strategy failure demoted to HOLD
func RecordStrategyError(strategy string) {
	strategyErrorsTotal.WithLabelValues(strategy).Inc()
}

// UpdateRiskState mirrors the risk manager state into gauges
func UpdateRiskState(capital, dailyPnl float64, shutdown bool) {
	riskCapital.Set(capital)
	riskDailyPnl.Set(dailyPnl)
	if shutdown {
		riskShutdown.Set(1)
	} else {
		riskShutdown.Set(0)
	}
}

// RecordFill records one executed fill
func RecordFill(symbol, side string) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// ObserveBacktestDuration records the wall time of one backtest run
func ObserveBacktestDuration(seconds float64) {
	backtestDuration.Observe(seconds)
}
