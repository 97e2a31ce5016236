package reporting

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vquangdinh/crypto-signal-bot/internal/backtest"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// ConsoleReporter renders backtest results as terminal tables.
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintRunSummary prints the run overview table.
func (r *ConsoleReporter) PrintRunSummary(result *backtest.Result, symbols []string, interval string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RUN")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbols", joinSymbols(symbols)},
		{"⏰ Interval", interval},
		{"🗓️ Period", formatPeriod(result.Metrics.Start, result.Metrics.End, result.Metrics.Days)},
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", result.InitialCapital)},
		{"💰 Final Equity", fmt.Sprintf("$%.2f", result.FinalEquity)},
		{"🔄 Fills", fmt.Sprintf("%d", len(result.Ledger))},
		{"🧭 Decisions", fmt.Sprintf("%d", len(result.Decisions))},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 28, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintMetrics prints the performance metrics table.
func (r *ConsoleReporter) PrintMetrics(m backtest.PerformanceMetrics) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PERFORMANCE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📈 Total Return", fmt.Sprintf("%.2f%%", m.TotalReturnPct)},
		{"📈 Annualized Return", fmt.Sprintf("%.2f%%", m.AnnualizedReturnPct)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdownPct)},
		{"📊 Volatility", fmt.Sprintf("%.2f%%", m.VolatilityPct)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"📊 Calmar Ratio", fmt.Sprintf("%.2f", m.CalmarRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Completed Trades", fmt.Sprintf("%d", m.CompletedTrades)},
		{"✅ Winning Trades", fmt.Sprintf("%d", m.WinningTrades)},
		{"❌ Losing Trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"🎯 Win Rate", fmt.Sprintf("%.1f%%", m.WinRatePct)},
		{"💹 Profit Factor", formatProfitFactor(m.ProfitFactor)},
		{"💵 Net Profit", fmt.Sprintf("$%.2f", m.NetProfit)},
		{"💵 Avg Per Trade", fmt.Sprintf("$%.2f", m.AvgProfitPerTrade)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})

	t.Render()
	fmt.Println()
}

// PrintRecentFills prints the tail of the trade ledger, newest last.
func (r *ConsoleReporter) PrintRecentFills(ledger []types.Fill, limit int) {
	if len(ledger) == 0 {
		fmt.Println("No fills executed.")
		fmt.Println()
		return
	}
	if limit <= 0 || limit > len(ledger) {
		limit = len(ledger)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("LAST %d FILLS", limit))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Symbol", "Side", "Quantity", "Price", "Fee"})

	for _, fill := range ledger[len(ledger)-limit:] {
		t.AppendRow(table.Row{
			fill.Timestamp.UTC().Format("2006-01-02 15:04"),
			fill.Symbol,
			fill.Action,
			fmt.Sprintf("%.6f", fill.Quantity),
			fmt.Sprintf("$%.2f", fill.Price),
			fmt.Sprintf("$%.4f", fill.Fee),
		})
	}

	t.Render()
	fmt.Println()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "Inf"
	}
	return fmt.Sprintf("%.2f", pf)
}

func formatPeriod(start, end time.Time, days int) string {
	if start.IsZero() {
		return "n/a"
	}
	return fmt.Sprintf("%s → %s (%dd)", start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"), days)
}

func joinSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return "n/a"
	}
	out := symbols[0]
	for _, s := range symbols[1:] {
		out += ", " + s
	}
	return out
}
