package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/vquangdinh/crypto-signal-bot/internal/backtest"
)

// ExcelReporter writes one workbook per run with Summary, Trades,
// Equity and Decisions sheets.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	percent  int
	quantity int
}

// WriteResult writes the full backtest result to an xlsx file, creating
// parent directories as needed.
func (r *ExcelReporter) WriteResult(result *backtest.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const (
		summarySheet   = "Summary"
		tradesSheet    = "Trades"
		equitySheet    = "Equity"
		decisionsSheet = "Decisions"
	)

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(decisionsSheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeDecisionsSheet(fx, decisionsSheet, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(`$#,##0.00`),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(`0.00"%"`),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.quantity, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(`0.000000`),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	m := result.Metrics

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Initial Capital", result.InitialCapital, styles.currency},
		{"Final Equity", result.FinalEquity, styles.currency},
		{"Final Cash", result.FinalCash, styles.currency},
		{"Peak Equity", m.PeakEquity, styles.currency},
		{"Total Return", m.TotalReturnPct, styles.percent},
		{"Annualized Return", m.AnnualizedReturnPct, styles.percent},
		{"Max Drawdown", m.MaxDrawdownPct, styles.percent},
		{"Volatility", m.VolatilityPct, styles.percent},
		{"Sharpe Ratio", m.SharpeRatio, 0},
		{"Calmar Ratio", m.CalmarRatio, 0},
		{"Total Fills", m.TotalFills, 0},
		{"Completed Trades", m.CompletedTrades, 0},
		{"Winning Trades", m.WinningTrades, 0},
		{"Losing Trades", m.LosingTrades, 0},
		{"Win Rate", m.WinRatePct, styles.percent},
		{"Gross Profit", m.GrossProfit, styles.currency},
		{"Gross Loss", m.GrossLoss, styles.currency},
		{"Net Profit", m.NetProfit, styles.currency},
		{"Profit Factor", formatProfitFactor(m.ProfitFactor), 0},
		{"Avg Profit Per Trade", m.AvgProfitPerTrade, styles.currency},
		{"Days", m.Days, 0},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+2)
		valueCell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "A", 24)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Timestamp", "Symbol", "Side", "Quantity", "Price", "Value", "Fee"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}

	for i, fill := range result.Ledger {
		row := i + 2
		values := []interface{}{
			fill.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			fill.Symbol,
			fill.Action,
			fill.Quantity,
			fill.Price,
			fill.Value(),
			fill.Fee,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
		qtyCell, _ := excelize.CoordinatesToCellName(4, row)
		if err := fx.SetCellStyle(sheet, qtyCell, qtyCell, styles.quantity); err != nil {
			return err
		}
		priceCell, _ := excelize.CoordinatesToCellName(5, row)
		feeCell, _ := excelize.CoordinatesToCellName(7, row)
		if err := fx.SetCellStyle(sheet, priceCell, feeCell, styles.currency); err != nil {
			return err
		}
	}

	if len(result.Ledger) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(result.Ledger)+1)
		if err := fx.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "A", 20)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	if err := fx.SetCellValue(sheet, "A1", "Timestamp"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Equity"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, point := range result.EquityCurve {
		row := i + 2
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), point.Timestamp.UTC().Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellValue(sheet, cell, point.Equity); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.currency); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "A", 20)
}

func (r *ExcelReporter) writeDecisionsSheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Timestamp", "Symbol", "Price", "Action", "Confidence", "Rationale"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}

	for i, decision := range result.Decisions {
		row := i + 2
		values := []interface{}{
			decision.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			decision.Symbol,
			decision.Price,
			decision.Action,
			decision.Confidence,
			decision.Rationale,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	if err := fx.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "F", "F", 60)
}

func strPtr(s string) *string {
	return &s
}
