package reporting

import (
	"path/filepath"
	"strings"
)

// ResultPaths derives the workbook and JSON export paths for one run
// from the output directory, symbols and interval. Deterministic so two
// runs on the same inputs overwrite the same files.
func ResultPaths(dir string, symbols []string, interval string) (xlsxPath, jsonPath string) {
	base := strings.ToLower(strings.Join(symbols, "_"))
	if base == "" {
		base = "backtest"
	}
	base = base + "_" + interval

	xlsxPath = filepath.Join(dir, base+"_backtest.xlsx")
	jsonPath = filepath.Join(dir, base+"_backtest.json")
	return xlsxPath, jsonPath
}
