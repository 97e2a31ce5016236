package types

import (
	"sort"
	"time"
)

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Context bundles the per-symbol market inputs one decision cycle reads.
// Strategies pick the fields they need and ignore the rest.
type Context struct {
	Price         float64
	Volume        float64
	PriceHistory  []float64
	VolumeHistory []float64
	Headlines     []string
}

// Snapshot is one timestamped bundle of prices and per-symbol context,
// either live (one per cycle) or historical (one per candle).
type Snapshot struct {
	Timestamp time.Time
	Prices    map[string]float64
	Contexts  map[string]Context
}

// Symbols returns the snapshot's symbols in sorted order so that replay
// visits them deterministically.
func (s Snapshot) Symbols() []string {
	symbols := make([]string, 0, len(s.Prices))
	for symbol := range s.Prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
