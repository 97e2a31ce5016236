package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// FilterByDateRange keeps candles with start <= timestamp <= end.
func FilterByDateRange(candles []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, candle := range candles {
		if !candle.Timestamp.Before(start) && !candle.Timestamp.After(end) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// SortByTimestamp returns a copy sorted ascending by timestamp.
func SortByTimestamp(candles []types.OHLCV) []types.OHLCV {
	sorted := make([]types.OHLCV, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RemoveDuplicates drops candles repeating an already seen timestamp,
// keeping the first occurrence.
func RemoveDuplicates(candles []types.OHLCV) []types.OHLCV {
	if len(candles) <= 1 {
		return candles
	}

	seen := make(map[int64]bool, len(candles))
	filtered := make([]types.OHLCV, 0, len(candles))
	for _, candle := range candles {
		key := candle.Timestamp.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		filtered = append(filtered, candle)
	}
	return filtered
}

// ValidateSequence reports the first strictly-decreasing or duplicated
// timestamp in a series.
func ValidateSequence(candles []types.OHLCV) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return fmt.Errorf("timestamp at index %d (%s) does not advance past %s",
				i, candles[i].Timestamp.Format(time.RFC3339), candles[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
