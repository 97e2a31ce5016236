package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

func candlesAt(base time.Time, hourOffsets ...int) []types.OHLCV {
	candles := make([]types.OHLCV, len(hourOffsets))
	for i, offset := range hourOffsets {
		candles[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(offset) * time.Hour),
			Close:     float64(100 + offset),
		}
	}
	return candles
}

var filterBase = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func TestFilterByDateRange_BoundsAreInclusive(t *testing.T) {
	candles := candlesAt(filterBase, 0, 1, 2, 3, 4)

	filtered := FilterByDateRange(candles, filterBase.Add(time.Hour), filterBase.Add(3*time.Hour))
	require.Len(t, filtered, 3)
	assert.Equal(t, filterBase.Add(time.Hour), filtered[0].Timestamp)
	assert.Equal(t, filterBase.Add(3*time.Hour), filtered[2].Timestamp)
}

func TestFilterByDateRange_EmptyWindow(t *testing.T) {
	candles := candlesAt(filterBase, 0, 1, 2)

	filtered := FilterByDateRange(candles, filterBase.Add(10*time.Hour), filterBase.Add(20*time.Hour))
	assert.Empty(t, filtered)
}

func TestFilterByDateRange_ZeroStartIsUnbounded(t *testing.T) {
	candles := candlesAt(filterBase, 0, 1, 2)

	filtered := FilterByDateRange(candles, time.Time{}, filterBase.Add(time.Hour))
	assert.Len(t, filtered, 2)
}

func TestSortByTimestamp_SortsCopy(t *testing.T) {
	shuffled := []types.OHLCV{
		{Timestamp: filterBase.Add(2 * time.Hour), Close: 102},
		{Timestamp: filterBase, Close: 100},
		{Timestamp: filterBase.Add(time.Hour), Close: 101},
	}

	sorted := SortByTimestamp(shuffled)
	require.Len(t, sorted, 3)
	assert.Equal(t, 100.0, sorted[0].Close)
	assert.Equal(t, 101.0, sorted[1].Close)
	assert.Equal(t, 102.0, sorted[2].Close)

	// The input slice is left as-is.
	assert.Equal(t, 102.0, shuffled[0].Close)
}

func TestRemoveDuplicates_KeepsFirstOccurrence(t *testing.T) {
	candles := []types.OHLCV{
		{Timestamp: filterBase, Close: 100},
		{Timestamp: filterBase, Close: 999},
		{Timestamp: filterBase.Add(time.Hour), Close: 101},
		{Timestamp: filterBase.Add(time.Hour), Close: 888},
	}

	deduped := RemoveDuplicates(candles)
	require.Len(t, deduped, 2)
	assert.Equal(t, 100.0, deduped[0].Close)
	assert.Equal(t, 101.0, deduped[1].Close)
}

func TestValidateSequence(t *testing.T) {
	assert.NoError(t, ValidateSequence(candlesAt(filterBase, 0, 1, 2)))
	assert.NoError(t, ValidateSequence(nil))

	assert.Error(t, ValidateSequence(candlesAt(filterBase, 0, 2, 1)))
	assert.Error(t, ValidateSequence(candlesAt(filterBase, 0, 1, 1)))
}
