package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVProvider_LoadDefaultLayout(t *testing.T) {
	path := writeTempCSV(t, `timestamp,open,high,low,close,volume
2025-03-01 12:00:00,100,110,95,105,1000
2025-03-01 13:00:00,105,115,100,112,1500
`)

	candles, err := NewCSVProvider(zerolog.Nop()).Load(path)
	require.NoError(t, err)

	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), candles[0].Timestamp)
	assert.InDelta(t, 105.0, candles[0].Close, 1e-12)
	assert.InDelta(t, 1500.0, candles[1].Volume, 1e-12)
}

func TestCSVProvider_LoadRFC3339AndUnixTimestamps(t *testing.T) {
	path := writeTempCSV(t, `timestamp,open,high,low,close,volume
2025-03-01T12:00:00Z,100,110,95,105,1000
1740834000,105,115,100,112,1500
1740837600000,112,120,110,118,900
`)

	candles, err := NewCSVProvider(zerolog.Nop()).Load(path)
	require.NoError(t, err)

	require.Len(t, candles, 3)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), candles[0].Timestamp)
	// 1740834000 is 2025-03-01 13:00:00 UTC in seconds
	assert.Equal(t, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), candles[1].Timestamp)
	// The third row is the same instant plus an hour, in milliseconds
	assert.Equal(t, time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC), candles[2].Timestamp)
}

func TestCSVProvider_SkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, `timestamp,open,high,low,close,volume
2025-03-01 12:00:00,100,110,95,105,1000
not-a-time,100,110,95,105,1000
2025-03-01 13:00:00,abc,110,95,105,1000
2025-03-01 14:00:00,100,90,95,105,1000
2025-03-01 15:00:00,100,110,95
2025-03-01 16:00:00,105,115,100,112,1500
`)

	candles, err := NewCSVProvider(zerolog.Nop()).Load(path)
	require.NoError(t, err)

	// Bad timestamp, bad number, high below low, short row all dropped
	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC), candles[1].Timestamp)
}

func TestCSVProvider_RejectsTimestampRegression(t *testing.T) {
	path := writeTempCSV(t, `timestamp,open,high,low,close,volume
2025-03-01 13:00:00,100,110,95,105,1000
2025-03-01 12:00:00,105,115,100,112,1500
`)

	_, err := NewCSVProvider(zerolog.Nop()).Load(path)
	assert.True(t, errors.IsCategory(err, errors.CategoryData))
}

func TestCSVProvider_MissingFile(t *testing.T) {
	_, err := NewCSVProvider(zerolog.Nop()).Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.IsCategory(err, errors.CategoryData))
}

func TestCSVProvider_HeaderOnlyFileRejected(t *testing.T) {
	path := writeTempCSV(t, "timestamp,open,high,low,close,volume\n")

	_, err := NewCSVProvider(zerolog.Nop()).Load(path)
	assert.True(t, errors.IsCategory(err, errors.CategoryData))
}

func TestCSVProvider_CustomMapping(t *testing.T) {
	// Volume first, then OHLC, then timestamp
	path := writeTempCSV(t, `volume,open,high,low,close,timestamp
1000,100,110,95,105,2025-03-01 12:00:00
`)

	provider := NewCSVProvider(zerolog.Nop())
	provider.SetMapping(ColumnMapping{
		Timestamp:  5,
		Open:       1,
		High:       2,
		Low:        3,
		Close:      4,
		Volume:     0,
		MinColumns: 6,
		TimeLayout: "2006-01-02 15:04:05",
	})

	candles, err := provider.Load(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 1000.0, candles[0].Volume, 1e-12)
	assert.InDelta(t, 105.0, candles[0].Close, 1e-12)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "BTCUSDT_1h.csv")
	candles := []types.OHLCV{
		{Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), Open: 100, High: 110, Low: 95, Close: 105.25, Volume: 1000.5},
		{Timestamp: time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), Open: 105.25, High: 115, Low: 100, Close: 112, Volume: 1500},
	}

	require.NoError(t, WriteCSV(path, candles))

	loaded, err := NewCSVProvider(zerolog.Nop()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, candles, loaded)
}

func TestFilePath_Convention(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "BTCUSDT_1h.csv"), FilePath("data", "BTCUSDT", "1h"))
}
