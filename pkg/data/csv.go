package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// ColumnMapping defines where each OHLCV field sits in a CSV row and how
// timestamps are written.
type ColumnMapping struct {
	Timestamp  int
	Open       int
	High       int
	Low        int
	Close      int
	Volume     int
	MinColumns int
	TimeLayout string
}

// DefaultColumnMapping matches the files cmd/fetch-data writes:
// timestamp,open,high,low,close,volume with second-precision timestamps.
var DefaultColumnMapping = ColumnMapping{
	Timestamp:  0,
	Open:       1,
	High:       2,
	Low:        3,
	Close:      4,
	Volume:     5,
	MinColumns: 6,
	TimeLayout: "2006-01-02 15:04:05",
}

// CSVProvider loads OHLCV candles from CSV files. Malformed rows are
// logged and skipped; a timestamp that runs backwards rejects the whole
// file, since a silently reordered series would corrupt every indicator
// downstream.
type CSVProvider struct {
	mapping ColumnMapping
	logger  zerolog.Logger
}

// NewCSVProvider creates a provider with the default column mapping.
func NewCSVProvider(log zerolog.Logger) *CSVProvider {
	return &CSVProvider{
		mapping: DefaultColumnMapping,
		logger:  log.With().Str("component", "csv_provider").Logger(),
	}
}

// SetMapping overrides the column mapping for non-standard files.
func (p *CSVProvider) SetMapping(mapping ColumnMapping) {
	p.mapping = mapping
}

// Load reads all candles from one CSV file in chronological order.
func (p *CSVProvider) Load(path string) ([]types.OHLCV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("csv_provider", "open", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var candles []types.OHLCV
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataError("csv_provider", "read", fmt.Errorf("line %d: %w", line+1, err))
		}
		line++

		candle, err := p.parseRow(record)
		if err != nil {
			if line == 1 {
				// First row is usually a header
				p.logger.Debug().Str("path", path).Msg("skipping header row")
			} else {
				p.logger.Warn().Str("path", path).Int("line", line).Err(err).Msg("skipping malformed row")
			}
			continue
		}

		if n := len(candles); n > 0 && candle.Timestamp.Before(candles[n-1].Timestamp) {
			return nil, errors.NewDataError("csv_provider", "load",
				fmt.Errorf("timestamp order regression at line %d: %s before %s",
					line, candle.Timestamp.Format(time.RFC3339), candles[n-1].Timestamp.Format(time.RFC3339)))
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, errors.NewDataError("csv_provider", "load", fmt.Errorf("no usable rows in %s", path))
	}

	p.logger.Debug().Str("path", path).Int("candles", len(candles)).Msg("loaded historical data")
	return candles, nil
}

func (p *CSVProvider) parseRow(record []string) (types.OHLCV, error) {
	m := p.mapping
	if len(record) < m.MinColumns {
		return types.OHLCV{}, fmt.Errorf("expected %d columns, got %d", m.MinColumns, len(record))
	}

	timestamp, err := p.parseTime(record[m.Timestamp])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("bad timestamp %q: %w", record[m.Timestamp], err)
	}

	fields := [5]float64{}
	for i, col := range [5]int{m.Open, m.High, m.Low, m.Close, m.Volume} {
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("bad number %q: %w", record[col], err)
		}
		fields[i] = v
	}
	candle := types.OHLCV{
		Timestamp: timestamp,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}

	if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
		return types.OHLCV{}, fmt.Errorf("non-positive price")
	}
	if candle.High < candle.Open || candle.High < candle.Close || candle.High < candle.Low {
		return types.OHLCV{}, fmt.Errorf("high below open/close/low")
	}
	if candle.Low > candle.Open || candle.Low > candle.Close {
		return types.OHLCV{}, fmt.Errorf("low above open/close")
	}
	return candle, nil
}

// parseTime accepts the configured layout, RFC3339, or Unix seconds and
// milliseconds. Everything is normalized to UTC.
func (p *CSVProvider) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(p.mapping.TimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Millisecond epochs are 13 digits for modern dates
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

// WriteCSV writes candles to path in the default column layout, creating
// parent directories as needed.
func WriteCSV(path string, candles []types.OHLCV) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewDataError("csv_provider", "write", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.NewDataError("csv_provider", "write", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return errors.NewDataError("csv_provider", "write", err)
	}
	for _, candle := range candles {
		row := []string{
			candle.Timestamp.UTC().Format(DefaultColumnMapping.TimeLayout),
			formatFloat(candle.Open),
			formatFloat(candle.High),
			formatFloat(candle.Low),
			formatFloat(candle.Close),
			formatFloat(candle.Volume),
		}
		if err := writer.Write(row); err != nil {
			return errors.NewDataError("csv_provider", "write", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.NewDataError("csv_provider", "write", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FilePath returns the conventional location for one symbol's candles
// under a data directory, for example data/BTCUSDT_1h.csv.
func FilePath(dir, symbol, interval string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}
