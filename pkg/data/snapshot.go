package data

import (
	"fmt"
	"sort"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// DefaultLookback is the trailing history window handed to strategies,
// counted in candles and inclusive of the current one.
const DefaultLookback = 100

// SnapshotOptions tunes how per-symbol series are aligned into snapshots.
type SnapshotOptions struct {
	// Lookback caps the price/volume history window per context. Zero
	// applies DefaultLookback.
	Lookback int
	// Headlines optionally attaches a static per-symbol headline feed to
	// every context, for the sentiment strategy.
	Headlines map[string][]string
}

// BuildSnapshots aligns one or more symbols' candle series on the union
// of their timestamps, producing the time-ordered snapshots a backtest
// replays. Each context carries the candle close as the price plus
// trailing history windows; a symbol with no candle at a timestamp is
// absent from that snapshot. Every series must be strictly increasing.
func BuildSnapshots(series map[string][]types.OHLCV, opts SnapshotOptions) ([]types.Snapshot, error) {
	lookback := opts.Lookback
	if lookback == 0 {
		lookback = DefaultLookback
	}
	if lookback < 0 {
		return nil, errors.NewInvalidInputError("snapshot_builder", "build", "lookback must be positive")
	}

	union := make(map[int64]struct{})
	closes := make(map[string][]float64, len(series))
	volumes := make(map[string][]float64, len(series))
	for symbol, candles := range series {
		if err := ValidateSequence(candles); err != nil {
			return nil, errors.NewDataError("snapshot_builder", "build", fmt.Errorf("series %s: %w", symbol, err))
		}

		symbolCloses := make([]float64, len(candles))
		symbolVolumes := make([]float64, len(candles))
		for i, candle := range candles {
			union[candle.Timestamp.UnixNano()] = struct{}{}
			symbolCloses[i] = candle.Close
			symbolVolumes[i] = candle.Volume
		}
		closes[symbol] = symbolCloses
		volumes[symbol] = symbolVolumes
	}
	if len(union) == 0 {
		return nil, errors.NewInvalidInputError("snapshot_builder", "build", "no candles in any series")
	}

	ticks := make([]int64, 0, len(union))
	for tick := range union {
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	cursor := make(map[string]int, len(series))
	snapshots := make([]types.Snapshot, 0, len(ticks))
	for _, tick := range ticks {
		snap := types.Snapshot{
			Prices:   make(map[string]float64),
			Contexts: make(map[string]types.Context),
		}

		for symbol, candles := range series {
			i := cursor[symbol]
			if i >= len(candles) || candles[i].Timestamp.UnixNano() != tick {
				continue
			}
			cursor[symbol] = i + 1

			if snap.Timestamp.IsZero() {
				snap.Timestamp = candles[i].Timestamp.UTC()
			}
			start := i + 1 - lookback
			if start < 0 {
				start = 0
			}
			snap.Prices[symbol] = candles[i].Close
			snap.Contexts[symbol] = types.Context{
				Price:         candles[i].Close,
				Volume:        candles[i].Volume,
				PriceHistory:  closes[symbol][start : i+1],
				VolumeHistory: volumes[symbol][start : i+1],
				Headlines:     opts.Headlines[symbol],
			}
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// ContextFromCandles builds one live decision context from a trailing
// candle window. The newest candle supplies the current price and
// volume; the window is capped at lookback candles.
func ContextFromCandles(candles []types.OHLCV, lookback int, headlines []string) (types.Context, error) {
	if len(candles) == 0 {
		return types.Context{}, errors.NewInvalidInputError("snapshot_builder", "context_from_candles", "no candles")
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	prices := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, candle := range window {
		prices[i] = candle.Close
		volumes[i] = candle.Volume
	}

	last := window[len(window)-1]
	return types.Context{
		Price:         last.Close,
		Volume:        last.Volume,
		PriceHistory:  prices,
		VolumeHistory: volumes,
		Headlines:     headlines,
	}, nil
}
