package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

func TestVolumeStrategy_NoVolume(t *testing.T) {
	s := NewVolumeStrategy()

	op, err := s.GetSignal("BTCUSDT", types.Context{Price: 100})
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.Equal(t, 0.0, op.Confidence)
	assert.Equal(t, "No volume data available", op.Reason)
}

func TestVolumeStrategy_NoPrice(t *testing.T) {
	s := NewVolumeStrategy()

	op, err := s.GetSignal("BTCUSDT", types.Context{Volume: 500})
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.Equal(t, "No volume data available", op.Reason)
}

func TestVolumeStrategy_InsufficientHistory(t *testing.T) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         100,
		Volume:        500,
		PriceHistory:  flatSeries(3, 100),
		VolumeHistory: flatSeries(3, 500),
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.Equal(t, 0.3, op.Confidence)
	assert.Equal(t, "Insufficient volume history for analysis", op.Reason)
}

func TestVolumeStrategy_VolumeSpike(t *testing.T) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         100,
		Volume:        250,
		VolumeHistory: flatSeries(20, 100),
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	// A spike alone carries no direction
	assert.Equal(t, ActionHold, op.Action)
	assert.InDelta(t, 0.7, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: Volume spike 2.5x avg", op.Reason)
}

func TestVolumeStrategy_ElevatedVolume(t *testing.T) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         100,
		Volume:        160,
		VolumeHistory: flatSeries(20, 100),
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.InDelta(t, 0.5, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: Elevated volume 1.6x avg", op.Reason)
}

func TestVolumeStrategy_NormalVolume(t *testing.T) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         100,
		Volume:        100,
		VolumeHistory: flatSeries(20, 100),
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.InDelta(t, 0.3, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: Normal volume", op.Reason)
}

func TestVolumeStrategy_StrongBullishDivergence(t *testing.T) {
	s := NewVolumeStrategy()
	volumes := make([]float64, 10)
	for i := range volumes {
		volumes[i] = 100
		if i >= 5 {
			volumes[i] = 150
		}
	}
	ctx := types.Context{
		Price:         110,
		Volume:        150,
		PriceHistory:  risingSeries(10, 100),
		VolumeHistory: volumes,
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionBuy, op.Action)
	assert.InDelta(t, 0.7, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: Price↑ + Volume↑ (strong bullish) | OBV rising (accumulation)", op.Reason)
}

func TestVolumeStrategy_StrongBearishDivergence(t *testing.T) {
	s := NewVolumeStrategy()
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 109 - float64(i)
	}
	volumes := make([]float64, 10)
	for i := range volumes {
		volumes[i] = 100
		if i >= 5 {
			volumes[i] = 150
		}
	}
	ctx := types.Context{
		Price:         95,
		Volume:        150,
		PriceHistory:  prices,
		VolumeHistory: volumes,
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionSell, op.Action)
	assert.InDelta(t, 0.7, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: Price↓ + Volume↑ (strong bearish) | OBV falling (distribution)", op.Reason)
}

func TestVolumeStrategy_FlatMarket(t *testing.T) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         100,
		Volume:        100,
		PriceHistory:  flatSeries(10, 100),
		VolumeHistory: flatSeries(10, 100),
	}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.InDelta(t, 0.3, op.Confidence, 1e-9)
	assert.Equal(t, "Volume: No clear volume-price pattern | OBV neutral", op.Reason)
}

func TestVolumeStrategy_Name(t *testing.T) {
	s := NewVolumeStrategy()
	assert.Equal(t, "volume", s.Name())
}

func BenchmarkVolumeStrategy_GetSignal(b *testing.B) {
	s := NewVolumeStrategy()
	ctx := types.Context{
		Price:         110,
		Volume:        150,
		PriceHistory:  risingSeries(200, 100),
		VolumeHistory: flatSeries(200, 100),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.GetSignal("BTCUSDT", ctx)
	}
}
