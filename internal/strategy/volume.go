package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/indicators"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// VolumeStrategy votes from trading volume patterns. Volume spikes alone
// are direction-neutral, so the directional calls come from volume-price
// divergence and the on-balance volume trend.
type VolumeStrategy struct {
	obv *indicators.OBV
}

func NewVolumeStrategy() *VolumeStrategy {
	return &VolumeStrategy{
		obv: indicators.NewOBV(),
	}
}

func (v *VolumeStrategy) Name() string {
	return "volume"
}

type volumeSignal struct {
	action     TradeAction
	confidence float64
	reason     string
}

func (v *VolumeStrategy) GetSignal(symbol string, ctx types.Context) (Opinion, error) {
	currentVolume := ctx.Volume
	currentPrice := ctx.Price
	volumeHistory := ctx.VolumeHistory
	priceHistory := ctx.PriceHistory

	if currentVolume == 0 || currentPrice == 0 {
		return HoldOpinion(v.Name(), 0.0, "No volume data available"), nil
	}

	var signals []volumeSignal

	if len(volumeHistory) >= 20 {
		signals = append(signals, v.spikeSignal(currentVolume, volumeHistory))
	}

	if len(volumeHistory) >= 10 && len(priceHistory) >= 10 {
		sig, err := v.divergenceSignal(currentPrice, priceHistory, volumeHistory)
		if err != nil {
			return Opinion{}, errors.NewStrategyError(v.Name(), "divergence", err)
		}
		signals = append(signals, sig)
	}

	if len(priceHistory) >= 5 && len(volumeHistory) >= 5 {
		sig, err := v.obvSignal(priceHistory, volumeHistory)
		if err != nil {
			return Opinion{}, errors.NewStrategyError(v.Name(), "obv", err)
		}
		signals = append(signals, sig)
	}

	if len(signals) == 0 {
		return HoldOpinion(v.Name(), 0.3, "Insufficient volume history for analysis"), nil
	}

	action, confidence := v.aggregate(signals)

	reasons := make([]string, len(signals))
	for i, sig := range signals {
		reasons[i] = sig.reason
	}

	return Opinion{
		StrategyName: v.Name(),
		Action:       action,
		Confidence:   confidence,
		Reason:       "Volume: " + strings.Join(reasons, " | "),
	}, nil
}

// spikeSignal flags unusual volume against the 20 period average. A
// spike alone says nothing about direction, so it always votes HOLD and
// only its confidence scales with the anomaly.
func (v *VolumeStrategy) spikeSignal(currentVolume float64, history []float64) volumeSignal {
	var sum float64
	for _, vol := range history[len(history)-20:] {
		sum += vol
	}
	avgVolume := sum / 20

	ratio := 1.0
	if avgVolume > 0 {
		ratio = currentVolume / avgVolume
	}

	switch {
	case ratio > 2.0:
		return volumeSignal{ActionHold, 0.7, fmt.Sprintf("Volume spike %.1fx avg", ratio)}
	case ratio > 1.5:
		return volumeSignal{ActionHold, 0.5, fmt.Sprintf("Elevated volume %.1fx avg", ratio)}
	default:
		return volumeSignal{ActionHold, 0.3, "Normal volume"}
	}
}

// divergenceSignal reads the price move over five periods against the
// recent versus prior volume trend. Rising volume confirms the move in
// either direction; falling volume downgrades it to a weak trend.
func (v *VolumeStrategy) divergenceSignal(currentPrice float64, priceHistory, volumeHistory []float64) (volumeSignal, error) {
	reference := priceHistory[len(priceHistory)-5]
	if reference == 0 {
		return volumeSignal{}, fmt.Errorf("zero reference price %d periods back", 5)
	}
	priceChange := (currentPrice - reference) / reference * 100

	var recentSum, olderSum float64
	for _, vol := range volumeHistory[len(volumeHistory)-5:] {
		recentSum += vol
	}
	for _, vol := range volumeHistory[len(volumeHistory)-10 : len(volumeHistory)-5] {
		olderSum += vol
	}
	avgRecent := recentSum / 5
	avgOlder := olderSum / 5

	volumeIncreasing := avgRecent > avgOlder*1.2
	volumeDecreasing := avgRecent < avgOlder*0.8

	priceUp := priceChange > 2
	priceDown := priceChange < -2

	switch {
	case priceUp && volumeIncreasing:
		return volumeSignal{ActionBuy, 0.8, "Price↑ + Volume↑ (strong bullish)"}, nil
	case priceDown && volumeIncreasing:
		return volumeSignal{ActionSell, 0.8, "Price↓ + Volume↑ (strong bearish)"}, nil
	case priceUp && volumeDecreasing:
		return volumeSignal{ActionHold, 0.4, "Price↑ + Volume↓ (weak trend)"}, nil
	case priceDown && volumeDecreasing:
		return volumeSignal{ActionHold, 0.4, "Price↓ + Volume↓ (weak trend)"}, nil
	default:
		return volumeSignal{ActionHold, 0.3, "No clear volume-price pattern"}, nil
	}
}

// obvSignal compares the on-balance volume now against five periods ago.
// A 5% band around the older value filters noise.
func (v *VolumeStrategy) obvSignal(priceHistory, volumeHistory []float64) (volumeSignal, error) {
	series, err := v.obv.Series(priceHistory, volumeHistory)
	if err != nil {
		return volumeSignal{}, err
	}
	if len(series) < 5 {
		return volumeSignal{ActionHold, 0.0, "Insufficient OBV data"}, nil
	}

	recent := series[len(series)-5:]
	start := recent[0]
	end := recent[len(recent)-1]

	switch {
	case end > start*1.05:
		return volumeSignal{ActionBuy, 0.6, "OBV rising (accumulation)"}, nil
	case end < start*0.95:
		return volumeSignal{ActionSell, 0.6, "OBV falling (distribution)"}, nil
	default:
		return volumeSignal{ActionHold, 0.3, "OBV neutral"}, nil
	}
}

func (v *VolumeStrategy) aggregate(signals []volumeSignal) (TradeAction, float64) {
	var buyScore, sellScore, holdScore float64
	for _, sig := range signals {
		switch sig.action {
		case ActionBuy:
			buyScore += sig.confidence
		case ActionSell:
			sellScore += sig.confidence
		default:
			holdScore += sig.confidence
		}
	}

	n := float64(len(signals))
	maxScore := math.Max(math.Max(buyScore, sellScore), holdScore)

	switch {
	case maxScore == buyScore && buyScore > 0:
		return ActionBuy, math.Min(buyScore/n, 1.0)
	case maxScore == sellScore && sellScore > 0:
		return ActionSell, math.Min(sellScore/n, 1.0)
	default:
		return ActionHold, math.Min(holdScore/n, 1.0)
	}
}
