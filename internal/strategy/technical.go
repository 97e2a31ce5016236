package strategy

import (
	"math"
	"strings"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/indicators"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// TechnicalStrategy votes from price action using moving averages, RSI
// and momentum. Each indicator contributes an independent sub-signal and
// the sub-signals are merged with a whipsaw guard.
type TechnicalStrategy struct {
	sma20    *indicators.SMA
	sma50    *indicators.SMA
	rsi      *indicators.RSI
	momentum *indicators.Momentum
}

func NewTechnicalStrategy() *TechnicalStrategy {
	return &TechnicalStrategy{
		sma20:    indicators.NewSMA(20),
		sma50:    indicators.NewSMA(50),
		rsi:      indicators.NewRSI(14),
		momentum: indicators.NewMomentum(5),
	}
}

func (t *TechnicalStrategy) Name() string {
	return "technical"
}

type subSignal struct {
	action     TradeAction
	confidence float64
}

func (t *TechnicalStrategy) GetSignal(symbol string, ctx types.Context) (Opinion, error) {
	price := ctx.Price
	history := ctx.PriceHistory

	if price == 0 {
		return HoldOpinion(t.Name(), 0.0, "No price data available"), nil
	}

	var signals []subSignal
	var reasons []string

	if len(history) >= 20 {
		sig, err := t.smaSignal(price, history)
		if err != nil {
			return Opinion{}, errors.NewStrategyError(t.Name(), "sma", err)
		}
		signals = append(signals, sig)
		reasons = append(reasons, "SMA: "+sig.action.String())
	}

	if len(history) >= 14 {
		sig, err := t.rsiSignal(history)
		if err != nil {
			return Opinion{}, errors.NewStrategyError(t.Name(), "rsi", err)
		}
		signals = append(signals, sig)
		reasons = append(reasons, "RSI: "+sig.action.String())
	}

	if len(history) >= 5 {
		sig, err := t.momentumSignal(price, history)
		if err != nil {
			return Opinion{}, errors.NewStrategyError(t.Name(), "momentum", err)
		}
		signals = append(signals, sig)
		reasons = append(reasons, "Momentum: "+sig.action.String())
	}

	if len(signals) == 0 {
		return HoldOpinion(t.Name(), 0.3, "Insufficient price history for technical analysis"), nil
	}

	action, confidence := t.aggregate(signals)
	return Opinion{
		StrategyName: t.Name(),
		Action:       action,
		Confidence:   confidence,
		Reason:       "Technical: " + strings.Join(reasons, ", "),
	}, nil
}

// smaSignal compares the price against the 20 and 50 period moving
// averages. With under 50 points the long average falls back to the
// short one, which reduces the check to price vs SMA20.
func (t *TechnicalStrategy) smaSignal(price float64, history []float64) (subSignal, error) {
	sma20, err := t.sma20.Calculate(history)
	if err != nil {
		return subSignal{}, err
	}

	sma50 := sma20
	if len(history) >= 50 {
		sma50, err = t.sma50.Calculate(history)
		if err != nil {
			return subSignal{}, err
		}
	}

	switch {
	case price > sma20 && sma20 > sma50:
		return subSignal{ActionBuy, 0.7}, nil
	case price < sma20 && sma20 < sma50:
		return subSignal{ActionSell, 0.7}, nil
	default:
		return subSignal{ActionHold, 0.3}, nil
	}
}

func (t *TechnicalStrategy) rsiSignal(history []float64) (subSignal, error) {
	rsi, err := t.rsi.Calculate(history)
	if err != nil {
		return subSignal{}, err
	}

	switch {
	case rsi < 30:
		return subSignal{ActionBuy, 0.8}, nil
	case rsi > 70:
		return subSignal{ActionSell, 0.8}, nil
	default:
		return subSignal{ActionHold, 0.4}, nil
	}
}

func (t *TechnicalStrategy) momentumSignal(price float64, history []float64) (subSignal, error) {
	changePct, err := t.momentum.Calculate(price, history)
	if err != nil {
		return subSignal{}, err
	}

	switch {
	case changePct > 3:
		return subSignal{ActionBuy, 0.6}, nil
	case changePct < -3:
		return subSignal{ActionSell, 0.6}, nil
	default:
		return subSignal{ActionHold, 0.4}, nil
	}
}

// aggregate merges sub-signals by summed confidence per action. When BUY
// and SELL scores are within 0.2 of each other the result is forced to
// HOLD so conflicting indicators do not whipsaw the vote.
func (t *TechnicalStrategy) aggregate(signals []subSignal) (TradeAction, float64) {
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

	if math.Abs(buyScore-sellScore) < 0.2 && math.Max(buyScore, sellScore) > 0 {
		confidence := 0.4
		if holdScore > 0 {
			confidence = holdScore / n
		}
		return ActionHold, math.Min(confidence, 1.0)
	}

	maxScore := math.Max(math.Max(buyScore, sellScore), holdScore)
	switch {
	case maxScore == buyScore && buyScore > 0:
		return ActionBuy, math.Min(buyScore/n, 1.0)
	case maxScore == sellScore && sellScore > 0:
		return ActionSell, math.Min(sellScore/n, 1.0)
	default:
		confidence := 0.3
		if holdScore > 0 {
			confidence = holdScore / n
		}
		return ActionHold, math.Min(confidence, 1.0)
	}
}
