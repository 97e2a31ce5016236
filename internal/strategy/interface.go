package strategy

import (
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (a TradeAction) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opinion is a single strategy's vote on one symbol at one point in time.
type Opinion struct {
	StrategyName string      `json:"strategy_name"`
	Action       TradeAction `json:"action"`
	Confidence   float64     `json:"confidence"`
	Reason       string      `json:"reason"`
}

// AggregateDecision is the combined verdict across all enabled strategies.
type AggregateDecision struct {
	Action               TradeAction `json:"action"`
	Confidence           float64     `json:"confidence"`
	ContributingOpinions []Opinion   `json:"contributing_opinions"`
	Rationale            string      `json:"rationale"`
}

// Strategy produces an opinion for a symbol from a market context.
// Implementations must never mutate the context.
type Strategy interface {
	// Name returns the strategy identifier
	Name() string

	// GetSignal computes the strategy's opinion for one symbol
	GetSignal(symbol string, ctx types.Context) (Opinion, error)
}

// HoldOpinion builds a neutral opinion with the given confidence and reason.
func HoldOpinion(name string, confidence float64, reason string) Opinion {
	return Opinion{
		StrategyName: name,
		Action:       ActionHold,
		Confidence:   confidence,
		Reason:       reason,
	}
}
