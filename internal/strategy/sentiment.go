package strategy

import (
	"strings"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// Keyword tiers that promote a classifier verdict to high confidence.
var strongPositive = []string{"surge", "soar", "record high", "bullish", "rally"}
var strongNegative = []string{"plunge", "collapse", "crash", "bearish", "ban"}

// SentimentStrategy votes from news headlines via a pluggable classifier.
type SentimentStrategy struct {
	classifier Classifier
}

// NewSentimentStrategy creates a sentiment strategy. A nil classifier
// falls back to the deterministic keyword classifier.
func NewSentimentStrategy(classifier Classifier) *SentimentStrategy {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &SentimentStrategy{classifier: classifier}
}

func (s *SentimentStrategy) Name() string {
	return "sentiment"
}

func (s *SentimentStrategy) GetSignal(symbol string, ctx types.Context) (Opinion, error) {
	if len(ctx.Headlines) == 0 {
		return HoldOpinion(s.Name(), 0.0, "No news headlines available"), nil
	}

	verdict, err := s.classifier.Classify(symbol, ctx.Headlines)
	if err != nil {
		return Opinion{}, errors.NewStrategyError(s.Name(), "classify", err)
	}

	return Opinion{
		StrategyName: s.Name(),
		Action:       verdict.Action,
		Confidence:   verdictConfidence(verdict),
		Reason:       "Sentiment: " + verdict.Reason,
	}, nil
}

// verdictConfidence scores a verdict by the strength of the language
// that produced it.
func verdictConfidence(v Verdict) float64 {
	reason := strings.ToLower(v.Reason)

	switch v.Action {
	case ActionBuy:
		if containsAny(reason, strongPositive) {
			return 0.8
		}
		return 0.6
	case ActionSell:
		if containsAny(reason, strongNegative) {
			return 0.8
		}
		return 0.6
	default:
		return 0.3
	}
}
