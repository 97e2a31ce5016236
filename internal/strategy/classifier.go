package strategy

import (
	"strings"
)

// Verdict is a classifier's directional read of a batch of headlines.
type Verdict struct {
	Action TradeAction
	Reason string
}

// Classifier turns news headlines into a trading verdict. Implementations
// may be remote and slow; callers treat them as fallible.
type Classifier interface {
	Classify(symbol string, headlines []string) (Verdict, error)
}

var positiveKeywords = []string{
	"surge", "soar", "record high", "all-time high",
	"bullish", "rally", "partnership", "adoption", "gain",
}

var negativeKeywords = []string{
	"plunge", "collapse", "lawsuit", "ban",
	"hack", "bearish", "drop", "loss", "decline",
}

// KeywordClassifier matches headline text against fixed keyword lists.
// Deterministic and offline, so backtests stay reproducible. Negative
// hits outrank positive hits across the batch.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(symbol string, headlines []string) (Verdict, error) {
	hits := make([]Verdict, 0, len(headlines))
	for _, headline := range headlines {
		text := strings.ToLower(headline)
		if containsAny(text, positiveKeywords) {
			hits = append(hits, Verdict{Action: ActionBuy, Reason: "Keyword match (positive): " + headline})
			continue
		}
		if containsAny(text, negativeKeywords) {
			hits = append(hits, Verdict{Action: ActionSell, Reason: "Keyword match (negative): " + headline})
		}
	}

	for _, hit := range hits {
		if hit.Action == ActionSell {
			return hit, nil
		}
	}
	for _, hit := range hits {
		if hit.Action == ActionBuy {
			return hit, nil
		}
	}

	return Verdict{Action: ActionHold, Reason: "No keyword match in headlines"}, nil
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
