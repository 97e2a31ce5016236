package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

type stubClassifier struct {
	verdict Verdict
	err     error
}

func (c *stubClassifier) Classify(symbol string, headlines []string) (Verdict, error) {
	return c.verdict, c.err
}

func TestSentimentStrategy_NoHeadlines(t *testing.T) {
	s := NewSentimentStrategy(nil)

	op, err := s.GetSignal("BTCUSDT", types.Context{})
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.Equal(t, 0.0, op.Confidence)
	assert.Equal(t, "No news headlines available", op.Reason)
}

func TestSentimentStrategy_StrongPositiveKeyword(t *testing.T) {
	s := NewSentimentStrategy(nil)
	ctx := types.Context{Headlines: []string{"Bitcoin price surge continues"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionBuy, op.Action)
	assert.Equal(t, 0.8, op.Confidence)
	assert.Equal(t, "Sentiment: Keyword match (positive): Bitcoin price surge continues", op.Reason)
}

func TestSentimentStrategy_WeakPositiveKeyword(t *testing.T) {
	s := NewSentimentStrategy(nil)
	ctx := types.Context{Headlines: []string{"Payments provider announces crypto partnership"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	// partnership matches but carries no strong language
	assert.Equal(t, ActionBuy, op.Action)
	assert.Equal(t, 0.6, op.Confidence)
}

func TestSentimentStrategy_StrongNegativeKeyword(t *testing.T) {
	s := NewSentimentStrategy(nil)
	ctx := types.Context{Headlines: []string{"Markets plunge on liquidation cascade"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionSell, op.Action)
	assert.Equal(t, 0.8, op.Confidence)
}

func TestSentimentStrategy_WeakNegativeKeyword(t *testing.T) {
	s := NewSentimentStrategy(nil)
	ctx := types.Context{Headlines: []string{"Exchange hack raises concerns"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionSell, op.Action)
	assert.Equal(t, 0.6, op.Confidence)
}

func TestSentimentStrategy_NeutralHeadlines(t *testing.T) {
	s := NewSentimentStrategy(nil)
	ctx := types.Context{Headlines: []string{"Quarterly network report published"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionHold, op.Action)
	assert.Equal(t, 0.3, op.Confidence)
	assert.Equal(t, "Sentiment: No keyword match in headlines", op.Reason)
}

func TestSentimentStrategy_CustomClassifierVerdict(t *testing.T) {
	classifier := &stubClassifier{
		verdict: Verdict{Action: ActionBuy, Reason: "Strong bullish sentiment across sources"},
	}
	s := NewSentimentStrategy(classifier)
	ctx := types.Context{Headlines: []string{"anything"}}

	op, err := s.GetSignal("BTCUSDT", ctx)
	require.NoError(t, err)

	assert.Equal(t, ActionBuy, op.Action)
	assert.Equal(t, 0.8, op.Confidence) // "bullish" in the reason text
	assert.Equal(t, "Sentiment: Strong bullish sentiment across sources", op.Reason)
}

func TestSentimentStrategy_ClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: fmt.Errorf("upstream timeout")}
	s := NewSentimentStrategy(classifier)
	ctx := types.Context{Headlines: []string{"anything"}}

	_, err := s.GetSignal("BTCUSDT", ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryStrategy))
}

func TestSentimentStrategy_Name(t *testing.T) {
	s := NewSentimentStrategy(nil)
	assert.Equal(t, "sentiment", s.Name())
}
