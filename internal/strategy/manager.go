package strategy

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/monitoring"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// AggregationMethod selects how strategy opinions merge into one decision.
type AggregationMethod string

const (
	// Weighted sum of confidence per action, highest score wins
	MethodWeightedVote AggregationMethod = "weighted_vote"
	// Single opinion with the highest confidence times weight wins
	MethodHighestConfidence AggregationMethod = "highest_confidence"
	// BUY/SELL only when every strategy agrees
	MethodUnanimous AggregationMethod = "unanimous"
)

// ParseAggregationMethod validates a method name from configuration.
// An empty string selects weighted voting.
func ParseAggregationMethod(s string) (AggregationMethod, error) {
	switch AggregationMethod(s) {
	case "":
		return MethodWeightedVote, nil
	case MethodWeightedVote, MethodHighestConfidence, MethodUnanimous:
		return AggregationMethod(s), nil
	default:
		return "", errors.NewConfigError("strategy_manager", "parse_aggregation_method",
			fmt.Sprintf("unknown aggregation method %q", s))
	}
}

type entry struct {
	strategy Strategy
	weight   float64
	enabled  bool
}

// Manager holds the active strategy set and resolves their opinions into
// one aggregate decision per symbol per cycle.
type Manager struct {
	mu            sync.RWMutex
	entries       []*entry
	byName        map[string]*entry
	method        AggregationMethod
	minConfidence float64
	logger        zerolog.Logger
}

// NewManager creates an empty manager using weighted voting and no
// minimum confidence gate.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		byName: make(map[string]*entry),
		method: MethodWeightedVote,
		logger: log.With().Str("component", "strategy_manager").Logger(),
	}
}

// Register adds a strategy with the given weight. Strategies start
// enabled. Names must be unique and weights non-negative.
func (m *Manager) Register(s Strategy, weight float64) error {
	if s == nil {
		return errors.NewConfigError("strategy_manager", "register", "nil strategy")
	}
	name := s.Name()
	if name == "" {
		return errors.NewConfigError("strategy_manager", "register", "strategy name must not be empty")
	}
	if weight < 0 {
		return errors.NewConfigError("strategy_manager", "register", "weight must be non-negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[name]; exists {
		return errors.NewConfigError("strategy_manager", "register",
			fmt.Sprintf("strategy %q already registered", name))
	}

	e := &entry{strategy: s, weight: weight, enabled: true}
	m.entries = append(m.entries, e)
	m.byName[name] = e

	m.logger.Info().Str("strategy", name).Float64("weight", weight).Msg("Strategy registered")
	return nil
}

// Enable re-activates a registered strategy.
func (m *Manager) Enable(name string) error {
	return m.setEnabled(name, true)
}

// Disable excludes a strategy from aggregation without removing it.
func (m *Manager) Disable(name string) error {
	return m.setEnabled(name, false)
}

func (m *Manager) setEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byName[name]
	if !ok {
		return errors.NewConfigError("strategy_manager", "set_enabled",
			fmt.Sprintf("unknown strategy %q", name))
	}
	e.enabled = enabled

	m.logger.Info().Str("strategy", name).Bool("enabled", enabled).Msg("Strategy toggled")
	return nil
}

// SetWeight updates a registered strategy's voting weight.
func (m *Manager) SetWeight(name string, weight float64) error {
	if weight < 0 {
		return errors.NewConfigError("strategy_manager", "set_weight", "weight must be non-negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byName[name]
	if !ok {
		return errors.NewConfigError("strategy_manager", "set_weight",
			fmt.Sprintf("unknown strategy %q", name))
	}
	e.weight = weight
	return nil
}

// SetAggregationMethod switches the aggregation policy.
func (m *Manager) SetAggregationMethod(method AggregationMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.method = method
}

// SetMinConfidence sets the threshold below which aggregate decisions
// are demoted to HOLD.
func (m *Manager) SetMinConfidence(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return errors.NewConfigError("strategy_manager", "set_min_confidence",
			"min confidence must be within [0, 1]")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minConfidence = threshold
	return nil
}

// StrategyStatus describes one registered strategy.
type StrategyStatus struct {
	Name    string  `json:"name"`
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

// Summary lists registered strategies in registration order.
func (m *Manager) Summary() []StrategyStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]StrategyStatus, len(m.entries))
	for i, e := range m.entries {
		statuses[i] = StrategyStatus{Name: e.strategy.Name(), Enabled: e.enabled, Weight: e.weight}
	}
	return statuses
}

// Method returns the active aggregation method.
func (m *Manager) Method() AggregationMethod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.method
}

// MinConfidence returns the active confidence gate.
func (m *Manager) MinConfidence() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minConfidence
}

type vote struct {
	opinion Opinion
	weight  float64
}

// Decide collects an opinion from every enabled strategy with positive
// weight and aggregates them. A strategy fault never aborts the cycle:
// the faulty strategy contributes a degraded zero-confidence HOLD that
// is visible in the decision but excluded from voting. Decide always
// returns a decision, defaulting to HOLD when nothing usable voted.
func (m *Manager) Decide(symbol string, ctx types.Context) AggregateDecision {
	m.mu.RLock()
	candidates := make([]*entry, 0, len(m.entries))
	registered := len(m.entries)
	for _, e := range m.entries {
		if e.enabled && e.weight > 0 {
			candidates = append(candidates, e)
		}
	}
	method := m.method
	minConfidence := m.minConfidence
	m.mu.RUnlock()

	if registered == 0 {
		return m.finish(symbol, AggregateDecision{
			Action:    ActionHold,
			Rationale: "No strategies available",
		})
	}

	opinions := make([]Opinion, 0, len(candidates))
	votes := make([]vote, 0, len(candidates))

	for _, e := range candidates {
		name := e.strategy.Name()
		op, err := m.safeSignal(e.strategy, symbol, ctx)
		if err != nil {
			m.logger.Error().Err(err).
				Str("strategy", name).
				Str("symbol", symbol).
				Msg("Strategy signal failed")
			monitoring.RecordStrategyError(name)
			opinions = append(opinions, Opinion{
				StrategyName: name,
				Action:       ActionHold,
				Confidence:   0.0,
				Reason:       fmt.Sprintf("%s error: %v", name, err),
			})
			continue
		}

		m.logger.Debug().
			Str("strategy", name).
			Str("symbol", symbol).
			Str("action", op.Action.String()).
			Float64("confidence", op.Confidence).
			Str("reason", op.Reason).
			Msg("Strategy opinion")
		monitoring.RecordOpinion(name, op.Action.String(), op.Confidence)

		opinions = append(opinions, op)
		votes = append(votes, vote{opinion: op, weight: e.weight})
	}

	if len(votes) == 0 {
		return m.finish(symbol, AggregateDecision{
			Action:               ActionHold,
			ContributingOpinions: opinions,
			Rationale:            "No strategies produced signals",
		})
	}

	var action TradeAction
	var confidence float64
	var rationale string

	switch method {
	case MethodHighestConfidence:
		action, confidence, rationale = highestConfidence(votes)
	case MethodUnanimous:
		action, confidence, rationale = unanimous(votes)
	default:
		action, confidence, rationale = weightedVote(votes)
	}

	if action != ActionHold && confidence < minConfidence {
		m.logger.Info().
			Str("symbol", symbol).
			Float64("confidence", confidence).
			Float64("threshold", minConfidence).
			Msg("Confidence below threshold, converting to HOLD")
		action = ActionHold
		rationale = "Low confidence: " + rationale
	}

	return m.finish(symbol, AggregateDecision{
		Action:               action,
		Confidence:           confidence,
		ContributingOpinions: opinions,
		Rationale:            rationale,
	})
}

// safeSignal shields the cycle from a panicking strategy.
func (m *Manager) safeSignal(s Strategy, symbol string, ctx types.Context) (op Opinion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.CategoryStrategy, s.Name(), "get_signal", "panic: %v", r)
		}
	}()
	return s.GetSignal(symbol, ctx)
}

func (m *Manager) finish(symbol string, decision AggregateDecision) AggregateDecision {
	m.logger.Info().
		Str("symbol", symbol).
		Str("action", decision.Action.String()).
		Float64("confidence", decision.Confidence).
		Str("rationale", decision.Rationale).
		Msg("Decision aggregated")
	monitoring.RecordDecision(symbol, decision.Action.String())
	return decision
}

// weightedVote scores each action by the weighted sum of confidences
// voting for it. Ties, including the all-zero tie, resolve to HOLD.
// Confidence is the winning score normalized by the total weight of all
// voters, clamped to [0, 1].
func weightedVote(votes []vote) (TradeAction, float64, string) {
	var buyScore, sellScore, holdScore, totalWeight float64
	reasonsByAction := make(map[TradeAction][]string)

	for _, v := range votes {
		score := v.opinion.Confidence * v.weight
		switch v.opinion.Action {
		case ActionBuy:
			buyScore += score
		case ActionSell:
			sellScore += score
		default:
			holdScore += score
		}
		totalWeight += v.weight
		reasonsByAction[v.opinion.Action] = append(reasonsByAction[v.opinion.Action],
			fmt.Sprintf("%s: %s", v.opinion.StrategyName, v.opinion.Reason))
	}

	action := ActionHold
	winningScore := holdScore
	if buyScore > sellScore && buyScore > holdScore {
		action = ActionBuy
		winningScore = buyScore
	} else if sellScore > buyScore && sellScore > holdScore {
		action = ActionSell
		winningScore = sellScore
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = math.Min(winningScore/totalWeight, 1.0)
	}

	voters := reasonsByAction[action]
	if len(voters) == 0 {
		return action, confidence, "No consensus among strategies"
	}

	rationale := fmt.Sprintf("%s signal from %d strategies: %s",
		action, len(voters), strings.Join(voters[:min(len(voters), 2)], "; "))
	return action, confidence, rationale
}

// highestConfidence returns the single opinion with the largest
// confidence times weight. Earlier registration wins exact ties.
func highestConfidence(votes []vote) (TradeAction, float64, string) {
	best := votes[0]
	bestScore := best.opinion.Confidence * best.weight
	for _, v := range votes[1:] {
		score := v.opinion.Confidence * v.weight
		if score > bestScore {
			best = v
			bestScore = score
		}
	}

	rationale := fmt.Sprintf("Highest confidence from %s: %s",
		best.opinion.StrategyName, best.opinion.Reason)
	return best.opinion.Action, best.opinion.Confidence, rationale
}

// unanimous returns the shared action with the unweighted mean
// confidence when every voter agrees, otherwise HOLD.
func unanimous(votes []vote) (TradeAction, float64, string) {
	first := votes[0].opinion.Action
	agree := true
	for _, v := range votes[1:] {
		if v.opinion.Action != first {
			agree = false
			break
		}
	}

	if agree {
		var sum float64
		reasons := make([]string, len(votes))
		for i, v := range votes {
			sum += v.opinion.Confidence
			reasons[i] = fmt.Sprintf("%s: %s", v.opinion.StrategyName, v.opinion.Reason)
		}
		avg := sum / float64(len(votes))
		rationale := "All strategies agree: " + strings.Join(reasons[:min(len(reasons), 2)], "; ")
		return first, avg, rationale
	}

	actions := make([]string, len(votes))
	for i, v := range votes {
		actions[i] = v.opinion.Action.String()
	}
	return ActionHold, 0.3, "Strategies disagree: " + strings.Join(actions, ", ")
}
