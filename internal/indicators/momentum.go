package indicators

import "errors"

// Momentum measures the percentage price change against a fixed lookback.
type Momentum struct {
	lookback int
}

// NewMomentum creates a new momentum calculator.
func NewMomentum(lookback int) *Momentum {
	return &Momentum{lookback: lookback}
}

// Calculate returns the percent change of current against the value
// lookback periods ago.
func (m *Momentum) Calculate(current float64, series []float64) (float64, error) {
	if len(series) < m.lookback {
		return 0, errors.New("insufficient data for momentum calculation")
	}

	past := series[len(series)-m.lookback]
	if past == 0 {
		return 0, errors.New("momentum reference value is zero")
	}

	return (current - past) / past * 100, nil
}

// Lookback returns the comparison distance in periods.
func (m *Momentum) Lookback() int {
	return m.lookback
}
