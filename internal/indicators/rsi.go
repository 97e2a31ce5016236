package indicators

import "errors"

// RSI computes the Relative Strength Index from simple average gains and
// losses over the period (no Wilder smoothing).
type RSI struct {
	period int
}

// NewRSI creates a new RSI calculator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate returns the RSI of the series tail, in [0, 100]. A window
// with no losses reads 100.
func (r *RSI) Calculate(series []float64) (float64, error) {
	if len(series) < r.period {
		return 0, errors.New("insufficient data for RSI calculation")
	}

	// Last r.period changes; one fewer when the series is exactly
	// period long. The divisor stays fixed at the period either way.
	start := len(series) - r.period - 1
	if start < 0 {
		start = 0
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := start + 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// Period returns the window length.
func (r *RSI) Period() int {
	return r.period
}
