package indicators

import "errors"

// SMA computes a simple moving average over the tail of a series. It is
// used both for price averages and for relative-volume baselines.
type SMA struct {
	period int
}

// NewSMA creates a new SMA calculator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the average of the last period values.
func (s *SMA) Calculate(series []float64) (float64, error) {
	if len(series) < s.period {
		return 0, errors.New("insufficient data for SMA calculation")
	}

	sum := 0.0
	for i := len(series) - s.period; i < len(series); i++ {
		sum += series[i]
	}
	return sum / float64(s.period), nil
}

// Period returns the window length.
func (s *SMA) Period() int {
	return s.period
}
