package indicators

import "errors"

// OBV computes the On-Balance Volume series, the running volume total
// that adds volume on up-closes and subtracts it on down-closes.
type OBV struct{}

// NewOBV creates a new OBV calculator.
func NewOBV() *OBV {
	return &OBV{}
}

// Series returns the cumulative OBV values aligned to the inputs,
// starting at zero. Price and volume series are truncated to the shorter
// of the two.
//
// Formula:
//   - price[i] > price[i-1]: OBV[i] = OBV[i-1] + volume[i]
//   - price[i] < price[i-1]: OBV[i] = OBV[i-1] - volume[i]
//   - otherwise:             OBV[i] = OBV[i-1]
func (o *OBV) Series(prices, volumes []float64) ([]float64, error) {
	n := len(prices)
	if len(volumes) < n {
		n = len(volumes)
	}
	if n < 2 {
		return nil, errors.New("insufficient data points for OBV calculation")
	}

	series := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case prices[i] > prices[i-1]:
			series[i] = series[i-1] + volumes[i]
		case prices[i] < prices[i-1]:
			series[i] = series[i-1] - volumes[i]
		default:
			series[i] = series[i-1]
		}
	}
	return series, nil
}
