package indicators

import (
	"math"
)

// Bands is a Bollinger band reading.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns bands of width stdDev population standard deviations
// around the SMA of the last period closes.
func Bollinger(closes []float64, period int, stdDev float64) (Bands, error) {
	middle, err := SMA(closes, period)
	if err != nil {
		return Bands{}, notEnough("Bollinger bands", len(closes), period)
	}

	variance := 0.0
	for _, c := range closes[len(closes)-period:] {
		diff := c - middle
		variance += diff * diff
	}
	sd := math.Sqrt(variance / float64(period))

	return Bands{
		Upper:  middle + stdDev*sd,
		Middle: middle,
		Lower:  middle - stdDev*sd,
	}, nil
}
