package indicators

import (
	"paperTradingBot/internal/domain"
)

// VWAP is the volume weighted average of the typical price (high+low+close)/3.
// It falls back to the mean close when the window carries no volume.
func VWAP(klines []*domain.Kline) (float64, error) {
	if len(klines) == 0 {
		return 0, notEnough("VWAP", 0, 1)
	}

	var pv, vol, closes float64
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		pv += typical * k.Volume
		vol += k.Volume
		closes += k.Close
	}
	if vol == 0 {
		return closes / float64(len(klines)), nil
	}
	return pv / vol, nil
}
