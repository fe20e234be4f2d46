package indicators

import (
	"context"

	"paperTradingBot/internal/domain"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
}

// RSI implements the Relative Strength Index indicator
type RSI struct {
	BaseIndicator
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) *RSI {
	return &RSI{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (r *RSI) Name() string {
	return "RSI"
}

// RequiredDataPoints is one more than the period since RSI works on price changes.
func (r *RSI) RequiredDataPoints() int {
	return r.Config.Period + 1
}

// Calculate computes the RSI value using Wilder's smoothing method
func (r *RSI) Calculate(_ context.Context, klines []*domain.Kline) (float64, error) {
	series, err := RSISeries(Closes(klines), r.Config.Period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// Readings returns the current RSI and, when one more close is available, the
// reading before it. hasPrev is false when only the current reading exists.
func (r *RSI) Readings(_ context.Context, klines []*domain.Kline) (current, prev float64, hasPrev bool, err error) {
	series, err := RSISeries(Closes(klines), r.Config.Period)
	if err != nil {
		return 0, 0, false, err
	}
	current = series[len(series)-1]
	if len(series) > 1 {
		return current, series[len(series)-2], true, nil
	}
	return current, 0, false, nil
}

// RSISeries returns Wilder's RSI for every close from index period onwards.
// The last two elements are the current and previous readings.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 || len(closes) <= period {
		return nil, notEnough("RSI", len(closes), period+1)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // flat market
		}
		return 100
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	switch {
	case rsi > 100:
		return 100
	case rsi < 0:
		return 0
	}
	return rsi
}
