package indicators

import (
	"context"
	"fmt"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA over close prices
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

// Calculate computes the moving average value based on the configured type
func (m *MovingAverage) Calculate(_ context.Context, klines []*domain.Kline) (float64, error) {
	closes := Closes(klines)
	switch m.config.Type {
	case SimpleMovingAverage:
		return SMA(closes, m.Config.Period)
	case ExponentialMovingAverage:
		return EMA(closes, m.Config.Period)
	default:
		return 0, fmt.Errorf("unsupported moving average type %q: %w", m.config.Type, ports.ErrInvalidRequest)
	}
}

// SMA is the arithmetic mean of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, notEnough("SMA", len(values), period)
	}
	total := 0.0
	for _, v := range values[len(values)-period:] {
		total += v
	}
	return total / float64(period), nil
}

// EMA returns the last value of EMASeries.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// EMASeries returns the exponential moving average for every value from index
// period-1 onwards. It is seeded with the SMA of the first period values.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, notEnough("EMA", len(values), period)
	}

	multiplier := 2.0 / float64(period+1)
	seed, _ := SMA(values[:period], period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out, nil
}
