package indicators

import (
	"context"
	"fmt"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// SetConfig lists the periods of every indicator published on a tick.
// A zero period disables that indicator.
type SetConfig struct {
	EMAFast           int
	EMASlow           int
	RSIPeriod         int
	BBPeriod          int
	BBStdDev          float64
	MACDFast          int
	MACDSlow          int
	MACDSignal        int
	TrendFilterPeriod int
	ATRPeriod         int
}

// DefaultSetConfig matches the default bot settings.
func DefaultSetConfig() SetConfig {
	return SetConfig{
		EMAFast:           7,
		EMASlow:           21,
		RSIPeriod:         9,
		BBPeriod:          20,
		BBStdDev:          2,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		TrendFilterPeriod: 200,
		ATRPeriod:         14,
	}
}

// Validate checks the periods for consistency.
func (c SetConfig) Validate() error {
	if c.EMAFast < 0 || c.EMASlow < 0 || c.RSIPeriod < 0 || c.BBPeriod < 0 ||
		c.MACDFast < 0 || c.MACDSlow < 0 || c.MACDSignal < 0 || c.TrendFilterPeriod < 0 || c.ATRPeriod < 0 {
		return fmt.Errorf("indicator periods cannot be negative: %w", ports.ErrConfigurationError)
	}
	if c.EMAFast > 0 && c.EMASlow > 0 && c.EMAFast >= c.EMASlow {
		return fmt.Errorf("fast EMA period (%d) must be less than slow EMA period (%d): %w", c.EMAFast, c.EMASlow, ports.ErrConfigurationError)
	}
	if c.MACDSlow > 0 && c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("MACD fast period (%d) must be less than slow period (%d): %w", c.MACDFast, c.MACDSlow, ports.ErrConfigurationError)
	}
	if c.BBPeriod > 0 && c.BBStdDev <= 0 {
		return fmt.Errorf("bollinger band width must be positive: %w", ports.ErrConfigurationError)
	}
	return nil
}

// Lookback is the number of klines needed for every enabled indicator to be present.
func (c SetConfig) Lookback() int {
	need := 0
	for _, n := range c.scalars() {
		need = max(need, n.ind.RequiredDataPoints())
	}
	if c.RSIPeriod > 0 {
		// One extra close for the previous reading.
		need = max(need, NewRSI(RSIConfig{IndicatorConfig{Period: c.RSIPeriod}}).RequiredDataPoints()+1)
	}
	return max(need, c.BBPeriod, c.MACDSlow+c.MACDSignal)
}

type namedIndicator struct {
	key string
	ind Indicator
}

// scalars lists the enabled indicators that publish a single value.
func (c SetConfig) scalars() []namedIndicator {
	var out []namedIndicator
	ma := func(key string, period int, typ MovingAverageType) {
		if period > 0 {
			out = append(out, namedIndicator{key, NewMovingAverage(MovingAverageConfig{IndicatorConfig{Period: period}, typ})})
		}
	}
	ma(domain.IndicatorEMAFast, c.EMAFast, ExponentialMovingAverage)
	ma(domain.IndicatorEMASlow, c.EMASlow, ExponentialMovingAverage)
	ma(domain.IndicatorTrendFilter, c.TrendFilterPeriod, SimpleMovingAverage)
	if c.ATRPeriod > 0 {
		out = append(out, namedIndicator{domain.IndicatorATR, NewATR(ATRConfig{IndicatorConfig{Period: c.ATRPeriod}})})
	}
	return out
}

// Compute evaluates every enabled indicator over klines and returns them keyed by
// the tick indicator names. Indicators without enough history are left out so
// the rules that depend on them stay silent. macd_hist, macd_prev,
// macd_signal_prev, atr and vwap are read by no rule and only appear in the
// signal debug log.
func Compute(klines []*domain.Kline, cfg SetConfig) map[string]float64 {
	ctx := context.Background()
	out := make(map[string]float64)

	for _, n := range cfg.scalars() {
		if len(klines) < n.ind.RequiredDataPoints() {
			continue
		}
		if v, err := n.ind.Calculate(ctx, klines); err == nil {
			out[n.key] = v
		}
	}
	if cfg.RSIPeriod > 0 {
		if cur, prev, hasPrev, err := NewRSI(RSIConfig{IndicatorConfig{Period: cfg.RSIPeriod}}).Readings(ctx, klines); err == nil {
			out[domain.IndicatorRSI] = cur
			if hasPrev {
				out[domain.IndicatorRSIPrev] = prev
			}
		}
	}

	closes := Closes(klines)
	if cfg.BBPeriod > 0 {
		if b, err := Bollinger(closes, cfg.BBPeriod, cfg.BBStdDev); err == nil {
			out[domain.IndicatorBBUpper] = b.Upper
			out[domain.IndicatorBBMiddle] = b.Middle
			out[domain.IndicatorBBLower] = b.Lower
		}
	}
	if cfg.MACDSlow > 0 {
		if m, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal); err == nil {
			out[domain.IndicatorMACD] = m.MACD
			out[domain.IndicatorMACDSignal] = m.Signal
			out[domain.IndicatorMACDHist] = m.Histogram
			out[domain.IndicatorMACDPrev] = m.PrevMACD
			out[domain.IndicatorMACDSignalPrev] = m.PrevSignal
		}
	}
	if v, err := VWAP(klines); err == nil {
		out[domain.IndicatorVWAP] = v
	}
	return out
}
