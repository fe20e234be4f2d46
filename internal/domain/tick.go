package domain

import "time"

// Indicator names published on a Tick.
const (
	IndicatorEMAFast        = "ema_fast"
	IndicatorEMASlow        = "ema_slow"
	IndicatorRSI            = "rsi"
	IndicatorRSIPrev        = "rsi_prev"
	IndicatorBBUpper        = "bb_upper"
	IndicatorBBMiddle       = "bb_middle"
	IndicatorBBLower        = "bb_lower"
	IndicatorMACD           = "macd"
	IndicatorMACDSignal     = "macd_signal"
	IndicatorMACDHist       = "macd_hist"
	IndicatorMACDPrev       = "macd_prev"
	IndicatorMACDSignalPrev = "macd_signal_prev"
	IndicatorTrendFilter    = "trend_filter"
	IndicatorATR            = "atr"
	IndicatorVWAP           = "vwap"
)

// Tick is one observation handed to the trading pipeline: the current price and
// the indicator values derived for it.
type Tick struct {
	Time       time.Time
	Price      float64
	Indicators map[string]float64
	Neutral    bool // Indicators are the neutral fallback, not computed from candles
}

// NeutralIndicators is the fallback used when candles are unavailable.
func NeutralIndicators() map[string]float64 {
	return map[string]float64{
		IndicatorEMAFast: 0,
		IndicatorEMASlow: 0,
		IndicatorRSI:     50,
		IndicatorRSIPrev: 50,
	}
}

// Value returns the named indicator and whether it is present.
func (t Tick) Value(name string) (float64, bool) {
	if t.Indicators == nil {
		return 0, false
	}
	v, ok := t.Indicators[name]
	return v, ok
}

// Intent is the aggregated output of a signal evaluation.
type Intent struct {
	Buy   bool
	Sell  bool
	Fired []string // Rule families that contributed, for diagnostics only
}
