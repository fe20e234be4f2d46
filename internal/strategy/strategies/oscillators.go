package strategies

import (
	"paperTradingBot/internal/domain"
)

// RSIReboundRule buys an oversold RSI that turns up and sells an overbought RSI that turns down.
type RSIReboundRule struct {
	t Thresholds
}

// NewRSIRebound creates the rsi_rebound rule.
func NewRSIRebound(t Thresholds) *RSIReboundRule {
	return &RSIReboundRule{t: t}
}

// Name returns the rule family name.
func (r *RSIReboundRule) Name() string { return RSIRebound }

// Buy implements Rule.
func (r *RSIReboundRule) Buy(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorRSI, domain.IndicatorRSIPrev)
	if !ok {
		return false
	}
	return v[0] < r.t.RSIOversold && v[0] > v[1]
}

// Sell implements Rule.
func (r *RSIReboundRule) Sell(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorRSI, domain.IndicatorRSIPrev)
	if !ok {
		return false
	}
	return v[0] > r.t.RSIOverbought && v[0] < v[1]
}

// BandBreakoutRule buys below the lower Bollinger band on weak RSI and sells above the upper band.
type BandBreakoutRule struct {
	t Thresholds
}

// NewBandBreakout creates the band_breakout rule.
func NewBandBreakout(t Thresholds) *BandBreakoutRule {
	return &BandBreakoutRule{t: t}
}

// Name returns the rule family name.
func (r *BandBreakoutRule) Name() string { return BandBreakout }

// Buy implements Rule.
func (r *BandBreakoutRule) Buy(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorBBLower, domain.IndicatorRSI)
	if !ok {
		return false
	}
	return tick.Price < v[0] && v[1] < r.t.BandRSIMax
}

// Sell implements Rule.
func (r *BandBreakoutRule) Sell(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorBBUpper)
	if !ok {
		return false
	}
	return tick.Price > v[0]
}

// MomentumCrossRule trades MACD crossing its signal line on the matching side of zero.
type MomentumCrossRule struct {
	t Thresholds
}

// NewMomentumCross creates the momentum_cross rule.
func NewMomentumCross(t Thresholds) *MomentumCrossRule {
	return &MomentumCrossRule{t: t}
}

// Name returns the rule family name.
func (r *MomentumCrossRule) Name() string { return MomentumCross }

// Buy implements Rule.
func (r *MomentumCrossRule) Buy(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorMACD, domain.IndicatorMACDSignal)
	if !ok || !(v[0] > v[1] && v[0] > 0) {
		return false
	}
	if !r.t.MomentumTrendGate {
		return true
	}
	filter, ok := tick.Value(domain.IndicatorTrendFilter)
	return ok && tick.Price > filter
}

// Sell implements Rule.
func (r *MomentumCrossRule) Sell(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorMACD, domain.IndicatorMACDSignal)
	if !ok || !(v[0] < v[1] && v[0] < 0) {
		return false
	}
	if !r.t.MomentumTrendGate {
		return true
	}
	filter, ok := tick.Value(domain.IndicatorTrendFilter)
	return ok && tick.Price < filter
}
