package strategies

import (
	"paperTradingBot/internal/domain"
)

// TrendCrossRule trades the fast/slow EMA relationship confirmed by RSI.
type TrendCrossRule struct {
	t Thresholds
}

// NewTrendCross creates the trend_cross rule.
func NewTrendCross(t Thresholds) *TrendCrossRule {
	return &TrendCrossRule{t: t}
}

// Name returns the rule family name.
func (r *TrendCrossRule) Name() string { return TrendCross }

// Buy fires when the fast EMA is above the slow EMA and RSI is below the buy level.
func (r *TrendCrossRule) Buy(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorEMAFast, domain.IndicatorEMASlow, domain.IndicatorRSI)
	if !ok {
		return false
	}
	return v[0] > v[1] && v[2] < r.t.RSIBuyLevel
}

// Sell fires when the fast EMA is below the slow EMA and RSI is above the sell level.
func (r *TrendCrossRule) Sell(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorEMAFast, domain.IndicatorEMASlow, domain.IndicatorRSI)
	if !ok {
		return false
	}
	return v[0] < v[1] && v[2] > r.t.RSISellLevel
}

// TrendFilteredRule follows the EMA cross only on the side of the long trend filter.
type TrendFilteredRule struct{}

// NewTrendFiltered creates the trend_filtered rule.
func NewTrendFiltered() *TrendFilteredRule {
	return &TrendFilteredRule{}
}

// Name returns the rule family name.
func (r *TrendFilteredRule) Name() string { return TrendFiltered }

// Buy fires above the trend filter while the fast EMA leads.
func (r *TrendFilteredRule) Buy(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorTrendFilter, domain.IndicatorEMAFast, domain.IndicatorEMASlow)
	if !ok {
		return false
	}
	return tick.Price > v[0] && v[1] > v[2]
}

// Sell fires below the trend filter while the fast EMA lags.
func (r *TrendFilteredRule) Sell(tick domain.Tick) bool {
	v, ok := values(tick, domain.IndicatorTrendFilter, domain.IndicatorEMAFast, domain.IndicatorEMASlow)
	if !ok {
		return false
	}
	return tick.Price < v[0] && v[1] < v[2]
}
