// Package strategies holds the individual entry/exit rule families. Each rule is
// a pure function of one tick and reads only the indicators it needs; a rule
// whose indicators are missing does not fire.
package strategies

import (
	"fmt"
	"sort"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// Rule is one family of entry/exit conditions.
type Rule interface {
	// Buy reports whether the rule asks to enter on this tick.
	Buy(tick domain.Tick) bool

	// Sell reports whether the rule asks to exit on this tick.
	Sell(tick domain.Tick) bool

	// Name returns the name of the rule family.
	Name() string
}

// Thresholds holds the RSI levels and gates shared by the rule families.
type Thresholds struct {
	RSIBuyLevel       float64 // trend_cross buys below this RSI
	RSISellLevel      float64 // trend_cross sells above this RSI
	RSIOversold       float64
	RSIOverbought     float64
	BandRSIMax        float64 // band_breakout buys only below this RSI
	MomentumTrendGate bool    // momentum_cross also requires price on the trend side of trend_filter
}

// DefaultThresholds returns the stock rule levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIBuyLevel:   40,
		RSISellLevel:  60,
		RSIOversold:   30,
		RSIOverbought: 70,
		BandRSIMax:    40,
	}
}

// Rule family names accepted by New.
const (
	TrendCross    = "trend_cross"
	RSIRebound    = "rsi_rebound"
	BandBreakout  = "band_breakout"
	MomentumCross = "momentum_cross"
	TrendFiltered = "trend_filtered"
)

var factories = map[string]func(Thresholds) Rule{
	TrendCross:    func(t Thresholds) Rule { return NewTrendCross(t) },
	RSIRebound:    func(t Thresholds) Rule { return NewRSIRebound(t) },
	BandBreakout:  func(t Thresholds) Rule { return NewBandBreakout(t) },
	MomentumCross: func(t Thresholds) Rule { return NewMomentumCross(t) },
	TrendFiltered: func(Thresholds) Rule { return NewTrendFiltered() },
}

// Names lists every known rule family in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the rule family called name.
func New(name string, t Thresholds) (Rule, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown rule family %q (known: %v): %w", name, Names(), ports.ErrConfigurationError)
	}
	return factory(t), nil
}

// values fetches every named indicator, reporting false if any is missing.
func values(tick domain.Tick, names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := tick.Value(name)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
