package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// RiskConfig holds the immutable risk parameters of a run.
// Percentages are expressed in percent units (-0.8 means -0.8%).
type RiskConfig struct {
	RiskFractionPerTrade float64       // Fraction of free cash committed per entry (e.g. 0.10)
	StopLossPct          float64       // Negative, e.g. -0.8
	TakeProfitPct        float64       // Positive, e.g. 1.5
	FeeRate              float64       // e.g. 0.001
	Cooldown             time.Duration // Minimum time between two applied trades
	MaxHold              time.Duration // Zero disables the time exit
}

// Validate checks the configuration for internal consistency.
func (c RiskConfig) Validate() error {
	if c.RiskFractionPerTrade <= 0 || c.RiskFractionPerTrade > 1 {
		return fmt.Errorf("risk fraction %v must be in (0, 1]: %w", c.RiskFractionPerTrade, ports.ErrConfigurationError)
	}
	if c.StopLossPct >= 0 {
		return fmt.Errorf("stop loss %v%% must be negative: %w", c.StopLossPct, ports.ErrConfigurationError)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("take profit %v%% must be positive: %w", c.TakeProfitPct, ports.ErrConfigurationError)
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("fee rate %v must be in [0, 1): %w", c.FeeRate, ports.ErrConfigurationError)
	}
	if c.Cooldown < 0 || c.MaxHold < 0 {
		return fmt.Errorf("cooldown and max hold cannot be negative: %w", ports.ErrConfigurationError)
	}
	return nil
}

// RiskManager decides forced exits for the open position.
type RiskManager struct {
	config     RiskConfig
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
}

// NewRiskManager creates a new risk manager instance.
func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config:     config,
		stopLoss:   decimal.NewFromFloat(config.StopLossPct),
		takeProfit: decimal.NewFromFloat(config.TakeProfitPct),
	}
}

// PnLPct returns the unrealized move of currentPrice against the entry price, in percent.
func PnLPct(position *domain.Position, currentPrice decimal.Decimal) decimal.Decimal {
	if position == nil || !position.EntryPrice.IsPositive() {
		return decimal.Zero
	}
	return currentPrice.Sub(position.EntryPrice).Div(position.EntryPrice).Mul(hundred)
}

// Evaluate checks the open position against stop-loss, take-profit and max-holding
// time, in that order, and returns the first rule that matches.
func (r *RiskManager) Evaluate(position *domain.Position, currentPrice decimal.Decimal, now time.Time) domain.ExitDecision {
	if position == nil {
		return domain.ExitNone
	}

	pnl := PnLPct(position, currentPrice)
	switch {
	case pnl.LessThanOrEqual(r.stopLoss):
		return domain.ExitStopLoss
	case pnl.GreaterThanOrEqual(r.takeProfit):
		return domain.ExitTakeProfit
	case r.config.MaxHold > 0 && position.Held(now) > r.config.MaxHold:
		return domain.ExitTimeExit
	}
	return domain.ExitNone
}

// GetStopLoss returns the price at which the stop-loss fires for a long entry.
func (r *RiskManager) GetStopLoss(entryPrice decimal.Decimal) decimal.Decimal {
	return entryPrice.Mul(hundred.Add(r.stopLoss)).Div(hundred)
}

// GetTakeProfit returns the price at which the take-profit fires for a long entry.
func (r *RiskManager) GetTakeProfit(entryPrice decimal.Decimal) decimal.Decimal {
	return entryPrice.Mul(hundred.Add(r.takeProfit)).Div(hundred)
}
