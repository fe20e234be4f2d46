// Package lifecycle gates every trade before it reaches the ledger: it owns the
// single open position, enforces the cooldown between trades and sizes entries.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// Book is the part of the ledger the lifecycle mutates.
type Book interface {
	Cash() decimal.Decimal
	ApplyBuy(price, quantity, feeRate decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error)
	ApplyHealthySell(price, quantity, feeRate, entryPrice decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error)
}

// SizingMode selects how an entry quantity is derived.
type SizingMode string

const (
	// SizeFraction commits a fraction of the current free cash.
	SizeFraction SizingMode = "fraction"
	// SizeTargetGain buys enough to earn TargetGain quote units at the take-profit level.
	SizeTargetGain SizingMode = "target_gain"
)

// Config holds the lifecycle parameters.
type Config struct {
	RiskFraction  decimal.Decimal
	FeeRate       decimal.Decimal
	Cooldown      time.Duration
	Sizing        SizingMode
	TargetGain    decimal.Decimal // Only used by SizeTargetGain
	TakeProfitPct decimal.Decimal // Only used by SizeTargetGain
}

// Lifecycle is the open/close state machine for the single position.
// It is not safe for concurrent use; the trading service serializes access.
type Lifecycle struct {
	cfg           Config
	book          Book
	position      *domain.Position
	lastTradeTime time.Time
}

// New creates a flat lifecycle over book.
func New(cfg Config, book Book) (*Lifecycle, error) {
	if book == nil {
		return nil, fmt.Errorf("ledger is required for lifecycle: %w", ports.ErrConfigurationError)
	}
	if cfg.Sizing == "" {
		cfg.Sizing = SizeFraction
	}
	switch cfg.Sizing {
	case SizeFraction:
		if !cfg.RiskFraction.IsPositive() {
			return nil, fmt.Errorf("risk fraction must be positive: %w", ports.ErrConfigurationError)
		}
	case SizeTargetGain:
		if !cfg.TargetGain.IsPositive() || !cfg.TakeProfitPct.IsPositive() {
			return nil, fmt.Errorf("target gain sizing needs positive target gain and take profit: %w", ports.ErrConfigurationError)
		}
	default:
		return nil, fmt.Errorf("unknown sizing mode %q: %w", cfg.Sizing, ports.ErrConfigurationError)
	}
	return &Lifecycle{cfg: cfg, book: book}, nil
}

// CanTrade reports whether at least cooldown has elapsed since lastTradeTime.
// A zero lastTradeTime means no trade was made yet.
func CanTrade(now, lastTradeTime time.Time, cooldown time.Duration) bool {
	if lastTradeTime.IsZero() {
		return true
	}
	return now.Sub(lastTradeTime) >= cooldown
}

// SizeEntry returns the quantity bought with riskFraction of the free cash at price.
func SizeEntry(cash, riskFraction, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return cash.Mul(riskFraction).Div(price)
}

// SizeForTargetGain returns the quantity that earns targetGain when price rises by takeProfitPct.
func SizeForTargetGain(targetGain, takeProfitPct, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || !takeProfitPct.IsPositive() {
		return decimal.Zero
	}
	return targetGain.Div(takeProfitPct.Div(hundred)).Div(price)
}

// Position returns a copy of the open position, or nil when flat.
func (l *Lifecycle) Position() *domain.Position {
	if l.position == nil {
		return nil
	}
	p := *l.position
	return &p
}

// LastTradeTime returns the time of the last applied trade.
func (l *Lifecycle) LastTradeTime() time.Time {
	return l.lastTradeTime
}

// Quantity returns the entry size for price under the configured sizing mode.
func (l *Lifecycle) Quantity(price decimal.Decimal) decimal.Decimal {
	if l.cfg.Sizing == SizeTargetGain {
		return SizeForTargetGain(l.cfg.TargetGain, l.cfg.TakeProfitPct, price)
	}
	return SizeEntry(l.book.Cash(), l.cfg.RiskFraction, price)
}

// Open buys at price and opens the position. It is rejected when a position is
// already open, during the cooldown, or when the ledger cannot fund it.
func (l *Lifecycle) Open(price decimal.Decimal, now time.Time, reason domain.Reason) (domain.TradeRecord, error) {
	if l.position != nil {
		return domain.TradeRecord{}, ports.ErrPositionOpen
	}
	if !CanTrade(now, l.lastTradeTime, l.cfg.Cooldown) {
		return domain.TradeRecord{}, l.cooldownError(now)
	}

	qty := l.Quantity(price)
	if !qty.IsPositive() {
		return domain.TradeRecord{}, fmt.Errorf("entry size is zero with cash %s: %w", l.book.Cash(), ports.ErrInsufficientFunds)
	}

	rec, err := l.book.ApplyBuy(price, qty, l.cfg.FeeRate, reason, now)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	l.position = &domain.Position{
		EntryPrice: price,
		Quantity:   qty,
		OpenedAt:   now,
		FeeRate:    l.cfg.FeeRate,
	}
	l.lastTradeTime = now
	return rec, nil
}

// Close sells the full open quantity at price and clears the position.
func (l *Lifecycle) Close(price decimal.Decimal, now time.Time, reason domain.Reason) (domain.TradeRecord, error) {
	if l.position == nil {
		return domain.TradeRecord{}, ports.ErrNoPosition
	}
	if !CanTrade(now, l.lastTradeTime, l.cfg.Cooldown) {
		return domain.TradeRecord{}, l.cooldownError(now)
	}

	rec, err := l.book.ApplyHealthySell(price, l.position.Quantity, l.cfg.FeeRate, l.position.CostBasis(), reason, now)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	l.position = nil
	l.lastTradeTime = now
	return rec, nil
}

func (l *Lifecycle) cooldownError(now time.Time) error {
	remaining := l.cfg.Cooldown - now.Sub(l.lastTradeTime)
	return fmt.Errorf("%s remaining: %w", remaining.Round(time.Millisecond), ports.ErrCooldownActive)
}
