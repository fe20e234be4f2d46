// Package grid runs the ladder variant: a band of price levels, each armed once
// as a buy or a sell, that fire as price crosses them and trail price upward.
package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// recenterFactor is how far above the upper bound price must trade before the band trails it.
var recenterFactor = decimal.RequireFromString("1.01")

// Side is the order a level is armed with.
type Side string

const (
	ArmedBuy  Side = "armed-buy"
	ArmedSell Side = "armed-sell"
)

// Level is one rung of the ladder. A level fires at most once per ladder epoch.
type Level struct {
	Price          decimal.Decimal `json:"price"`
	Side           Side            `json:"side"`
	Filled         bool            `json:"filled"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	// Quantity is the amount a sell level offers, fixed when the ladder is built.
	Quantity decimal.Decimal `json:"quantity"`
}

// Book is the part of the ledger the ladder trades against.
type Book interface {
	Cash() decimal.Decimal
	ApplyBuy(price, quantity, feeRate decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error)
	ApplyHealthySell(price, quantity, feeRate, entryPrice decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error)
}

// Config holds the ladder parameters.
type Config struct {
	Lower        decimal.Decimal
	Upper        decimal.Decimal
	Levels       int
	RiskFraction decimal.Decimal
	FeeRate      decimal.Decimal
}

// Validate checks the band and sizing parameters.
func (c Config) Validate() error {
	if !c.Lower.IsPositive() || !c.Upper.GreaterThan(c.Lower) {
		return fmt.Errorf("grid bounds must satisfy 0 < lower (%s) < upper (%s): %w", c.Lower, c.Upper, ports.ErrConfigurationError)
	}
	if c.Levels < 1 {
		return fmt.Errorf("grid needs at least one step, got %d: %w", c.Levels, ports.ErrConfigurationError)
	}
	if !c.RiskFraction.IsPositive() || c.RiskFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("grid risk fraction %s must be in (0, 1]: %w", c.RiskFraction, ports.ErrConfigurationError)
	}
	return nil
}

// Result describes what a single Tick did.
type Result struct {
	Recentered bool
	Fills      []domain.TradeRecord
	// Rejected holds the non-fatal ledger rejections of levels that stay armed.
	Rejected []error
}

// Ladder is the grid state machine. It is not safe for concurrent use.
type Ladder struct {
	cfg    Config
	book   Book
	lower  decimal.Decimal
	upper  decimal.Decimal
	levels []Level
	built  bool
}

// New creates an unbuilt ladder. The first Tick builds it around the configured band.
func New(cfg Config, book Book) (*Ladder, error) {
	if book == nil {
		return nil, fmt.Errorf("ledger is required for grid: %w", ports.ErrConfigurationError)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ladder{cfg: cfg, book: book, lower: cfg.Lower, upper: cfg.Upper}, nil
}

// Initialize (re)builds the ladder from lower to upper in numLevels equal steps,
// discarding every previous fill. Levels below currentPrice are armed to buy,
// the rest to sell. Stepping stops at the last level not above upper, so the
// count is floor((upper-lower)/step)+1.
func (l *Ladder) Initialize(lower, upper decimal.Decimal, numLevels int, currentPrice decimal.Decimal) {
	step := upper.Sub(lower).Div(decimal.NewFromInt(int64(numLevels)))
	cash := l.book.Cash()

	levels := make([]Level, 0, numLevels+1)
	for price := lower; price.LessThanOrEqual(upper); price = price.Add(step) {
		lvl := Level{Price: price, Side: ArmedSell}
		if price.LessThan(currentPrice) {
			lvl.Side = ArmedBuy
		} else {
			lvl.Quantity = l.cfg.RiskFraction.Mul(cash).Div(price)
		}
		levels = append(levels, lvl)
		if !step.IsPositive() {
			break
		}
	}

	l.lower, l.upper = lower, upper
	l.cfg.Levels = numLevels
	l.levels = levels
	l.built = true
}

// Tick trails the band if price broke well above it, then fires every unfilled
// level that price has crossed, in ascending price order.
func (l *Ladder) Tick(currentPrice decimal.Decimal, now time.Time) Result {
	var res Result
	if !l.built {
		l.Initialize(l.lower, l.upper, l.cfg.Levels, currentPrice)
	}

	if currentPrice.GreaterThan(l.upper.Mul(recenterFactor)) {
		shift := currentPrice.Sub(l.upper)
		l.Initialize(l.lower.Add(shift), l.upper.Add(shift), l.cfg.Levels, currentPrice)
		res.Recentered = true
	}

	for i := range l.levels {
		lvl := &l.levels[i]
		if lvl.Filled {
			continue
		}

		switch lvl.Side {
		case ArmedBuy:
			if currentPrice.GreaterThan(lvl.Price) {
				continue
			}
			qty := l.cfg.RiskFraction.Mul(l.book.Cash()).Div(lvl.Price)
			rec, err := l.book.ApplyBuy(lvl.Price, qty, l.cfg.FeeRate, domain.ReasonGrid, now)
			if err != nil {
				res.Rejected = append(res.Rejected, fmt.Errorf("buy level %s: %w", lvl.Price, err))
				continue
			}
			lvl.Filled = true
			lvl.FilledQuantity = qty
			res.Fills = append(res.Fills, rec)

		case ArmedSell:
			if currentPrice.LessThan(lvl.Price) {
				continue
			}
			// Proceeds and cost basis both use the level price, so realized
			// P&L on a grid sell is the fee alone.
			rec, err := l.book.ApplyHealthySell(lvl.Price, lvl.Quantity, l.cfg.FeeRate, lvl.Price, domain.ReasonGrid, now)
			if err != nil {
				res.Rejected = append(res.Rejected, fmt.Errorf("sell level %s: %w", lvl.Price, err))
				continue
			}
			lvl.Filled = true
			lvl.FilledQuantity = lvl.Quantity
			res.Fills = append(res.Fills, rec)
		}
	}
	return res
}

// Levels returns a copy of the current ladder.
func (l *Ladder) Levels() []Level {
	out := make([]Level, len(l.levels))
	copy(out, l.levels)
	return out
}

// Bounds returns the current band.
func (l *Ladder) Bounds() (lower, upper decimal.Decimal) {
	return l.lower, l.upper
}

// IsRejection reports whether err is an expected ledger rejection rather than a fault.
func IsRejection(err error) bool {
	return errors.Is(err, ports.ErrInsufficientFunds) ||
		errors.Is(err, ports.ErrInsufficientAsset) ||
		errors.Is(err, ports.ErrInvalidRequest)
}
