package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the single open long position held by the paper trader.
// A nil *Position means the trader is flat.
type Position struct {
	EntryPrice decimal.Decimal `json:"entryPrice"` // Price at which the position was opened
	Quantity   decimal.Decimal `json:"quantity"`   // Base-asset quantity held
	OpenedAt   time.Time       `json:"openedAt"`
	FeeRate    decimal.Decimal `json:"feeRate"` // Fee rate charged on entry
}

// CostBasis returns the fee-inclusive per-unit entry cost.
func (p *Position) CostBasis() decimal.Decimal {
	return p.EntryPrice.Mul(decimal.NewFromInt(1).Add(p.FeeRate))
}

// Held returns how long the position has been open at now.
func (p *Position) Held(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}
