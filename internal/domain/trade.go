package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot is a point-in-time read of the ledger.
type BalanceSnapshot struct {
	Cash            decimal.Decimal `json:"cash"`
	AssetQty        decimal.Decimal `json:"assetQty"`
	TotalValue      decimal.Decimal `json:"totalValue"`      // Cash + AssetQty*price
	ProfitLossTotal decimal.Decimal `json:"profitLossTotal"` // TotalValue - initial cash
	DrawdownPct     decimal.Decimal `json:"drawdownPct"`     // Shortfall of TotalValue below initial cash, in percent
	MaxDrawdownPct  decimal.Decimal `json:"maxDrawdownPct"`
	RealizedProfit  decimal.Decimal `json:"realizedProfit"`
	TradeCount      int             `json:"tradeCount"`
	WinCount        int             `json:"winCount"`
	LossCount       int             `json:"lossCount"`
}

// WinRate returns the percentage of closed trades that were wins.
func (b BalanceSnapshot) WinRate() float64 {
	if b.TradeCount == 0 {
		return 0
	}
	return float64(b.WinCount) / float64(b.TradeCount) * 100
}

// TradeRecord is an immutable, finalized trade appended to the journal.
type TradeRecord struct {
	ID          string
	Time        time.Time
	Symbol      string
	Action      OrderSide
	Reason      Reason
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	GrossAmount decimal.Decimal // Quantity*Price
	Fee         decimal.Decimal
	NetAmount   decimal.Decimal // Cost for BUY (gross+fee), proceeds for SELL (gross-fee)
	ProfitLoss  decimal.Decimal // Zero for BUY
	Balance     BalanceSnapshot // Ledger state right after the trade
}
