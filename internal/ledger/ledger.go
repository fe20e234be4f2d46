// Package ledger holds the simulated cash and asset balances of the paper trader.
//
// The Ledger is the only mutable shared state in the process. All fields are guarded
// by a single mutex so a status reader can take snapshots while ticks are processed.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/id"
	"paperTradingBot/internal/ports"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Ledger tracks balances, realized profit and trade statistics for one run.
type Ledger struct {
	mu     sync.Mutex
	symbol string

	initialCash    decimal.Decimal
	cash           decimal.Decimal
	assetQty       decimal.Decimal
	realizedProfit decimal.Decimal
	maxDrawdownPct decimal.Decimal

	tradeCount int
	winCount   int
	lossCount  int
}

// New creates a ledger funded with initialCash of quote currency.
func New(symbol string, initialCash decimal.Decimal) (*Ledger, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("initial cash %s cannot be negative: %w", initialCash, ports.ErrInvalidRequest)
	}
	return &Ledger{
		symbol:      symbol,
		initialCash: initialCash,
		cash:        initialCash,
	}, nil
}

// InitialCash returns the immutable baseline used for P&L and drawdown.
func (l *Ledger) InitialCash() decimal.Decimal {
	return l.initialCash
}

// Cash returns the free quote-currency balance.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// AssetQty returns the base-asset balance.
func (l *Ledger) AssetQty() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.assetQty
}

// ApplyBuy debits quantity*price*(1+feeRate) from cash and credits quantity of the asset.
// Nothing is mutated when the error is non-nil.
func (l *Ledger) ApplyBuy(price, quantity, feeRate decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error) {
	if err := validateOrder(price, quantity, feeRate); err != nil {
		return domain.TradeRecord{}, err
	}

	gross := quantity.Mul(price)
	fee := gross.Mul(feeRate)
	netCost := gross.Add(fee)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cash.LessThan(netCost) {
		return domain.TradeRecord{}, fmt.Errorf("buy needs %s, cash is %s: %w", netCost, l.cash, ports.ErrInsufficientFunds)
	}

	l.cash = l.cash.Sub(netCost)
	l.assetQty = l.assetQty.Add(quantity)

	return domain.TradeRecord{
		ID:          id.New(at),
		Time:        at,
		Symbol:      l.symbol,
		Action:      domain.Buy,
		Reason:      reason,
		Price:       price,
		Quantity:    quantity,
		GrossAmount: gross,
		Fee:         fee,
		NetAmount:   netCost,
		ProfitLoss:  decimal.Zero,
		Balance:     l.snapshotLocked(price),
	}, nil
}

// ApplyHealthySell credits quantity*price*(1-feeRate) to cash and debits quantity of the asset.
// profitLoss is the net proceeds minus quantity*entryPrice; a zero result counts as a win.
// Nothing is mutated when the error is non-nil.
func (l *Ledger) ApplyHealthySell(price, quantity, feeRate, entryPrice decimal.Decimal, reason domain.Reason, at time.Time) (domain.TradeRecord, error) {
	if err := validateOrder(price, quantity, feeRate); err != nil {
		return domain.TradeRecord{}, err
	}

	gross := quantity.Mul(price)
	fee := gross.Mul(feeRate)
	netProceeds := gross.Sub(fee)
	profitLoss := netProceeds.Sub(quantity.Mul(entryPrice))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.assetQty.LessThan(quantity) {
		return domain.TradeRecord{}, fmt.Errorf("sell needs %s, asset is %s: %w", quantity, l.assetQty, ports.ErrInsufficientAsset)
	}

	l.cash = l.cash.Add(netProceeds)
	l.assetQty = l.assetQty.Sub(quantity)
	l.realizedProfit = l.realizedProfit.Add(profitLoss)
	l.tradeCount++
	if profitLoss.IsNegative() {
		l.lossCount++
	} else {
		l.winCount++
	}

	return domain.TradeRecord{
		ID:          id.New(at),
		Time:        at,
		Symbol:      l.symbol,
		Action:      domain.Sell,
		Reason:      reason,
		Price:       price,
		Quantity:    quantity,
		GrossAmount: gross,
		Fee:         fee,
		NetAmount:   netProceeds,
		ProfitLoss:  profitLoss,
		Balance:     l.snapshotLocked(price),
	}, nil
}

// Snapshot values the ledger at currentPrice. It ratchets the stored maximum
// drawdown upward when the live drawdown exceeds it; it never lowers it.
func (l *Ledger) Snapshot(currentPrice decimal.Decimal) domain.BalanceSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(currentPrice)
}

func (l *Ledger) snapshotLocked(price decimal.Decimal) domain.BalanceSnapshot {
	total := l.cash.Add(l.assetQty.Mul(price))

	drawdown := decimal.Zero
	if l.initialCash.IsPositive() && total.LessThan(l.initialCash) {
		drawdown = l.initialCash.Sub(total).Div(l.initialCash).Mul(hundred)
	}
	if drawdown.GreaterThan(l.maxDrawdownPct) {
		l.maxDrawdownPct = drawdown
	}

	return domain.BalanceSnapshot{
		Cash:            l.cash,
		AssetQty:        l.assetQty,
		TotalValue:      total,
		ProfitLossTotal: total.Sub(l.initialCash),
		DrawdownPct:     drawdown,
		MaxDrawdownPct:  l.maxDrawdownPct,
		RealizedProfit:  l.realizedProfit,
		TradeCount:      l.tradeCount,
		WinCount:        l.winCount,
		LossCount:       l.lossCount,
	}
}

func validateOrder(price, quantity, feeRate decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("price %s must be positive: %w", price, ports.ErrInvalidRequest)
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("quantity %s must be positive: %w", quantity, ports.ErrInvalidRequest)
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("fee rate %s must be in [0, 1): %w", feeRate, ports.ErrInvalidRequest)
	}
	return nil
}
