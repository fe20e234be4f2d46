package ports

import (
	"context"

	"paperTradingBot/internal/domain"
)

// MarketData defines the read-only market access the paper trader needs.
// No order placement exists: every trade is simulated against the ledger.
type MarketData interface {
	// GetTickerPrice retrieves the last traded price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetKlines retrieves the most recent klines for the given symbol, oldest first.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error
}

// SignalSource produces the per-tick observation consumed by the trading pipeline.
type SignalSource interface {
	// Next returns the tick for the current cycle. It returns ErrUpstreamUnavailable
	// when no usable price could be obtained; the tick must then be skipped.
	Next(ctx context.Context) (domain.Tick, error)
}
