package ports

import (
	"context"

	"paperTradingBot/internal/domain"
)

// TradeJournal is the append-only store of finalized trades.
type TradeJournal interface {
	// Append durably records one trade after all previously appended trades.
	Append(ctx context.Context, rec domain.TradeRecord) error
	// LastN returns the most recent n trades in insertion order (oldest first).
	LastN(ctx context.Context, n int) ([]domain.TradeRecord, error)
	// Close releases the underlying storage.
	Close() error
}
