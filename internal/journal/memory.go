package journal

import (
	"context"
	"sync"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// Memory is an in-process journal. It backs replays and tests.
type Memory struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

var _ ports.TradeJournal = (*Memory)(nil)

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

// Append implements ports.TradeJournal.
func (m *Memory) Append(_ context.Context, rec domain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// LastN implements ports.TradeJournal.
func (m *Memory) LastN(_ context.Context, n int) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Tail(m.records, n), nil
}

// All returns every record in insertion order.
func (m *Memory) All() []domain.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TradeRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Close implements ports.TradeJournal.
func (m *Memory) Close() error { return nil }

// Tail returns a copy of the last n records; n <= 0 returns none.
func Tail(records []domain.TradeRecord, n int) []domain.TradeRecord {
	if n <= 0 {
		return nil
	}
	if n > len(records) {
		n = len(records)
	}
	out := make([]domain.TradeRecord, n)
	copy(out, records[len(records)-n:])
	return out
}
