package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(Config{
		DBPath: filepath.Join(t.TempDir(), "journal.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func trade(id string, action domain.OrderSide, pnl string) domain.TradeRecord {
	return domain.TradeRecord{
		ID:         id,
		Time:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Symbol:     "BTCJPY",
		Action:     action,
		Reason:     domain.ReasonSignal,
		Price:      decimal.NewFromInt(10000),
		Quantity:   decimal.RequireFromString("0.001"),
		ProfitLoss: decimal.RequireFromString(pnl),
	}
}

func TestJournal_LastNInInsertionOrder(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	// Identical timestamps: order must come from insertion, not time.
	ids := []string{"b", "a", "d", "c"}
	for i, id := range ids {
		action := domain.Buy
		if i%2 == 1 {
			action = domain.Sell
		}
		require.NoError(t, j.Append(ctx, trade(id, action, "0")))
	}

	tests := []struct {
		n    int
		want []string
	}{
		{1, []string{"c"}},
		{3, []string{"a", "d", "c"}},
		{10, []string{"b", "a", "d", "c"}},
		{0, nil},
	}
	for _, tt := range tests {
		got, err := j.LastN(ctx, tt.n)
		require.NoError(t, err)
		var gotIDs []string
		for _, r := range got {
			gotIDs = append(gotIDs, r.ID)
		}
		assert.Equal(t, tt.want, gotIDs, "n=%d", tt.n)
	}

	all, err := j.LastN(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestJournal_RoundTripsRecord(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, trade("x", domain.Sell, "-0.02")))
	got, err := j.LastN(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Sell, got[0].Action)
	assert.True(t, decimal.RequireFromString("-0.02").Equal(got[0].ProfitLoss))
}

func TestJournal_AppendOnly(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, j.Append(ctx, trade("x", domain.Buy, "0")))

	_, err := j.db.ExecContext(ctx, `DELETE FROM trade_journal`)
	assert.Error(t, err)
	_, err = j.db.ExecContext(ctx, `UPDATE trade_journal SET reason = 'edited'`)
	assert.Error(t, err)

	got, err := j.LastN(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := NewJournal(Config{DBPath: path, Logger: &mockLogger{}})
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, trade("first", domain.Buy, "0")))
	require.NoError(t, j.Close())

	j, err = NewJournal(Config{DBPath: path, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Append(ctx, trade("second", domain.Sell, "1")))

	got, err := j.LastN(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestNewJournal_RequiresLogger(t *testing.T) {
	_, err := NewJournal(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
