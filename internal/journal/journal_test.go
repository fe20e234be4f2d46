package journal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
)

func sampleRecord() domain.TradeRecord {
	d := decimal.RequireFromString
	return domain.TradeRecord{
		ID:          "01JABCDEF",
		Time:        time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC),
		Symbol:      "BTCJPY",
		Action:      domain.Sell,
		Reason:      domain.ReasonTakeProfit,
		Price:       d("10150"),
		Quantity:    d("0.001"),
		GrossAmount: d("10.15"),
		Fee:         d("0.01015"),
		NetAmount:   d("10.13985"),
		ProfitLoss:  d("0.12985"),
		Balance: domain.BalanceSnapshot{
			Cash:           d("100.12985"),
			AssetQty:       decimal.Zero,
			TotalValue:     d("100.12985"),
			RealizedProfit: d("0.12985"),
			DrawdownPct:    decimal.Zero,
			MaxDrawdownPct: d("0.5"),
			TradeCount:     1,
			WinCount:       1,
		},
	}
}

func TestFormatParse(t *testing.T) {
	rec := sampleRecord()
	line := Format(rec)

	assert.False(t, strings.Contains(line, "\n"))
	assert.True(t, strings.HasPrefix(line, "2026-03-01T12:00:00.0000005Z id=01JABCDEF"))
	assert.Contains(t, line, " action=SELL reason=take-profit ")
	assert.Contains(t, line, " pnl=0.12985 ")

	got, err := Parse(line)
	require.NoError(t, err)
	assert.True(t, rec.Time.Equal(got.Time))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Action, got.Action)
	assert.Equal(t, rec.Reason, got.Reason)
	assert.True(t, rec.ProfitLoss.Equal(got.ProfitLoss))
	assert.True(t, rec.Balance.Cash.Equal(got.Balance.Cash))
	assert.True(t, rec.Balance.MaxDrawdownPct.Equal(got.Balance.MaxDrawdownPct))
	assert.Equal(t, 1, got.Balance.WinCount)
}

func TestParse_Rejects(t *testing.T) {
	for _, line := range []string{
		"",
		"yesterday action=BUY",
		"2026-03-01T12:00:00Z action=HOLD",
		"2026-03-01T12:00:00Z action=BUY price",
		"2026-03-01T12:00:00Z action=BUY price=abc",
		"2026-03-01T12:00:00Z action=BUY trades=x",
	} {
		_, err := Parse(line)
		assert.Error(t, err, line)
	}
}

func TestMemory_LastNKeepsInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := sampleRecord()
		rec.ID = string(rune('a' + i))
		require.NoError(t, m.Append(ctx, rec))
	}

	last, err := m.LastN(ctx, 3)
	require.NoError(t, err)
	require.Len(t, last, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{last[0].ID, last[1].ID, last[2].ID})

	all, err := m.LastN(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := m.LastN(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Len(t, m.All(), 5)
	assert.NoError(t, m.Close())
}
