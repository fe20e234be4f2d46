package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
)

var start = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

func buy(at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		Time:   at,
		Action: domain.Buy,
		Reason: domain.ReasonSignal,
		Fee:    decimal.RequireFromString("0.01"),
	}
}

func sell(at time.Time, pnl string, reason domain.Reason) domain.TradeRecord {
	return domain.TradeRecord{
		Time:       at,
		Action:     domain.Sell,
		Reason:     reason,
		Fee:        decimal.RequireFromString("0.01"),
		ProfitLoss: decimal.RequireFromString(pnl),
	}
}

func TestAnalyzePerformance(t *testing.T) {
	records := []domain.TradeRecord{
		buy(start),
		sell(start.Add(10*time.Minute), "2", domain.ReasonTakeProfit),
		buy(start.Add(20*time.Minute)),
		sell(start.Add(50*time.Minute), "-1", domain.ReasonStopLoss),
		buy(start.Add(72*time.Hour)),
		sell(start.Add(72*time.Hour+20*time.Minute), "0", domain.ReasonTimeExit),
	}

	m := AnalyzePerformance(records, 100)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades, "a flat exit counts as a win")
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.6667, m.WinRate, 1e-3)
	assert.InDelta(t, 1.0, m.TotalProfit, 1e-9)
	assert.InDelta(t, 0.06, m.TotalFees, 1e-9)
	assert.InDelta(t, 2.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 1.0, m.AverageWin, 1e-9)
	assert.InDelta(t, -1.0, m.AverageLoss, 1e-9)
	assert.InDelta(t, 1.0/3, m.Expectancy, 1e-9)
	assert.InDelta(t, 101.0, m.FinalBalance, 1e-9)
	assert.InDelta(t, 1.0, m.ReturnPct, 1e-9)
	assert.Equal(t, 20*time.Minute, m.AverageHold)
	assert.Equal(t, 1, m.MaxConsecutiveLosses)
	assert.Equal(t, 1, m.MaxConsecutiveWins)
	assert.Equal(t, map[domain.Reason]int{
		domain.ReasonTakeProfit: 1,
		domain.ReasonStopLoss:   1,
		domain.ReasonTimeExit:   1,
	}, m.ExitsByReason)
	assert.Len(t, m.EquityCurve, 3)

	monthly := m.GetMonthlyReturns()
	require.Len(t, monthly, 2)
	assert.Equal(t, time.January, monthly[0].Month.Month())
	assert.InDelta(t, 1.0, monthly[0].Return, 1e-9)
	assert.Equal(t, time.February, monthly[1].Month.Month())
}

func TestAnalyzePerformance_Empty(t *testing.T) {
	m := AnalyzePerformance(nil, 100)
	assert.Zero(t, m.TotalTrades)
	assert.Equal(t, 100.0, m.FinalBalance)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
}

func TestAnalyzePerformance_OpenBuyOnly(t *testing.T) {
	m := AnalyzePerformance([]domain.TradeRecord{buy(start)}, 100)
	assert.Zero(t, m.TotalTrades)
	assert.InDelta(t, 0.01, m.TotalFees, 1e-9)
}

func TestAnalyzePerformance_Drawdown(t *testing.T) {
	records := []domain.TradeRecord{
		sell(start, "10", domain.ReasonGrid),
		sell(start.Add(time.Minute), "-22", domain.ReasonGrid),
		sell(start.Add(2*time.Minute), "-11", domain.ReasonGrid),
		sell(start.Add(3*time.Minute), "30", domain.ReasonGrid),
	}

	m := AnalyzePerformance(records, 100)

	// Peak 110, trough 77.
	assert.InDelta(t, 30.0, m.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 2, m.MaxConsecutiveLosses)
	assert.Zero(t, m.AverageHold)
	assert.InDelta(t, 30.0, m.EquityCurve[2].DrawdownPct, 1e-9)
	assert.InDelta(t, 107.0, m.FinalBalance, 1e-9)
}
