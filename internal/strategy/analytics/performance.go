// Package analytics summarizes a journal of paper trades.
package analytics

import (
	"math"
	"sort"
	"time"

	"paperTradingBot/internal/domain"
)

// PerformanceMetrics holds the performance summary of a run. Only SELL records
// realize profit, so only they count as trades.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades    int
	WinningTrades  int // Zero P&L counts as a win, matching the ledger
	LosingTrades   int
	WinRate        float64 // Percent
	TotalProfit    float64
	TotalFees      float64 // Fees of every record, buys included
	GrossProfit    float64
	GrossLoss      float64 // Negative or zero
	MaxDrawdownPct float64 // Realized equity drop from its running peak, in percent
	ProfitFactor   float64 // GrossProfit / -GrossLoss; zero when nothing was lost
	AverageWin     float64
	AverageLoss    float64
	Expectancy     float64 // Mean realized P&L per trade
	FinalBalance   float64
	ReturnPct      float64

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageHold          time.Duration // Entry to exit, for sells with a preceding buy
	ExitsByReason        map[domain.Reason]int
	MonthlyReturns       map[string]float64
	EquityCurve          []EquityPoint
}

// EquityPoint represents a point on the realized equity curve
type EquityPoint struct {
	Time        time.Time
	Value       float64
	DrawdownPct float64
}

// AnalyzePerformance calculates performance metrics from journal records in
// insertion order. initialBalance is the starting cash of the run.
func AnalyzePerformance(records []domain.TradeRecord, initialBalance float64) *PerformanceMetrics {
	m := &PerformanceMetrics{
		FinalBalance:   initialBalance,
		ExitsByReason:  make(map[domain.Reason]int),
		MonthlyReturns: make(map[string]float64),
	}

	balance := initialBalance
	peak := initialBalance
	var (
		consecutiveWins, consecutiveLosses int
		openBuys                           []time.Time
		holdTotal                          time.Duration
		holds                              int
	)

	for _, rec := range records {
		m.TotalFees += rec.Fee.InexactFloat64()
		if rec.Action == domain.Buy {
			openBuys = append(openBuys, rec.Time)
			continue
		}

		if len(openBuys) > 0 {
			holdTotal += rec.Time.Sub(openBuys[0])
			holds++
			openBuys = openBuys[1:]
		}

		pnl := rec.ProfitLoss.InexactFloat64()
		m.TotalTrades++
		m.ExitsByReason[rec.Reason]++
		if pnl >= 0 {
			m.WinningTrades++
			m.GrossProfit += pnl
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			m.LosingTrades++
			m.GrossLoss += pnl
			consecutiveLosses++
			consecutiveWins = 0
		}
		m.MaxConsecutiveWins = max(m.MaxConsecutiveWins, consecutiveWins)
		m.MaxConsecutiveLosses = max(m.MaxConsecutiveLosses, consecutiveLosses)

		balance += pnl
		m.TotalProfit += pnl
		m.MonthlyReturns[rec.Time.Format("2006-01")] += pnl

		peak = math.Max(peak, balance)
		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - balance) / peak * 100
		}
		m.MaxDrawdownPct = math.Max(m.MaxDrawdownPct, drawdown)

		m.EquityCurve = append(m.EquityCurve, EquityPoint{
			Time:        rec.Time,
			Value:       balance,
			DrawdownPct: drawdown,
		})
	}

	m.FinalBalance = balance
	if m.TotalTrades == 0 {
		return m
	}

	// Calculate final metrics
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	if m.WinningTrades > 0 {
		m.AverageWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = m.GrossLoss / float64(m.LosingTrades)
	}
	if m.GrossLoss < 0 {
		m.ProfitFactor = m.GrossProfit / -m.GrossLoss
	}
	m.Expectancy = m.TotalProfit / float64(m.TotalTrades)
	if initialBalance > 0 {
		m.ReturnPct = (m.FinalBalance - initialBalance) / initialBalance * 100
	}
	if holds > 0 {
		m.AverageHold = holdTotal / time.Duration(holds)
	}
	return m
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
