// Package backtesting replays historical klines through the live trading pipeline.
package backtesting

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/app"
	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/feed"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ledger"
	"paperTradingBot/internal/metrics"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/analytics"
	"paperTradingBot/internal/strategy/indicators"
)

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	Service     app.Config
	InitialCash decimal.Decimal
	Indicators  indicators.SetConfig
}

// BacktestResult holds the results of a backtest
type BacktestResult struct {
	Ticks       int
	Records     []domain.TradeRecord // Journal contents in insertion order
	Final       domain.BalanceSnapshot
	OpenAtEnd   bool
	Performance *analytics.PerformanceMetrics
}

// Backtest replays klines through a fresh ledger and trading service. Each kline
// becomes one tick priced at its close and timed at its close time, with
// indicators computed over the same window the live feed would fetch.
// evaluator may be nil in grid mode.
func Backtest(ctx context.Context, cfg BacktestConfig, evaluator ports.Evaluator, klines []*domain.Kline, logger ports.Logger) (*BacktestResult, error) {
	if len(klines) == 0 {
		return nil, fmt.Errorf("no klines to replay: %w", ports.ErrInvalidRequest)
	}
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, err
	}

	book, err := ledger.New(cfg.Service.Symbol, cfg.InitialCash)
	if err != nil {
		return nil, err
	}
	mem := journal.NewMemory()
	svcCfg := cfg.Service
	svcCfg.JournalTail = 0

	svc, err := app.NewTradingService(svcCfg, app.Deps{
		Logger:    logger,
		Evaluator: evaluator,
		Book:      book,
		Journal:   mem,
		Metrics:   metrics.New("backtest"),
	})
	if err != nil {
		return nil, err
	}

	window := cfg.Indicators.Lookback() + 1
	result := &BacktestResult{}
	var last decimal.Decimal

	for i, k := range klines {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest interrupted at kline %d: %w: %w", i, ports.ErrContextCanceled, err)
		}
		from := max(0, i+1-window)
		tick := feed.BuildTick(klines[from:i+1], k.Close, k.CloseTime, cfg.Indicators)

		if _, err := svc.ProcessTick(ctx, tick); err != nil {
			if errors.Is(err, ports.ErrUpstreamUnavailable) {
				logger.Warn(ctx, "Skipping kline with unusable price", map[string]interface{}{"index": i, "close": k.Close})
				continue
			}
			return nil, fmt.Errorf("replay kline %d: %w", i, err)
		}
		result.Ticks++
		last = decimal.NewFromFloat(k.Close)
	}

	result.Records = mem.All()
	result.Final = book.Snapshot(last)
	result.OpenAtEnd = svc.Status().Position != nil
	result.Performance = analytics.AnalyzePerformance(result.Records, cfg.InitialCash.InexactFloat64())
	return result, nil
}
