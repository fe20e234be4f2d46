// Package feed implements the signal source: it polls the market for the last
// price and recent candles and turns them into a tick for the trading pipeline.
package feed

import (
	"context"
	"fmt"
	"time"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/indicators"
)

// maxKlineLimit is the largest page the exchange serves in one klines request.
const maxKlineLimit = 1000

// Config holds the feed parameters.
type Config struct {
	Symbol     string
	Timeframe  string
	Indicators indicators.SetConfig
}

// Feed is the market-backed signal source.
type Feed struct {
	cfg    Config
	limit  int
	market ports.MarketData
	logger ports.Logger
	now    func() time.Time
}

var _ ports.SignalSource = (*Feed)(nil)

// New creates a feed over market.
func New(cfg Config, market ports.MarketData, logger ports.Logger) (*Feed, error) {
	if market == nil || logger == nil {
		return nil, fmt.Errorf("market data and logger are required for feed: %w", ports.ErrConfigurationError)
	}
	if cfg.Symbol == "" || cfg.Timeframe == "" {
		return nil, fmt.Errorf("symbol and timeframe are required for feed: %w", ports.ErrConfigurationError)
	}
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, err
	}

	limit := cfg.Indicators.Lookback() + 1
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	return &Feed{cfg: cfg, limit: limit, market: market, logger: logger, now: time.Now}, nil
}

// Next fetches the price and candles for this cycle. A missing price fails the
// tick with ErrUpstreamUnavailable; missing candles fall back to neutral indicators.
func (f *Feed) Next(ctx context.Context) (domain.Tick, error) {
	price, err := f.market.GetTickerPrice(ctx, f.cfg.Symbol)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("fetch price for %s: %v: %w", f.cfg.Symbol, err, ports.ErrUpstreamUnavailable)
	}
	if price <= 0 {
		return domain.Tick{}, fmt.Errorf("non-positive price %v for %s: %w", price, f.cfg.Symbol, ports.ErrUpstreamUnavailable)
	}

	now := f.now()
	klines, err := f.market.GetKlines(ctx, f.cfg.Symbol, f.cfg.Timeframe, f.limit)
	if err != nil {
		f.logger.Warn(ctx, "Klines unavailable, using neutral indicators", map[string]interface{}{
			"symbol": f.cfg.Symbol,
			"error":  err.Error(),
		})
		return NeutralTick(price, now), nil
	}

	tick := BuildTick(klines, price, now, f.cfg.Indicators)
	if tick.Neutral {
		f.logger.Warn(ctx, "Not enough klines, using neutral indicators", map[string]interface{}{
			"symbol":    f.cfg.Symbol,
			"available": len(klines),
		})
	}
	return tick, nil
}

// BuildTick derives the indicators for price from klines. Fewer than two
// candles yield the neutral fallback.
func BuildTick(klines []*domain.Kline, price float64, now time.Time, cfg indicators.SetConfig) domain.Tick {
	if len(klines) < 2 {
		return NeutralTick(price, now)
	}
	return domain.Tick{
		Time:       now,
		Price:      price,
		Indicators: indicators.Compute(klines, cfg),
	}
}

// NeutralTick carries price with the neutral indicator fallback.
func NeutralTick(price float64, now time.Time) domain.Tick {
	return domain.Tick{
		Time:       now,
		Price:      price,
		Indicators: domain.NeutralIndicators(),
		Neutral:    true,
	}
}
