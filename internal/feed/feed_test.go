package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/indicators"
)

type mockMarket struct {
	price     float64
	priceErr  error
	klines    []*domain.Kline
	klinesErr error
	limits    []int
}

func (m *mockMarket) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, m.priceErr
}

func (m *mockMarket) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	m.limits = append(m.limits, limit)
	return m.klines, m.klinesErr
}

func (m *mockMarket) Ping(ctx context.Context) error { return nil }

type mockLogger struct {
	warnMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func risingKlines(n int) []*domain.Kline {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, n)
	for i := range out {
		c := 100 + float64(i%7) + float64(i)/10
		out[i] = &domain.Kline{
			OpenTime:  start.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: start.Add(time.Duration(i+1)*5*time.Minute - time.Millisecond),
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

func newFeed(t *testing.T, market *mockMarket, log *mockLogger) *Feed {
	t.Helper()
	cfg := indicators.DefaultSetConfig()
	cfg.TrendFilterPeriod = 50
	f, err := New(Config{Symbol: "BTCJPY", Timeframe: "5m", Indicators: cfg}, market, log)
	require.NoError(t, err)
	return f
}

func TestNext_ComputesIndicators(t *testing.T) {
	market := &mockMarket{price: 105, klines: risingKlines(60)}
	f := newFeed(t, market, &mockLogger{})

	tick, err := f.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, tick.Neutral)
	assert.Equal(t, 105.0, tick.Price)
	for _, name := range []string{"ema_fast", "ema_slow", "rsi", "rsi_prev", "macd", "bb_lower", "trend_filter"} {
		_, ok := tick.Value(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, []int{51}, market.limits, "lookback is the longest indicator window plus one")
}

func TestNext_PriceFailureSkipsTick(t *testing.T) {
	tests := []struct {
		name   string
		market *mockMarket
	}{
		{"fetch error", &mockMarket{priceErr: errors.New("timeout")}},
		{"zero price", &mockMarket{price: 0}},
		{"negative price", &mockMarket{price: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFeed(t, tt.market, &mockLogger{}).Next(context.Background())
			assert.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
			assert.Empty(t, tt.market.limits, "no candles are fetched without a price")
		})
	}
}

func TestNext_NeutralFallback(t *testing.T) {
	tests := []struct {
		name   string
		market *mockMarket
	}{
		{"klines error", &mockMarket{price: 100, klinesErr: errors.New("rate limited")}},
		{"single kline", &mockMarket{price: 100, klines: risingKlines(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &mockLogger{}
			tick, err := newFeed(t, tt.market, log).Next(context.Background())
			require.NoError(t, err)
			assert.True(t, tick.Neutral)
			assert.Equal(t, domain.NeutralIndicators(), tick.Indicators)
			assert.Len(t, log.warnMsgs, 1)
		})
	}
}

func TestBuildTick_PartialHistory(t *testing.T) {
	tick := BuildTick(risingKlines(10), 101, time.Now(), indicators.DefaultSetConfig())
	assert.False(t, tick.Neutral)
	_, ok := tick.Value(domain.IndicatorEMAFast)
	assert.True(t, ok)
	_, ok = tick.Value(domain.IndicatorEMASlow)
	assert.False(t, ok, "21 period EMA needs more than 10 candles")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Symbol: "BTCJPY", Timeframe: "5m"}, nil, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{Timeframe: "5m"}, &mockMarket{}, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	bad := indicators.DefaultSetConfig()
	bad.EMAFast = 50
	_, err = New(Config{Symbol: "BTCJPY", Timeframe: "5m", Indicators: bad}, &mockMarket{}, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
