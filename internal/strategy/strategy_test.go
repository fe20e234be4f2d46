package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/strategies"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func tick(price float64, ind map[string]float64) domain.Tick {
	return domain.Tick{Time: time.Now(), Price: price, Indicators: ind}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logger  ports.Logger
		wantErr bool
	}{
		{"valid config", Config{Rules: []string{"trend_cross"}}, &mockLogger{}, false},
		{"nil logger", Config{Rules: []string{"trend_cross"}}, nil, true},
		{"no rules", Config{}, &mockLogger{}, true},
		{"unknown rule", Config{Rules: []string{"martingale"}}, &mockLogger{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, tt.logger)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestParseRules(t *testing.T) {
	assert.Equal(t, []string{"trend_cross", "rsi_rebound"}, ParseRules(" Trend_Cross, rsi_rebound ,,"))
	assert.Nil(t, ParseRules(""))
}

func TestEvaluate_TrendCrossDefaults(t *testing.T) {
	s, err := New(Config{Rules: []string{"trend_cross"}, Thresholds: strategies.DefaultThresholds()}, &mockLogger{})
	require.NoError(t, err)

	tests := []struct {
		name      string
		ind       map[string]float64
		buy, sell bool
	}{
		{"uptrend with low RSI buys", map[string]float64{"ema_fast": 101, "ema_slow": 100, "rsi": 35}, true, false},
		{"uptrend with high RSI holds", map[string]float64{"ema_fast": 101, "ema_slow": 100, "rsi": 45}, false, false},
		{"downtrend with high RSI sells", map[string]float64{"ema_fast": 99, "ema_slow": 100, "rsi": 65}, false, true},
		{"RSI exactly at buy level holds", map[string]float64{"ema_fast": 101, "ema_slow": 100, "rsi": 40}, false, false},
		{"missing RSI never fires", map[string]float64{"ema_fast": 101, "ema_slow": 100}, false, false},
		{"neutral fallback never fires", domain.NeutralIndicators(), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := s.Evaluate(context.Background(), tick(100, tt.ind))
			assert.Equal(t, tt.buy, intent.Buy)
			assert.Equal(t, tt.sell, intent.Sell)
		})
	}
}

func TestEvaluate_ORsRuleFamilies(t *testing.T) {
	log := &mockLogger{}
	s, err := New(Config{
		Rules:      []string{"trend_cross", "band_breakout", "trend_cross"},
		Thresholds: strategies.DefaultThresholds(),
	}, log)
	require.NoError(t, err)
	assert.Equal(t, "trend_cross+band_breakout", s.Name())

	// trend_cross says buy, band_breakout says sell: both flags are raised.
	intent := s.Evaluate(context.Background(), tick(120, map[string]float64{
		"ema_fast": 101, "ema_slow": 100, "rsi": 30, "bb_upper": 110, "bb_lower": 90,
	}))
	assert.True(t, intent.Buy)
	assert.True(t, intent.Sell)
	assert.ElementsMatch(t, []string{"trend_cross:buy", "band_breakout:sell"}, intent.Fired)
	assert.Equal(t, []string{"Signal evaluated"}, log.debugMsgs)
}

func TestEvaluate_IsPure(t *testing.T) {
	s, err := New(Config{Rules: strategies.Names(), Thresholds: strategies.DefaultThresholds()}, &mockLogger{})
	require.NoError(t, err)

	tk := tick(95, map[string]float64{
		"ema_fast": 101, "ema_slow": 100, "rsi": 25, "rsi_prev": 20,
		"bb_lower": 96, "bb_upper": 110, "macd": 1, "macd_signal": 0.5, "trend_filter": 90,
	})
	first := s.Evaluate(context.Background(), tk)
	second := s.Evaluate(context.Background(), tk)
	assert.Equal(t, first, second)
	assert.Len(t, tk.Indicators, 9, "evaluation must not touch the tick")
}
