package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/grid"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ledger"
	"paperTradingBot/internal/lifecycle"
	"paperTradingBot/internal/metrics"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/risk"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockEvaluator struct {
	intent domain.Intent
	calls  int
}

func (m *mockEvaluator) Evaluate(ctx context.Context, tick domain.Tick) domain.Intent {
	m.calls++
	return m.intent
}

func (m *mockEvaluator) Name() string { return "mock" }

type mockSource struct {
	mu    sync.Mutex
	ticks []domain.Tick
	err   error
	calls int
}

func (m *mockSource) Next(ctx context.Context) (domain.Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.Tick{}, m.err
	}
	if len(m.ticks) == 0 {
		return domain.Tick{Time: time.Now(), Price: 100}, nil
	}
	t := m.ticks[0]
	m.ticks = m.ticks[1:]
	return t, nil
}

type failingJournal struct{}

func (failingJournal) Append(ctx context.Context, rec domain.TradeRecord) error {
	return ports.ErrWriteFailed
}
func (failingJournal) LastN(ctx context.Context, n int) ([]domain.TradeRecord, error) {
	return nil, ports.ErrQueryFailed
}
func (failingJournal) Close() error { return nil }

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signalConfig(cooldown time.Duration) Config {
	return Config{
		Symbol:       "BTCJPY",
		Mode:         ModeSignal,
		PollInterval: 10 * time.Millisecond,
		Risk: risk.RiskConfig{
			RiskFractionPerTrade: 0.1,
			StopLossPct:          -0.8,
			TakeProfitPct:        1.5,
			FeeRate:              0.001,
			Cooldown:             cooldown,
		},
		Lifecycle: lifecycle.Config{
			RiskFraction: decimal.RequireFromString("0.1"),
			FeeRate:      decimal.RequireFromString("0.001"),
			Cooldown:     cooldown,
		},
	}
}

type fixture struct {
	svc     *TradingService
	book    *ledger.Ledger
	journal *journal.Memory
	metrics *metrics.Metrics
	eval    *mockEvaluator
	logger  *mockLogger
	out     *bytes.Buffer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	book, err := ledger.New(cfg.Symbol, decimal.NewFromInt(100))
	require.NoError(t, err)
	f := &fixture{
		book:    book,
		journal: journal.NewMemory(),
		metrics: metrics.New("test"),
		eval:    &mockEvaluator{},
		logger:  &mockLogger{},
		out:     &bytes.Buffer{},
	}
	f.svc, err = NewTradingService(cfg, Deps{
		Logger:    f.logger,
		Evaluator: f.eval,
		Book:      book,
		Journal:   f.journal,
		Metrics:   f.metrics,
		Out:       f.out,
	})
	require.NoError(t, err)
	return f
}

func tick(at time.Time, price float64) domain.Tick {
	return domain.Tick{Time: at, Price: price}
}

func TestProcessTick_BuyWhenFlat(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.eval.intent = domain.Intent{Buy: true}

	res, err := f.svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Buy, res.Trades[0].Action)
	assert.True(t, res.Trades[0].Quantity.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, f.book.Cash().Equal(decimal.RequireFromString("89.99")), "cash %s", f.book.Cash())

	recs := f.journal.All()
	require.Len(t, recs, 1)
	assert.Equal(t, res.Trades[0].ID, recs[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TicksProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PositionOpen))
}

func TestProcessTick_BuyTakesPrecedenceWhenFlat(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.eval.intent = domain.Intent{Buy: true, Sell: true}

	res, err := f.svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Buy, res.Trades[0].Action)

	// With a position open the same intent closes it.
	res, err = f.svc.ProcessTick(context.Background(), tick(t0.Add(time.Minute), 100))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Sell, res.Trades[0].Action)
	assert.Equal(t, domain.ReasonSignal, res.Trades[0].Reason)
}

func TestProcessTick_SellWithoutPositionIsIgnored(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.eval.intent = domain.Intent{Sell: true}

	res, err := f.svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.NoError(t, res.Rejected)
	assert.Empty(t, f.journal.All())
}

func TestProcessTick_Cooldown(t *testing.T) {
	f := newFixture(t, signalConfig(10*time.Minute))
	ctx := context.Background()

	f.eval.intent = domain.Intent{Buy: true}
	_, err := f.svc.ProcessTick(ctx, tick(t0, 100))
	require.NoError(t, err)

	f.eval.intent = domain.Intent{Sell: true}
	res, err := f.svc.ProcessTick(ctx, tick(t0.Add(time.Minute), 100.5))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.ErrorIs(t, res.Rejected, ports.ErrCooldownActive)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejections.WithLabelValues("cooldown")))

	res, err = f.svc.ProcessTick(ctx, tick(t0.Add(10*time.Minute), 100.5))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Sell, res.Trades[0].Action)
	assert.Len(t, f.journal.All(), 2)
}

func TestProcessTick_ForcedExitWinsOverSignal(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	ctx := context.Background()

	f.eval.intent = domain.Intent{Buy: true}
	_, err := f.svc.ProcessTick(ctx, tick(t0, 100))
	require.NoError(t, err)
	calls := f.eval.calls

	res, err := f.svc.ProcessTick(ctx, tick(t0.Add(time.Minute), 99))
	require.NoError(t, err)
	assert.Equal(t, domain.ExitStopLoss, res.Exit)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ReasonStopLoss, res.Trades[0].Reason)
	assert.Equal(t, calls, f.eval.calls, "evaluator must not run on a forced-exit tick")
	assert.Nil(t, f.svc.Status().Position)
}

func TestProcessTick_ForcedExitDuringCooldownRetries(t *testing.T) {
	f := newFixture(t, signalConfig(5*time.Minute))
	ctx := context.Background()

	f.eval.intent = domain.Intent{Buy: true}
	_, err := f.svc.ProcessTick(ctx, tick(t0, 100))
	require.NoError(t, err)

	res, err := f.svc.ProcessTick(ctx, tick(t0.Add(time.Minute), 102))
	require.NoError(t, err)
	assert.Equal(t, domain.ExitTakeProfit, res.Exit)
	assert.ErrorIs(t, res.Rejected, ports.ErrCooldownActive)
	assert.NotNil(t, f.svc.Status().Position)

	res, err = f.svc.ProcessTick(ctx, tick(t0.Add(6*time.Minute), 102))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ReasonTakeProfit, res.Trades[0].Reason)
}

func TestProcessTick_JournalFailureKeepsTrade(t *testing.T) {
	book, err := ledger.New("BTCJPY", decimal.NewFromInt(100))
	require.NoError(t, err)
	m := metrics.New("test")
	log := &mockLogger{}
	svc, err := NewTradingService(signalConfig(0), Deps{
		Logger:    log,
		Evaluator: &mockEvaluator{intent: domain.Intent{Buy: true}},
		Book:      book,
		Journal:   failingJournal{},
		Metrics:   m,
	})
	require.NoError(t, err)

	res, err := svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, book.AssetQty().IsPositive())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JournalErrors))
	assert.Contains(t, log.errorMsgs, "Failed to journal trade")
}

func TestProcessTick_RejectsBadPrice(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	_, err := f.svc.ProcessTick(context.Background(), tick(t0, 0))
	assert.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.TicksProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TicksSkipped.WithLabelValues("upstream")))
}

func TestProcessTick_GridMode(t *testing.T) {
	cfg := Config{
		Symbol: "BTCJPY",
		Mode:   ModeGrid,
		Grid: grid.Config{
			Lower:        decimal.NewFromInt(100),
			Upper:        decimal.NewFromInt(110),
			Levels:       10,
			RiskFraction: decimal.RequireFromString("0.1"),
			FeeRate:      decimal.RequireFromString("0.001"),
		},
	}
	f := newFixture(t, cfg)
	ctx := context.Background()

	// Nothing held yet, so the sell level at 105 is rejected and stays armed.
	res, err := f.svc.ProcessTick(ctx, tick(t0, 105))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.ErrorIs(t, res.Rejected, ports.ErrInsufficientAsset)

	res, err = f.svc.ProcessTick(ctx, tick(t0.Add(time.Second), 103))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.True(t, res.Trades[0].Price.Equal(decimal.NewFromInt(103)))
	assert.True(t, res.Trades[1].Price.Equal(decimal.NewFromInt(104)))
	assert.Len(t, f.journal.All(), 2)

	res, err = f.svc.ProcessTick(ctx, tick(t0.Add(2*time.Second), 120))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GridRecenters))

	st := f.svc.Status()
	assert.Equal(t, ModeGrid, st.Mode)
	assert.NotEmpty(t, st.GridLevels)
	assert.Nil(t, st.Position)
}

func TestRunOnce_PrintsJournalTail(t *testing.T) {
	cfg := signalConfig(0)
	cfg.JournalTail = 5
	f := newFixture(t, cfg)
	f.eval.intent = domain.Intent{Buy: true}
	f.svc.source = &mockSource{ticks: []domain.Tick{tick(t0, 100)}}

	f.svc.RunOnce(context.Background())

	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "action=BUY")
}

func TestRunOnce_SkipsUpstreamFailure(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.svc.source = &mockSource{err: errors.New("decode failure")}
	f.svc.RunOnce(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TicksSkipped.WithLabelValues("error")))

	f.svc.source = &mockSource{err: ports.ErrUpstreamUnavailable}
	f.svc.RunOnce(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TicksSkipped.WithLabelValues("upstream")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.TicksProcessed))
	assert.Len(t, f.logger.warnMsgs, 2)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	src := &mockSource{}
	f.svc.source = src

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, f.svc.Start(ctx))

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.GreaterOrEqual(t, src.calls, 1)
	assert.Contains(t, f.logger.infoMsgs, "Trading Service stopped.")
}

func TestStart_RequiresSource(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	assert.ErrorIs(t, f.svc.Start(context.Background()), ports.ErrConfigurationError)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.eval.intent = domain.Intent{Buy: true}
	_, err := f.svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)

	st := f.svc.Status()
	assert.Equal(t, "BTCJPY", st.Symbol)
	assert.Equal(t, 1, st.Ticks)
	assert.Equal(t, t0, st.LastTick)
	assert.True(t, st.LastPrice.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, st.Position)
	assert.True(t, st.Position.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, st.Balance.Cash.Equal(decimal.RequireFromString("89.99")))
	assert.True(t, st.InitialCash.Equal(decimal.NewFromInt(100)))
	assert.Same(t, f.journal, f.svc.Journal())
}

func TestStatus_JSONUsesCamelCase(t *testing.T) {
	f := newFixture(t, signalConfig(0))
	f.eval.intent = domain.Intent{Buy: true}
	_, err := f.svc.ProcessTick(context.Background(), tick(t0, 100))
	require.NoError(t, err)

	raw, err := json.Marshal(f.svc.Status())
	require.NoError(t, err)

	var out struct {
		InitialCash string                 `json:"initialCash"`
		Position    map[string]interface{} `json:"position"`
		Balance     map[string]interface{} `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "100", out.InitialCash)
	assert.Contains(t, out.Position, "entryPrice")
	assert.Contains(t, out.Position, "openedAt")
	assert.NotContains(t, out.Position, "EntryPrice")
	assert.Contains(t, out.Balance, "cash")
	assert.Contains(t, out.Balance, "maxDrawdownPct")
}

func TestNewTradingService_Validation(t *testing.T) {
	book, err := ledger.New("BTCJPY", decimal.NewFromInt(100))
	require.NoError(t, err)
	deps := Deps{Logger: &mockLogger{}, Evaluator: &mockEvaluator{}, Book: book, Journal: journal.NewMemory(), Metrics: metrics.New("test")}

	_, err = NewTradingService(signalConfig(0), Deps{Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	cfg := signalConfig(0)
	cfg.Mode = "scalp"
	_, err = NewTradingService(cfg, deps)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	cfg = signalConfig(0)
	cfg.Risk.StopLossPct = 1
	_, err = NewTradingService(cfg, deps)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	noEval := deps
	noEval.Evaluator = nil
	_, err = NewTradingService(signalConfig(0), noEval)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestNewTradingService_RiskAndLifecycleMustAgree(t *testing.T) {
	book, err := ledger.New("BTCJPY", decimal.NewFromInt(100))
	require.NoError(t, err)
	deps := Deps{Logger: &mockLogger{}, Evaluator: &mockEvaluator{}, Book: book, Journal: journal.NewMemory(), Metrics: metrics.New("test")}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fee rate", func(c *Config) { c.Lifecycle.FeeRate = decimal.RequireFromString("0.002") }},
		{"risk fraction", func(c *Config) { c.Risk.RiskFractionPerTrade = 0.2 }},
		{"cooldown", func(c *Config) { c.Lifecycle.Cooldown = time.Minute }},
		{"take profit with target gain sizing", func(c *Config) {
			c.Lifecycle.Sizing = lifecycle.SizeTargetGain
			c.Lifecycle.TargetGain = decimal.NewFromInt(1)
			c.Lifecycle.TakeProfitPct = decimal.NewFromInt(3)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := signalConfig(30 * time.Second)
			tt.mutate(&cfg)
			_, err := NewTradingService(cfg, deps)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}

	_, err = NewTradingService(signalConfig(30*time.Second), deps)
	assert.NoError(t, err)
}
