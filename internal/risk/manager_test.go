package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

func testConfig() RiskConfig {
	return RiskConfig{
		RiskFractionPerTrade: 0.1,
		StopLossPct:          -0.8,
		TakeProfitPct:        1.5,
		FeeRate:              0.001,
		Cooldown:             30 * time.Second,
		MaxHold:              10 * time.Minute,
	}
}

func TestRiskManager_Evaluate(t *testing.T) {
	opened := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	position := &domain.Position{
		EntryPrice: decimal.NewFromInt(100),
		Quantity:   decimal.NewFromInt(1),
		OpenedAt:   opened,
	}

	tests := []struct {
		name     string
		position *domain.Position
		price    string
		now      time.Time
		want     domain.ExitDecision
	}{
		{name: "no position", position: nil, price: "50", now: opened, want: domain.ExitNone},
		{name: "inside band", position: position, price: "100.5", now: opened.Add(time.Minute), want: domain.ExitNone},
		{name: "exactly at stop loss", position: position, price: "99.2", now: opened, want: domain.ExitStopLoss},
		{name: "below stop loss", position: position, price: "95", now: opened, want: domain.ExitStopLoss},
		{name: "exactly at take profit", position: position, price: "101.5", now: opened, want: domain.ExitTakeProfit},
		{name: "above take profit", position: position, price: "120", now: opened, want: domain.ExitTakeProfit},
		{name: "held exactly max hold", position: position, price: "100", now: opened.Add(10 * time.Minute), want: domain.ExitNone},
		{name: "held past max hold", position: position, price: "100", now: opened.Add(10*time.Minute + time.Second), want: domain.ExitTimeExit},
		{name: "stop loss beats time exit", position: position, price: "99", now: opened.Add(time.Hour), want: domain.ExitStopLoss},
		{name: "take profit beats time exit", position: position, price: "102", now: opened.Add(time.Hour), want: domain.ExitTakeProfit},
	}

	manager := NewRiskManager(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := manager.Evaluate(tt.position, decimal.RequireFromString(tt.price), tt.now)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestRiskManager_StopLossWinsOnOverlappingThresholds(t *testing.T) {
	// Both thresholds match a -0.8% move here; the stop-loss must still be chosen.
	manager := NewRiskManager(RiskConfig{StopLossPct: -0.8, TakeProfitPct: -0.9})
	position := &domain.Position{EntryPrice: decimal.NewFromInt(100), OpenedAt: time.Now()}

	assert.Equal(t, domain.ExitStopLoss, manager.Evaluate(position, decimal.RequireFromString("99.2"), time.Now()))
}

func TestRiskManager_TimeExitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHold = 0
	manager := NewRiskManager(cfg)
	position := &domain.Position{EntryPrice: decimal.NewFromInt(100), OpenedAt: time.Now().Add(-24 * time.Hour)}

	assert.Equal(t, domain.ExitNone, manager.Evaluate(position, decimal.NewFromInt(100), time.Now()))
}

func TestRiskManager_ProtectiveLevels(t *testing.T) {
	manager := NewRiskManager(testConfig())
	entry := decimal.NewFromInt(10000)

	assert.True(t, decimal.NewFromInt(9920).Equal(manager.GetStopLoss(entry)))
	assert.True(t, decimal.NewFromInt(10150).Equal(manager.GetTakeProfit(entry)))
}

func TestRiskConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RiskConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*RiskConfig) {}},
		{name: "zero risk fraction", mutate: func(c *RiskConfig) { c.RiskFractionPerTrade = 0 }, wantErr: true},
		{name: "risk fraction above one", mutate: func(c *RiskConfig) { c.RiskFractionPerTrade = 1.5 }, wantErr: true},
		{name: "positive stop loss", mutate: func(c *RiskConfig) { c.StopLossPct = 0.8 }, wantErr: true},
		{name: "negative take profit", mutate: func(c *RiskConfig) { c.TakeProfitPct = -1 }, wantErr: true},
		{name: "fee rate of one", mutate: func(c *RiskConfig) { c.FeeRate = 1 }, wantErr: true},
		{name: "negative cooldown", mutate: func(c *RiskConfig) { c.Cooldown = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
