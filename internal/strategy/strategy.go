package strategy

import (
	"context"
	"fmt"
	"strings"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/strategies"
)

// Config holds parameters for the signal evaluator.
type Config struct {
	Rules      []string // rule family names, evaluated together
	Thresholds strategies.Thresholds
}

// ParseRules splits a comma separated list of rule family names.
func ParseRules(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(strings.ToLower(part)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Strategy ORs the enabled rule families into one intent.
type Strategy struct {
	rules  []strategies.Rule
	logger ports.Logger
}

var _ ports.Evaluator = (*Strategy)(nil)

// New creates a new Strategy instance.
func New(cfg Config, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy: %w", ports.ErrConfigurationError)
	}
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("at least one rule family is required: %w", ports.ErrConfigurationError)
	}

	seen := make(map[string]bool, len(cfg.Rules))
	rules := make([]strategies.Rule, 0, len(cfg.Rules))
	for _, name := range cfg.Rules {
		if seen[name] {
			continue
		}
		seen[name] = true
		rule, err := strategies.New(name, cfg.Thresholds)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return &Strategy{rules: rules, logger: logger}, nil
}

// Name returns the enabled rule families joined with "+".
func (s *Strategy) Name() string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

// Evaluate asks every rule about the tick. Buy and Sell are each the OR of the
// rules; both may be true, the caller picks based on its position.
func (s *Strategy) Evaluate(ctx context.Context, tick domain.Tick) domain.Intent {
	var intent domain.Intent
	for _, r := range s.rules {
		if r.Buy(tick) {
			intent.Buy = true
			intent.Fired = append(intent.Fired, r.Name()+":buy")
		}
		if r.Sell(tick) {
			intent.Sell = true
			intent.Fired = append(intent.Fired, r.Name()+":sell")
		}
	}

	fields := map[string]interface{}{
		"price":   tick.Price,
		"buy":     intent.Buy,
		"sell":    intent.Sell,
		"neutral": tick.Neutral,
	}
	for name, v := range tick.Indicators {
		fields[name] = v
	}
	if len(intent.Fired) > 0 {
		fields["fired"] = strings.Join(intent.Fired, ",")
	}
	s.logger.Debug(ctx, "Signal evaluated", fields)
	return intent
}
