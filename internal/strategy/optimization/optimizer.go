// Package optimization sweeps strategy and risk parameters over backtest replays.
package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy"
	"paperTradingBot/internal/strategy/analytics"
	"paperTradingBot/internal/strategy/backtesting"
)

// Tunable parameter names.
const (
	ParamStopLossPct   = "stop_loss_pct"
	ParamTakeProfitPct = "take_profit_pct"
	ParamRiskFraction  = "risk_fraction"
	ParamCooldown      = "cooldown_seconds"
	ParamMaxHold       = "max_hold_seconds"
	ParamRSIBuyLevel   = "rsi_buy_level"
	ParamRSISellLevel  = "rsi_sell_level"
	ParamRSIOversold   = "rsi_oversold"
	ParamRSIOverbought = "rsi_overbought"
	ParamBandRSIMax    = "band_rsi_max"
)

// setters apply one parameter value to a run.
var setters = map[string]func(r *run, v float64){
	ParamStopLossPct: func(r *run, v float64) { r.bt.Service.Risk.StopLossPct = v },
	ParamTakeProfitPct: func(r *run, v float64) {
		r.bt.Service.Risk.TakeProfitPct = v
		r.bt.Service.Lifecycle.TakeProfitPct = decimal.NewFromFloat(v)
	},
	ParamRiskFraction: func(r *run, v float64) {
		r.bt.Service.Risk.RiskFractionPerTrade = v
		r.bt.Service.Lifecycle.RiskFraction = decimal.NewFromFloat(v)
		r.bt.Service.Grid.RiskFraction = decimal.NewFromFloat(v)
	},
	ParamCooldown: func(r *run, v float64) {
		d := time.Duration(v) * time.Second
		r.bt.Service.Risk.Cooldown = d
		r.bt.Service.Lifecycle.Cooldown = d
	},
	ParamMaxHold:       func(r *run, v float64) { r.bt.Service.Risk.MaxHold = time.Duration(v) * time.Second },
	ParamRSIBuyLevel:   func(r *run, v float64) { r.strat.Thresholds.RSIBuyLevel = v },
	ParamRSISellLevel:  func(r *run, v float64) { r.strat.Thresholds.RSISellLevel = v },
	ParamRSIOversold:   func(r *run, v float64) { r.strat.Thresholds.RSIOversold = v },
	ParamRSIOverbought: func(r *run, v float64) { r.strat.Thresholds.RSIOverbought = v },
	ParamBandRSIMax:    func(r *run, v float64) { r.strat.Thresholds.BandRSIMax = v },
}

type run struct {
	bt    backtesting.BacktestConfig
	strat strategy.Config
}

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the results of a parameter optimization
type OptimizationResult struct {
	Parameters map[string]float64
	Metrics    *analytics.PerformanceMetrics
	Score      float64
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Backtest        backtesting.BacktestConfig // Base replay settings
	Strategy        strategy.Config            // Base rule settings, ignored in grid mode
	Workers         int                        // Concurrent replays; defaults to 4
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
}

// Optimizer runs one independent backtest per parameter combination.
type Optimizer struct {
	config OptimizerConfig
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig) (*Optimizer, error) {
	if len(config.ParameterRanges) == 0 {
		return nil, fmt.Errorf("no parameter ranges to optimize: %w", ports.ErrConfigurationError)
	}
	for _, p := range config.ParameterRanges {
		if _, ok := setters[p.Name]; !ok {
			return nil, fmt.Errorf("unknown parameter %q: %w", p.Name, ports.ErrConfigurationError)
		}
		if p.Step <= 0 || p.Max < p.Min {
			return nil, fmt.Errorf("parameter %q needs min <= max and a positive step: %w", p.Name, ports.ErrConfigurationError)
		}
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config}, nil
}

// Optimize replays klines once per parameter combination and returns the
// results best score first. Combinations whose settings are invalid are
// logged and left out.
func (o *Optimizer) Optimize(ctx context.Context, klines []*domain.Kline, logger ports.Logger) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()

	jobs := make(chan map[string]float64)
	resultChan := make(chan OptimizationResult, len(combinations))
	var wg sync.WaitGroup

	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				res, err := o.evaluate(ctx, params, klines, logger)
				if err != nil {
					logger.Debug(ctx, "Parameter combination rejected", map[string]interface{}{"params": params, "error": err.Error()})
					continue
				}
				resultChan <- res
			}
		}()
	}

feed:
	for _, params := range combinations {
		select {
		case jobs <- params:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(resultChan)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimization interrupted: %w: %w", ports.ErrContextCanceled, err)
	}

	results := make([]OptimizationResult, 0, len(combinations))
	for result := range resultChan {
		results = append(results, result)
	}
	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, params map[string]float64, klines []*domain.Kline, logger ports.Logger) (OptimizationResult, error) {
	r := &run{bt: o.config.Backtest, strat: o.config.Strategy}
	r.strat.Rules = append([]string(nil), o.config.Strategy.Rules...)
	for name, v := range params {
		setters[name](r, v)
	}

	var evaluator ports.Evaluator
	if len(r.strat.Rules) > 0 {
		strat, err := strategy.New(r.strat, logger)
		if err != nil {
			return OptimizationResult{}, err
		}
		evaluator = strat
	}

	result, err := backtesting.Backtest(ctx, r.bt, evaluator, klines, logger)
	if err != nil {
		return OptimizationResult{}, err
	}
	return OptimizationResult{
		Parameters: params,
		Metrics:    result.Performance,
		Score:      o.config.ScoreFunction(result.Performance),
	}, nil
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	currentCombination := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for i := 0; i <= steps; i++ {
			value := param.Min + float64(i)*param.Step
			if param.IsInt {
				value = math.Round(value)
			}
			currentCombination[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts optimization results by score in descending order
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// DefaultScoreFunction rewards return and profit factor and penalizes drawdown.
// Runs without a closed trade score zero.
func DefaultScoreFunction(m *analytics.PerformanceMetrics) float64 {
	if m == nil || m.TotalTrades == 0 {
		return 0
	}
	score := 0.0
	score += m.ReturnPct * 0.4
	score += m.WinRate / 100 * 0.2
	score += math.Min(m.ProfitFactor, 5) * 0.2
	score -= m.MaxDrawdownPct * 0.2
	return score
}
