package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paperTradingBot/internal/app"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy"
	"paperTradingBot/internal/strategy/backtesting"
	"paperTradingBot/internal/strategy/optimization"
	"paperTradingBot/internal/utils"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep parameters over backtest replays",
	Long: `Optimize replays a kline CSV once per parameter combination and ranks the
runs by score. Each --param is name=min:max:step; integer parameters are rounded.

Parameters: stop_loss_pct, take_profit_pct, risk_fraction, cooldown_seconds,
max_hold_seconds, rsi_buy_level, rsi_sell_level, rsi_oversold, rsi_overbought,
band_rsi_max.

Example:
  tradectl optimize --csv data/BTCJPY_5m.csv --param take_profit_pct=1:3:0.5 --param stop_loss_pct=-1.5:-0.5:0.5`,
	RunE: runOptimize,
}

var (
	optCSVPath string
	optParams  []string
	optTop     int
	optWorkers int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optCSVPath, "csv", "", "path to kline CSV (required)")
	optimizeCmd.Flags().StringArrayVar(&optParams, "param", nil, "parameter range name=min:max:step (repeatable, required)")
	optimizeCmd.Flags().IntVar(&optTop, "top", 10, "number of results to print")
	optimizeCmd.Flags().IntVar(&optWorkers, "workers", 4, "concurrent replays")

	_ = optimizeCmd.MarkFlagRequired("csv")
	_ = optimizeCmd.MarkFlagRequired("param")
}

// parseRange reads name=min:max:step.
func parseRange(s string) (optimization.ParameterRange, error) {
	name, bounds, ok := strings.Cut(s, "=")
	parts := strings.Split(bounds, ":")
	if !ok || len(parts) != 3 {
		return optimization.ParameterRange{}, fmt.Errorf("parameter %q is not name=min:max:step: %w", s, ports.ErrInvalidRequest)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return optimization.ParameterRange{}, fmt.Errorf("parameter %q: %w: %w", s, ports.ErrInvalidRequest, err)
		}
		vals[i] = v
	}
	name = strings.TrimSpace(name)
	isInt := name == optimization.ParamCooldown || name == optimization.ParamMaxHold
	return optimization.ParameterRange{Name: name, Min: vals[0], Max: vals[1], Step: vals[2], IsInt: isInt}, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	ranges := make([]optimization.ParameterRange, 0, len(optParams))
	for _, p := range optParams {
		r, err := parseRange(p)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}

	klines, err := utils.ReadKlinesFromCSV(optCSVPath)
	if err != nil {
		return fmt.Errorf("read klines: %w", err)
	}

	var stratCfg strategy.Config
	if cfg.Mode != app.ModeGrid {
		stratCfg = cfg.StrategyConfig()
	}
	opt, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		ParameterRanges: ranges,
		Backtest: backtesting.BacktestConfig{
			Service:     cfg.ServiceConfig(),
			InitialCash: decimal.NewFromFloat(cfg.InitialCash),
			Indicators:  cfg.Indicators,
		},
		Strategy: stratCfg,
		Workers:  optWorkers,
	})
	if err != nil {
		return err
	}

	results, err := opt.Optimize(cmd.Context(), klines, log)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	w := cmd.OutOrStdout()
	printf(w, "%d runs over %d klines\n", len(results), len(klines))
	for i, r := range results {
		if i == optTop {
			break
		}
		names := make([]string, 0, len(r.Parameters))
		for name := range r.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		params := make([]string, 0, len(names))
		for _, name := range names {
			params = append(params, fmt.Sprintf("%s=%g", name, r.Parameters[name]))
		}
		printf(w, "#%-3d score=%.4f trades=%d win=%.1f%% pnl=%.6f dd=%.3f%% %s\n",
			i+1, r.Score, r.Metrics.TotalTrades, r.Metrics.WinRate, r.Metrics.TotalProfit, r.Metrics.MaxDrawdownPct, strings.Join(params, " "))
	}
	return nil
}
