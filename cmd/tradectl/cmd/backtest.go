package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paperTradingBot/internal/app"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy"
	"paperTradingBot/internal/strategy/backtesting"
	"paperTradingBot/internal/utils"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical klines through the trading pipeline",
	Long: `Backtest replays a kline CSV (as written by fetch-klines) through a fresh
ledger using the configured mode, rules and risk settings. Each kline is one
tick priced at its close.

Example:
  tradectl backtest --csv data/BTCJPY_5m.csv --rules trend_cross,rsi_rebound`,
	RunE: runBacktest,
}

var (
	btCSVPath string
	btRules   string
	btMode    string
	btCash    float64
	btTrades  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btCSVPath, "csv", "", "path to kline CSV (required)")
	backtestCmd.Flags().StringVar(&btRules, "rules", "", "comma separated rule families; defaults to STRATEGY_RULES")
	backtestCmd.Flags().StringVar(&btMode, "mode", "", "signal or grid; defaults to MODE")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 0, "starting cash; defaults to INITIAL_CASH")
	backtestCmd.Flags().BoolVar(&btTrades, "trades", false, "print every journal entry")

	_ = backtestCmd.MarkFlagRequired("csv")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	klines, err := utils.ReadKlinesFromCSV(btCSVPath)
	if err != nil {
		return fmt.Errorf("read klines: %w", err)
	}

	svcCfg := cfg.ServiceConfig()
	if btMode != "" {
		svcCfg.Mode = app.Mode(btMode)
	}
	cash := cfg.InitialCash
	if btCash > 0 {
		cash = btCash
	}

	var evaluator ports.Evaluator
	if svcCfg.Mode != app.ModeGrid {
		stratCfg := cfg.StrategyConfig()
		if btRules != "" {
			stratCfg.Rules = strategy.ParseRules(btRules)
		}
		strat, err := strategy.New(stratCfg, log)
		if err != nil {
			return fmt.Errorf("build strategy: %w", err)
		}
		evaluator = strat
	}

	res, err := backtesting.Backtest(cmd.Context(), backtesting.BacktestConfig{
		Service:     svcCfg,
		InitialCash: decimal.NewFromFloat(cash),
		Indicators:  cfg.Indicators,
	}, evaluator, klines, log)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	w := cmd.OutOrStdout()
	if btTrades {
		for _, rec := range res.Records {
			printf(w, "%s\n", journal.Format(rec))
		}
	}
	printf(w, "Replayed %d of %d klines (%s, mode %s)\n", res.Ticks, len(klines), svcCfg.Symbol, svcCfg.Mode)
	printf(w, "Ending value:    %s (cash %s, asset %s)\n", res.Final.TotalValue.StringFixed(8), res.Final.Cash.StringFixed(8), res.Final.AssetQty.String())
	if res.OpenAtEnd {
		printf(w, "Position still open at end of data\n")
	}
	printPerformance(cmd, res.Performance)
	return nil
}
