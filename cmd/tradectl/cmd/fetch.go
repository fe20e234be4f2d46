package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"paperTradingBot/internal/adapters/binanceclient"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/utils"
)

var fetchKlinesCmd = &cobra.Command{
	Use:   "fetch-klines",
	Short: "Download klines from Binance into a CSV file",
	Long: `fetch-klines pages through the Binance spot klines endpoint and writes the
result in the CSV format read by backtest.

Example:
  tradectl fetch-klines --symbol BTCJPY --interval 5m --days 30`,
	Args: cobra.NoArgs,
	RunE: runFetchKlines,
}

var (
	fkSymbol   string
	fkInterval string
	fkDays     int
	fkOut      string
)

func init() {
	rootCmd.AddCommand(fetchKlinesCmd)

	fetchKlinesCmd.Flags().StringVar(&fkSymbol, "symbol", "", "trading pair; defaults to SYMBOL")
	fetchKlinesCmd.Flags().StringVar(&fkInterval, "interval", "", "kline interval; defaults to TIMEFRAME")
	fetchKlinesCmd.Flags().IntVar(&fkDays, "days", 7, "days of history to fetch")
	fetchKlinesCmd.Flags().StringVarP(&fkOut, "out", "o", "", "output CSV path (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
}

func runFetchKlines(cmd *cobra.Command, args []string) error {
	if fkDays < 1 {
		return fmt.Errorf("--days must be at least 1: %w", ports.ErrInvalidRequest)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	symbol := strings.ToUpper(fkSymbol)
	if symbol == "" {
		symbol = cfg.Symbol
	}
	interval := fkInterval
	if interval == "" {
		interval = cfg.Timeframe
	}

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("binance client: %w", err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -fkDays)
	printf(cmd.ErrOrStderr(), "Fetching klines for %s %s from %s to %s...\n", symbol, interval, start.Format(time.RFC3339), end.Format(time.RFC3339))

	klines, err := client.GetKlinesRange(cmd.Context(), symbol, interval, start, end)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}

	out := fkOut
	if out == "" {
		out = filepath.Join("data", fmt.Sprintf("%s_%s_%s_to_%s.csv", symbol, interval, start.Format("20060102"), end.Format("20060102")))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := utils.WriteKlinesToCSV(klines, out); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	printf(cmd.OutOrStdout(), "Saved %d klines to %s\n", len(klines), out)
	return nil
}
