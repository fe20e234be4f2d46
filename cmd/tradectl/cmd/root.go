// Package cmd implements the tradectl operator commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"paperTradingBot/config"
	"paperTradingBot/internal/adapters/logger"
	"paperTradingBot/internal/ports"
)

var rootCmd = &cobra.Command{
	Use:   "tradectl",
	Short: "Operator tools for the paper trader",
	Long: `tradectl inspects the trade journal, replays historical klines through the
trading pipeline and downloads klines from Binance.

Settings are read from the same environment, .env and CONFIG_FILE sources as the
trader itself; flags override them.`,
	SilenceUsage: true,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
}

// loadConfig reads the trader configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so command output stays clean on stdout.
func newLogger(cmd *cobra.Command) ports.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), logger.ParseLevel(logLevel), logger.FormatConsole)
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
