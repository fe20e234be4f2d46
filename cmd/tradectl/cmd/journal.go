package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"paperTradingBot/internal/adapters/journalstore"
	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/strategy/analytics"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query the append-only trade journal written by the trader.

Subcommands:
  tail   - Print the most recent entries, oldest first
  stats  - Summarize the most recent entries

Examples:
  tradectl journal tail -n 10
  tradectl journal stats --driver sqlite --db ./data/journal.db`,
}

var journalTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent journal entries",
	Args:  cobra.NoArgs,
	RunE:  runJournalTail,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the most recent journal entries",
	Args:  cobra.NoArgs,
	RunE:  runJournalStats,
}

var (
	journalDriver  string
	journalPath    string
	journalDBPath  string
	tailEntries    int
	statsEntries   int
	journalCash    float64
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTailCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalCmd.PersistentFlags().StringVar(&journalDriver, "driver", "", "journal driver (file, sqlite); defaults to JOURNAL_DRIVER")
	journalCmd.PersistentFlags().StringVar(&journalPath, "path", "", "file journal path; defaults to JOURNAL_PATH")
	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "SQLite journal path; defaults to DB_PATH")

	journalTailCmd.Flags().IntVarP(&tailEntries, "lines", "n", 3, "number of entries to print")
	journalStatsCmd.Flags().IntVarP(&statsEntries, "lines", "n", 1000, "number of entries to summarize")
	journalStatsCmd.Flags().Float64Var(&journalCash, "cash", 0, "starting cash; defaults to INITIAL_CASH")
}

func openJournal(cmd *cobra.Command) (ports.TradeJournal, float64, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	jc := cfg.JournalConfig(newLogger(cmd))
	if journalDriver != "" {
		jc.Driver = journalDriver
	}
	if journalPath != "" {
		jc.Path = journalPath
	}
	if journalDBPath != "" {
		jc.DBPath = journalDBPath
	}
	j, err := journalstore.Open(jc)
	if err != nil {
		return nil, 0, fmt.Errorf("open journal: %w", err)
	}
	return j, cfg.InitialCash, nil
}

func runJournalTail(cmd *cobra.Command, args []string) error {
	if tailEntries < 1 {
		return fmt.Errorf("--lines must be at least 1: %w", ports.ErrInvalidRequest)
	}
	j, _, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.LastN(cmd.Context(), tailEntries)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	for _, rec := range recs {
		printf(cmd.OutOrStdout(), "%s\n", journal.Format(rec))
	}
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	if statsEntries < 1 {
		return fmt.Errorf("--lines must be at least 1: %w", ports.ErrInvalidRequest)
	}
	j, initialCash, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	if journalCash > 0 {
		initialCash = journalCash
	}
	recs, err := j.LastN(cmd.Context(), statsEntries)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	printPerformance(cmd, analytics.AnalyzePerformance(recs, initialCash))
	return nil
}

func printPerformance(cmd *cobra.Command, m *analytics.PerformanceMetrics) {
	w := cmd.OutOrStdout()
	printf(w, "Trades:          %d (wins %d, losses %d)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	printf(w, "Win rate:        %.2f%%\n", m.WinRate)
	printf(w, "Realized P&L:    %.8f\n", m.TotalProfit)
	printf(w, "Fees paid:       %.8f\n", m.TotalFees)
	printf(w, "Profit factor:   %.4f\n", m.ProfitFactor)
	printf(w, "Expectancy:      %.8f\n", m.Expectancy)
	printf(w, "Max drawdown:    %.4f%%\n", m.MaxDrawdownPct)
	printf(w, "Final balance:   %.8f (%.4f%%)\n", m.FinalBalance, m.ReturnPct)
	printf(w, "Average hold:    %s\n", m.AverageHold)
	reasons := make([]string, 0, len(m.ExitsByReason))
	for reason := range m.ExitsByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		printf(w, "Exits %-12s %d\n", reason+":", m.ExitsByReason[domain.Reason(reason)])
	}
}
