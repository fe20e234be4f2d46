package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/grid"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/lifecycle"
	"paperTradingBot/internal/metrics"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/risk"
)

// Mode selects the trading variant.
type Mode string

const (
	ModeSignal Mode = "signal"
	ModeGrid   Mode = "grid"
)

// Config holds the service parameters. It is immutable after construction.
type Config struct {
	Symbol       string
	Mode         Mode
	PollInterval time.Duration
	JournalTail  int // Entries printed after each tick; zero disables
	Risk         risk.RiskConfig
	Lifecycle    lifecycle.Config
	Grid         grid.Config
}

// Book is the ledger as seen by the service.
type Book interface {
	lifecycle.Book
	AssetQty() decimal.Decimal
	InitialCash() decimal.Decimal
	Snapshot(currentPrice decimal.Decimal) domain.BalanceSnapshot
}

// Deps are the collaborators of the service. Source is only needed by Start.
type Deps struct {
	Logger    ports.Logger
	Source    ports.SignalSource
	Evaluator ports.Evaluator
	Book      Book
	Journal   ports.TradeJournal
	Metrics   *metrics.Metrics
	Out       io.Writer // Journal tail output, defaults to os.Stdout
}

// TickResult describes what one tick did.
type TickResult struct {
	Exit     domain.ExitDecision
	Intent   domain.Intent
	Trades   []domain.TradeRecord
	Rejected error // Non-fatal reason the attempted trade was not applied
}

// Status is the read-only view exposed to the status endpoint.
type Status struct {
	Symbol      string                 `json:"symbol"`
	Mode        Mode                   `json:"mode"`
	Ticks       int                    `json:"ticks"`
	LastTick    time.Time              `json:"lastTick"`
	LastPrice   decimal.Decimal        `json:"lastPrice"`
	InitialCash decimal.Decimal        `json:"initialCash"`
	Balance     domain.BalanceSnapshot `json:"balance"`
	WinRatePct  float64                `json:"winRatePct"`
	Position    *domain.Position       `json:"position,omitempty"`
	GridLevels  []grid.Level           `json:"gridLevels,omitempty"`
}

// TradingService runs the per-tick pipeline: risk check, signal evaluation,
// lifecycle gate and ledger mutation. One tick is processed at a time.
type TradingService struct {
	cfg       Config
	logger    ports.Logger
	source    ports.SignalSource
	evaluator ports.Evaluator
	book      Book
	journal   ports.TradeJournal
	metrics   *metrics.Metrics
	out       io.Writer

	riskManager *risk.RiskManager
	lifecycle   *lifecycle.Lifecycle
	ladder      *grid.Ladder

	// State fields
	mu        sync.Mutex // Serializes ticks and guards the fields below
	ticks     int
	lastTick  time.Time
	lastPrice decimal.Decimal
}

// NewTradingService creates a new application service instance.
func NewTradingService(cfg Config, deps Deps) (*TradingService, error) {
	if deps.Logger == nil || deps.Book == nil || deps.Journal == nil || deps.Metrics == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService: %w", ports.ErrConfigurationError)
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrConfigurationError)
	}
	if cfg.JournalTail < 0 {
		return nil, fmt.Errorf("journal tail cannot be negative: %w", ports.ErrConfigurationError)
	}

	s := &TradingService{
		cfg:       cfg,
		logger:    deps.Logger,
		source:    deps.Source,
		evaluator: deps.Evaluator,
		book:      deps.Book,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		out:       deps.Out,
	}
	if s.out == nil {
		s.out = os.Stdout
	}

	switch cfg.Mode {
	case ModeSignal, "":
		s.cfg.Mode = ModeSignal
		if deps.Evaluator == nil {
			return nil, fmt.Errorf("signal mode needs an evaluator: %w", ports.ErrConfigurationError)
		}
		if err := cfg.Risk.Validate(); err != nil {
			return nil, err
		}
		if err := checkLifecycleAgrees(cfg.Risk, cfg.Lifecycle); err != nil {
			return nil, err
		}
		lc, err := lifecycle.New(cfg.Lifecycle, deps.Book)
		if err != nil {
			return nil, err
		}
		s.riskManager = risk.NewRiskManager(cfg.Risk)
		s.lifecycle = lc
	case ModeGrid:
		ladder, err := grid.New(cfg.Grid, deps.Book)
		if err != nil {
			return nil, err
		}
		s.ladder = ladder
	default:
		return nil, fmt.Errorf("unknown mode %q: %w", cfg.Mode, ports.ErrConfigurationError)
	}
	return s, nil
}

// Start runs the polling loop until ctx is canceled or SIGINT/SIGTERM arrives.
// A failed tick is logged and skipped; the loop never stops on its own.
func (s *TradingService) Start(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("signal source is required to start: %w", ports.ErrConfigurationError)
	}
	if s.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %w", ports.ErrConfigurationError)
	}
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"symbol":       s.cfg.Symbol,
		"mode":         string(s.cfg.Mode),
		"pollInterval": s.cfg.PollInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Trading Service stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce fetches one tick from the source, processes it and prints the journal tail.
func (s *TradingService) RunOnce(ctx context.Context) {
	tick, err := s.source.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		cause := "error"
		if errors.Is(err, ports.ErrUpstreamUnavailable) {
			cause = "upstream"
		}
		s.metrics.TicksSkipped.WithLabelValues(cause).Inc()
		s.logger.Warn(ctx, "Tick skipped", map[string]interface{}{"error": err.Error()})
		return
	}

	if _, err := s.ProcessTick(ctx, tick); err != nil {
		s.logger.Error(ctx, err, "Tick processing failed")
		return
	}
	s.printJournalTail(ctx)
}

// ProcessTick runs the pipeline for one tick. At most one signal-mode trade is
// applied; grid mode may fill several levels. Expected rejections are reported
// in the result, not as an error.
func (s *TradingService) ProcessTick(ctx context.Context, tick domain.Tick) (TickResult, error) {
	if tick.Price <= 0 {
		s.metrics.TicksSkipped.WithLabelValues("upstream").Inc()
		return TickResult{}, fmt.Errorf("tick price %v: %w", tick.Price, ports.ErrUpstreamUnavailable)
	}
	if tick.Time.IsZero() {
		tick.Time = time.Now()
	}
	price := decimal.NewFromFloat(tick.Price)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res TickResult
		err error
	)
	if s.cfg.Mode == ModeGrid {
		res = s.processGrid(ctx, price, tick.Time)
	} else {
		res, err = s.processSignal(ctx, tick, price)
	}

	s.ticks++
	s.lastTick = tick.Time
	s.lastPrice = price
	s.metrics.TicksProcessed.Inc()
	s.metrics.ObserveSnapshot(s.book.Snapshot(price), s.lifecycle != nil && s.lifecycle.Position() != nil)

	for _, rec := range res.Trades {
		s.record(ctx, rec)
	}
	return res, err
}

func (s *TradingService) processSignal(ctx context.Context, tick domain.Tick, price decimal.Decimal) (TickResult, error) {
	var res TickResult
	pos := s.lifecycle.Position()

	// Forced exits win over any signal on this tick.
	res.Exit = s.riskManager.Evaluate(pos, price, tick.Time)
	if res.Exit != domain.ExitNone {
		s.logger.Info(ctx, "Risk exit triggered", map[string]interface{}{
			"decision":   res.Exit.String(),
			"price":      tick.Price,
			"entryPrice": pos.EntryPrice.String(),
			"pnlPct":     risk.PnLPct(pos, price).StringFixed(4),
		})
		rec, err := s.lifecycle.Close(price, tick.Time, res.Exit.Reason())
		return s.settle(ctx, res, rec, err)
	}

	res.Intent = s.evaluator.Evaluate(ctx, tick)
	switch {
	case pos == nil && res.Intent.Buy:
		rec, err := s.lifecycle.Open(price, tick.Time, domain.ReasonSignal)
		if err == nil {
			s.logger.Debug(ctx, "Exit levels armed", map[string]interface{}{
				"stopLoss":   s.riskManager.GetStopLoss(price).StringFixed(2),
				"takeProfit": s.riskManager.GetTakeProfit(price).StringFixed(2),
			})
		}
		return s.settle(ctx, res, rec, err)
	case pos != nil && res.Intent.Sell:
		rec, err := s.lifecycle.Close(price, tick.Time, domain.ReasonSignal)
		return s.settle(ctx, res, rec, err)
	}
	return res, nil
}

// settle folds the outcome of one lifecycle call into res.
func (s *TradingService) settle(ctx context.Context, res TickResult, rec domain.TradeRecord, err error) (TickResult, error) {
	if err == nil {
		res.Trades = append(res.Trades, rec)
		return res, nil
	}
	if kind, ok := rejectionKind(err); ok {
		s.metrics.Rejections.WithLabelValues(kind).Inc()
		s.logger.Debug(ctx, "Trade not applied", map[string]interface{}{"kind": kind, "reason": err.Error()})
		res.Rejected = err
		return res, nil
	}
	return res, fmt.Errorf("apply trade: %w", err)
}

func (s *TradingService) processGrid(ctx context.Context, price decimal.Decimal, now time.Time) TickResult {
	out := s.ladder.Tick(price, now)
	if out.Recentered {
		lower, upper := s.ladder.Bounds()
		s.metrics.GridRecenters.Inc()
		s.logger.Info(ctx, "Grid band re-centered", map[string]interface{}{
			"price": price.String(),
			"lower": lower.String(),
			"upper": upper.String(),
		})
	}
	for _, err := range out.Rejected {
		if !grid.IsRejection(err) {
			s.logger.Error(ctx, err, "Grid level failed")
			continue
		}
		kind, _ := rejectionKind(err)
		s.metrics.Rejections.WithLabelValues(kind).Inc()
		s.logger.Debug(ctx, "Grid level not filled", map[string]interface{}{"reason": err.Error()})
	}

	res := TickResult{Trades: out.Fills}
	if len(out.Rejected) > 0 {
		res.Rejected = errors.Join(out.Rejected...)
	}
	return res
}

// record journals an applied trade. A journal failure never undoes the trade.
func (s *TradingService) record(ctx context.Context, rec domain.TradeRecord) {
	s.metrics.ObserveTrade(rec)
	s.logger.Info(ctx, "Trade applied", map[string]interface{}{
		"id":       rec.ID,
		"action":   string(rec.Action),
		"reason":   string(rec.Reason),
		"price":    rec.Price.String(),
		"quantity": rec.Quantity.String(),
		"fee":      rec.Fee.String(),
		"pnl":      rec.ProfitLoss.String(),
		"cash":     rec.Balance.Cash.String(),
	})
	if err := s.journal.Append(ctx, rec); err != nil {
		s.metrics.JournalErrors.Inc()
		s.logger.Error(ctx, err, "Failed to journal trade", map[string]interface{}{"id": rec.ID})
	}
}

func (s *TradingService) printJournalTail(ctx context.Context) {
	if s.cfg.JournalTail == 0 {
		return
	}
	recs, err := s.journal.LastN(ctx, s.cfg.JournalTail)
	if err != nil {
		s.logger.Warn(ctx, "Failed to read journal tail", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, rec := range recs {
		fmt.Fprintln(s.out, journal.Format(rec))
	}
}

// Status returns a consistent read-only view of the service state.
func (s *TradingService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.book.Snapshot(s.lastPrice)
	st := Status{
		Symbol:      s.cfg.Symbol,
		Mode:        s.cfg.Mode,
		Ticks:       s.ticks,
		LastTick:    s.lastTick,
		LastPrice:   s.lastPrice,
		InitialCash: s.book.InitialCash(),
		Balance:     snap,
		WinRatePct:  snap.WinRate(),
	}
	if s.lifecycle != nil {
		st.Position = s.lifecycle.Position()
	}
	if s.ladder != nil {
		st.GridLevels = s.ladder.Levels()
	}
	return st
}

// Journal returns the journal the service appends to.
func (s *TradingService) Journal() ports.TradeJournal {
	return s.journal
}

// checkLifecycleAgrees rejects a lifecycle whose trading parameters differ from
// the risk configuration they are derived from.
func checkLifecycleAgrees(rc risk.RiskConfig, lc lifecycle.Config) error {
	var mismatch []string
	if !decimal.NewFromFloat(rc.FeeRate).Equal(lc.FeeRate) {
		mismatch = append(mismatch, fmt.Sprintf("fee rate %v vs %s", rc.FeeRate, lc.FeeRate))
	}
	if rc.Cooldown != lc.Cooldown {
		mismatch = append(mismatch, fmt.Sprintf("cooldown %s vs %s", rc.Cooldown, lc.Cooldown))
	}
	switch lc.Sizing {
	case lifecycle.SizeFraction, "":
		if !decimal.NewFromFloat(rc.RiskFractionPerTrade).Equal(lc.RiskFraction) {
			mismatch = append(mismatch, fmt.Sprintf("risk fraction %v vs %s", rc.RiskFractionPerTrade, lc.RiskFraction))
		}
	case lifecycle.SizeTargetGain:
		if !decimal.NewFromFloat(rc.TakeProfitPct).Equal(lc.TakeProfitPct) {
			mismatch = append(mismatch, fmt.Sprintf("take profit %v vs %s", rc.TakeProfitPct, lc.TakeProfitPct))
		}
	}
	if len(mismatch) > 0 {
		return fmt.Errorf("risk and lifecycle settings disagree (%s): %w", strings.Join(mismatch, ", "), ports.ErrConfigurationError)
	}
	return nil
}

func rejectionKind(err error) (string, bool) {
	switch {
	case errors.Is(err, ports.ErrCooldownActive):
		return "cooldown", true
	case errors.Is(err, ports.ErrInsufficientFunds):
		return "insufficient_funds", true
	case errors.Is(err, ports.ErrInsufficientAsset):
		return "insufficient_asset", true
	case errors.Is(err, ports.ErrPositionOpen):
		return "position_open", true
	case errors.Is(err, ports.ErrNoPosition):
		return "no_position", true
	case errors.Is(err, ports.ErrInvalidRequest):
		return "invalid_order", true
	}
	return "other", false
}
