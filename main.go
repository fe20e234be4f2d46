package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/config"
	"paperTradingBot/internal/adapters/binanceclient"
	"paperTradingBot/internal/adapters/journalstore"
	"paperTradingBot/internal/adapters/logger"
	"paperTradingBot/internal/app"
	"paperTradingBot/internal/feed"
	"paperTradingBot/internal/ledger"
	"paperTradingBot/internal/metrics"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/status"
	"paperTradingBot/internal/strategy"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Trade Journal
	tradeJournal, err := journalstore.Open(cfg.JournalConfig(appLogger))
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to open trade journal")
		log.Fatalf("FATAL: Failed to open trade journal: %v", err)
	}
	defer func() {
		if err := tradeJournal.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade journal")
		}
	}()
	appLogger.Info(ctx, "Trade journal initialized", map[string]interface{}{"driver": cfg.JournalDriver})

	// 4. Initialize Market Data Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		// Upstream outages are recoverable; ticks are skipped until it answers.
		appLogger.Warn(ctx, "Binance ping failed at startup", map[string]interface{}{"error": err.Error()})
	} else if skew, err := binanceClient.ClockSkew(ctx); err == nil && skew.Abs() > time.Second {
		// Tick times come from the local clock, kline times from the exchange.
		appLogger.Warn(ctx, "Local clock differs from exchange time", map[string]interface{}{"skew": skew.String()})
	}

	signalFeed, err := feed.New(feed.Config{
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
		Indicators: cfg.Indicators,
	}, binanceClient, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal feed")
		log.Fatalf("FATAL: Failed to initialize signal feed: %v", err)
	}

	// 5. Initialize Strategy
	var evaluator ports.Evaluator
	if cfg.Mode == app.ModeSignal {
		strat, err := strategy.New(cfg.StrategyConfig(), appLogger)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize trading strategy")
			log.Fatalf("FATAL: Failed to initialize trading strategy: %v", err)
		}
		evaluator = strat
		appLogger.Info(ctx, "Trading strategy initialized", map[string]interface{}{"rules": strat.Name()})
	}

	// 6. Initialize Ledger and Application Service
	book, err := ledger.New(cfg.Symbol, decimal.NewFromFloat(cfg.InitialCash))
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ledger")
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}
	appMetrics := metrics.New("")

	tradingService, err := app.NewTradingService(cfg.ServiceConfig(), app.Deps{
		Logger:    appLogger,
		Source:    signalFeed,
		Evaluator: evaluator,
		Book:      book,
		Journal:   tradeJournal,
		Metrics:   appMetrics,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(ctx, "Trading service initialized", map[string]interface{}{
		"symbol":      cfg.Symbol,
		"mode":        string(cfg.Mode),
		"initialCash": cfg.InitialCash,
	})

	// 7. Start the Status Endpoint
	statusServer, err := status.New(status.Config{
		Addr:        cfg.StatusAddr,
		JournalTail: cfg.JournalTail,
	}, tradingService, appMetrics.Handler(), appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize status server")
		log.Fatalf("FATAL: Failed to initialize status server: %v", err)
	}
	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		if err := statusServer.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "Status server stopped with error")
		}
	}()

	// 8. Start the Service
	if err := tradingService.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
		cancel()
		<-statusDone
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	cancel()
	<-statusDone
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
