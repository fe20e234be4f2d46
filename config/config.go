package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"paperTradingBot/internal/adapters/journalstore"
	"paperTradingBot/internal/adapters/logger"
	"paperTradingBot/internal/app"
	"paperTradingBot/internal/grid"
	"paperTradingBot/internal/lifecycle"
	"paperTradingBot/internal/ports"
	"paperTradingBot/internal/risk"
	"paperTradingBot/internal/strategy"
	"paperTradingBot/internal/strategy/indicators"
	"paperTradingBot/internal/strategy/strategies"
)

// Config holds all application configuration.
type Config struct {
	// Binance API (public endpoints only, keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Market
	Symbol       string
	Timeframe    string
	PollInterval time.Duration

	// Ledger and risk
	InitialCash   float64
	RiskFraction  float64
	StopLossPct   float64 // Percent, negative (e.g. -0.8)
	TakeProfitPct float64 // Percent, positive (e.g. 1.5)
	FeeRate       float64
	Cooldown      time.Duration
	MaxHold       time.Duration // Zero disables the time exit
	SizingMode    lifecycle.SizingMode
	TargetGain    float64

	// Strategy
	Mode       app.Mode
	Rules      []string
	Thresholds strategies.Thresholds
	Indicators indicators.SetConfig

	// Grid
	GridLower  float64
	GridUpper  float64
	GridLevels int

	// Journal
	JournalDriver string
	JournalPath   string
	DBPath        string
	JournalTail   int

	// Status endpoint
	StatusAddr string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format
}

// loader resolves a key from the process environment first, then from the
// optional YAML overlay.
type loader struct {
	overlay map[string]string
	errs    []error
}

// LoadConfig loads configuration from environment variables (.env file),
// overlaid by the YAML file named in CONFIG_FILE when set.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	l := &loader{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return nil, err
		}
		l.overlay = overlay
	}
	return l.load()
}

func readOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w: %w", path, ports.ErrConfigurationError, err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w: %w", path, ports.ErrConfigurationError, err)
	}
	overlay := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		overlay[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return overlay, nil
}

func (l *loader) load() (*Config, error) {
	cfg := &Config{}

	// Binance API
	cfg.APIKey = l.getString("BINANCE_API_KEY", "")
	cfg.SecretKey = l.getString("BINANCE_API_SECRET", "")
	cfg.IsTestnet = l.getBool("IS_TESTNET", false)

	// Market
	cfg.Symbol = strings.ToUpper(l.getString("SYMBOL", "BTCJPY"))
	cfg.Timeframe = l.getString("TIMEFRAME", "5m")
	cfg.PollInterval = l.getSeconds("POLL_INTERVAL_SECONDS", 15)
	if cfg.PollInterval <= 0 {
		l.fail("POLL_INTERVAL_SECONDS must be positive")
	}

	// Ledger and risk
	cfg.InitialCash = l.getFloat("INITIAL_CASH", 100)
	if cfg.InitialCash <= 0 {
		l.fail("INITIAL_CASH must be positive")
	}
	cfg.RiskFraction = l.getFloat("RISK_FRACTION", 0.10)
	cfg.StopLossPct = l.getFloat("STOP_LOSS_PCT", -0.8)
	cfg.TakeProfitPct = l.getFloat("TAKE_PROFIT_PCT", 1.5)
	cfg.FeeRate = l.getFloat("FEE_RATE", 0.001)
	cfg.Cooldown = l.getSeconds("COOLDOWN_SECONDS", 30)
	cfg.MaxHold = l.getSeconds("MAX_HOLD_SECONDS", 600)
	if err := cfg.RiskConfig().Validate(); err != nil {
		l.errs = append(l.errs, err)
	}

	cfg.SizingMode = lifecycle.SizingMode(strings.ToLower(l.getString("SIZING_MODE", string(lifecycle.SizeFraction))))
	cfg.TargetGain = l.getFloat("TARGET_GAIN", 1.0)
	switch cfg.SizingMode {
	case lifecycle.SizeFraction:
	case lifecycle.SizeTargetGain:
		if cfg.TargetGain <= 0 {
			l.fail("TARGET_GAIN must be positive with SIZING_MODE=target_gain")
		}
	default:
		l.fail(fmt.Sprintf("SIZING_MODE must be %s or %s, got %q", lifecycle.SizeFraction, lifecycle.SizeTargetGain, cfg.SizingMode))
	}

	// Strategy
	cfg.Mode = app.Mode(strings.ToLower(l.getString("MODE", string(app.ModeSignal))))
	if cfg.Mode != app.ModeSignal && cfg.Mode != app.ModeGrid {
		l.fail(fmt.Sprintf("MODE must be %s or %s, got %q", app.ModeSignal, app.ModeGrid, cfg.Mode))
	}
	cfg.Rules = strategy.ParseRules(l.getString("STRATEGY_RULES", strategies.TrendCross))
	if len(cfg.Rules) == 0 {
		l.fail("STRATEGY_RULES must name at least one rule")
	}
	for _, name := range cfg.Rules {
		if _, err := strategies.New(name, strategies.DefaultThresholds()); err != nil {
			l.errs = append(l.errs, err)
		}
	}

	th := strategies.DefaultThresholds()
	th.RSIBuyLevel = l.getFloat("RSI_BUY_LEVEL", th.RSIBuyLevel)
	th.RSISellLevel = l.getFloat("RSI_SELL_LEVEL", th.RSISellLevel)
	th.RSIOversold = l.getFloat("RSI_OVERSOLD", th.RSIOversold)
	th.RSIOverbought = l.getFloat("RSI_OVERBOUGHT", th.RSIOverbought)
	th.BandRSIMax = l.getFloat("BAND_RSI_MAX", th.BandRSIMax)
	th.MomentumTrendGate = l.getBool("MOMENTUM_TREND_GATE", false)
	if th.RSIOverbought <= th.RSIOversold || th.RSIOverbought > 100 || th.RSIOversold < 0 {
		l.fail("invalid RSI thresholds (RSI_OVERBOUGHT must be > RSI_OVERSOLD, between 0-100)")
	}
	cfg.Thresholds = th

	ind := indicators.DefaultSetConfig()
	ind.EMAFast = l.getInt("EMA_FAST", ind.EMAFast)
	ind.EMASlow = l.getInt("EMA_SLOW", ind.EMASlow)
	ind.RSIPeriod = l.getInt("RSI_PERIOD", ind.RSIPeriod)
	ind.BBPeriod = l.getInt("BB_PERIOD", ind.BBPeriod)
	ind.BBStdDev = l.getFloat("BB_STDDEV", ind.BBStdDev)
	ind.MACDFast = l.getInt("MACD_FAST", ind.MACDFast)
	ind.MACDSlow = l.getInt("MACD_SLOW", ind.MACDSlow)
	ind.MACDSignal = l.getInt("MACD_SIGNAL", ind.MACDSignal)
	ind.TrendFilterPeriod = l.getInt("TREND_FILTER_PERIOD", ind.TrendFilterPeriod)
	ind.ATRPeriod = l.getInt("ATR_PERIOD", ind.ATRPeriod)
	if err := ind.Validate(); err != nil {
		l.errs = append(l.errs, err)
	}
	cfg.Indicators = ind

	// Grid
	cfg.GridLower = l.getFloat("GRID_LOWER", 0)
	cfg.GridUpper = l.getFloat("GRID_UPPER", 0)
	cfg.GridLevels = l.getInt("GRID_LEVELS", 10)
	if cfg.Mode == app.ModeGrid {
		if err := cfg.GridConfig().Validate(); err != nil {
			l.errs = append(l.errs, err)
		}
	}

	// Journal
	cfg.JournalDriver = strings.ToLower(l.getString("JOURNAL_DRIVER", journalstore.DriverFile))
	if cfg.JournalDriver != journalstore.DriverFile && cfg.JournalDriver != journalstore.DriverSQLite {
		l.fail(fmt.Sprintf("JOURNAL_DRIVER must be %s or %s, got %q", journalstore.DriverFile, journalstore.DriverSQLite, cfg.JournalDriver))
	}
	cfg.JournalPath = l.getString("JOURNAL_PATH", "/data/trades.log")
	cfg.DBPath = l.getString("DB_PATH", "./data/journal.db")
	cfg.JournalTail = l.getInt("JOURNAL_TAIL", 3)
	if cfg.JournalTail < 0 {
		l.fail("JOURNAL_TAIL cannot be negative")
	}

	// Status endpoint
	defaultAddr := ":8080"
	if port := l.getString("PORT", ""); port != "" {
		defaultAddr = ":" + port
	}
	cfg.StatusAddr = l.getString("STATUS_ADDR", defaultAddr)

	// Logging
	cfg.LogLevel = logger.ParseLevel(l.getString("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.Format(strings.ToLower(l.getString("LOG_FORMAT", string(logger.FormatConsole))))

	// Combine validation errors
	if len(l.errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w: %w", ports.ErrConfigurationError, errors.Join(l.errs...))
	}
	return cfg, nil
}

// RiskConfig returns the risk manager parameters.
func (c *Config) RiskConfig() risk.RiskConfig {
	return risk.RiskConfig{
		RiskFractionPerTrade: c.RiskFraction,
		StopLossPct:          c.StopLossPct,
		TakeProfitPct:        c.TakeProfitPct,
		FeeRate:              c.FeeRate,
		Cooldown:             c.Cooldown,
		MaxHold:              c.MaxHold,
	}
}

// LifecycleConfig returns the position lifecycle parameters.
func (c *Config) LifecycleConfig() lifecycle.Config {
	return lifecycle.Config{
		RiskFraction:  decimal.NewFromFloat(c.RiskFraction),
		FeeRate:       decimal.NewFromFloat(c.FeeRate),
		Cooldown:      c.Cooldown,
		Sizing:        c.SizingMode,
		TargetGain:    decimal.NewFromFloat(c.TargetGain),
		TakeProfitPct: decimal.NewFromFloat(c.TakeProfitPct),
	}
}

// GridConfig returns the ladder parameters.
func (c *Config) GridConfig() grid.Config {
	return grid.Config{
		Lower:        decimal.NewFromFloat(c.GridLower),
		Upper:        decimal.NewFromFloat(c.GridUpper),
		Levels:       c.GridLevels,
		RiskFraction: decimal.NewFromFloat(c.RiskFraction),
		FeeRate:      decimal.NewFromFloat(c.FeeRate),
	}
}

// JournalConfig returns the journal backend selection.
func (c *Config) JournalConfig(log ports.Logger) journalstore.Config {
	return journalstore.Config{
		Driver: c.JournalDriver,
		Path:   c.JournalPath,
		DBPath: c.DBPath,
		Logger: log,
	}
}

// StrategyConfig returns the signal evaluator parameters.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{Rules: c.Rules, Thresholds: c.Thresholds}
}

// ServiceConfig returns the trading service parameters.
func (c *Config) ServiceConfig() app.Config {
	return app.Config{
		Symbol:       c.Symbol,
		Mode:         c.Mode,
		PollInterval: c.PollInterval,
		JournalTail:  c.JournalTail,
		Risk:         c.RiskConfig(),
		Lifecycle:    c.LifecycleConfig(),
		Grid:         c.GridConfig(),
	}
}

// --- Env Var Helpers ---

func (l *loader) fail(msg string) {
	l.errs = append(l.errs, errors.New(msg))
}

func (l *loader) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return l.overlay[key]
}

func (l *loader) getString(key, defaultValue string) string {
	value := l.lookup(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (l *loader) getInt(key string, defaultValue int) int {
	valueStr := l.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err))
		return defaultValue
	}
	return value
}

func (l *loader) getFloat(key string, defaultValue float64) float64 {
	valueStr := l.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err))
		return defaultValue
	}
	return value
}

func (l *loader) getBool(key string, defaultValue bool) bool {
	valueStr := l.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid boolean value '%s' for key %s: %w", valueStr, key, err))
		return defaultValue
	}
	return value
}

func (l *loader) getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(l.getInt(key, defaultValue)) * time.Second
}
