// Package metrics provides Prometheus metrics for the paper trader.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paperTradingBot/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	TicksProcessed prometheus.Counter
	TicksSkipped   *prometheus.CounterVec
	Trades         *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	GridRecenters  prometheus.Counter
	JournalErrors  prometheus.Counter

	// Ledger gauges
	Cash           prometheus.Gauge
	AssetQty       prometheus.Gauge
	TotalValue     prometheus.Gauge
	MaxDrawdownPct prometheus.Gauge
	WinRate        prometheus.Gauge
	PositionOpen   prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "paper_trader"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TicksProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ticks_processed_total",
			Help:      "Total number of ticks run through the pipeline",
		}),
		TicksSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ticks_skipped_total",
			Help:      "Total number of ticks skipped by cause",
		}, []string{"cause"}),
		Trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trades_total",
			Help:      "Total number of simulated trades by action and reason",
		}, []string{"action", "reason"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rejections_total",
			Help:      "Total number of trades rejected before reaching the ledger, by kind",
		}, []string{"kind"}),
		GridRecenters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "recenters_total",
			Help:      "Total number of times the grid band trailed price upward",
		}),
		JournalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "append_errors_total",
			Help:      "Total number of trades that could not be journaled",
		}),

		Cash: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "cash",
			Help:      "Free quote-currency balance",
		}),
		AssetQty: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "asset_quantity",
			Help:      "Base-asset balance",
		}),
		TotalValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_value",
			Help:      "Cash plus asset marked at the last price",
		}),
		MaxDrawdownPct: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "max_drawdown_percent",
			Help:      "Largest observed shortfall below initial cash, in percent",
		}),
		WinRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "win_rate_percent",
			Help:      "Share of closed trades with non-negative profit, in percent",
		}),
		PositionOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "position_open",
			Help:      "1 while a position is open, else 0",
		}),
	}
}

// ObserveTrade counts an applied trade.
func (m *Metrics) ObserveTrade(rec domain.TradeRecord) {
	m.Trades.WithLabelValues(string(rec.Action), string(rec.Reason)).Inc()
}

// ObserveSnapshot sets the ledger gauges.
func (m *Metrics) ObserveSnapshot(s domain.BalanceSnapshot, positionOpen bool) {
	m.Cash.Set(s.Cash.InexactFloat64())
	m.AssetQty.Set(s.AssetQty.InexactFloat64())
	m.TotalValue.Set(s.TotalValue.InexactFloat64())
	m.MaxDrawdownPct.Set(s.MaxDrawdownPct.InexactFloat64())
	m.WinRate.Set(s.WinRate())
	if positionOpen {
		m.PositionOpen.Set(1)
	} else {
		m.PositionOpen.Set(0)
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
