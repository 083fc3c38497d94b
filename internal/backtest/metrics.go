package backtest

import "github.com/prometheus/client_golang/prometheus"

// Prometheus instrumentation for the driver loop. Registered at init(), but
// never exposed over HTTP — there is no report/CLI surface in this engine,
// only the counters/gauges a caller can scrape if it wires its own exporter.
var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_orders_total",
			Help: "Orders placed, by direction and terminal status.",
		},
		[]string{"direction", "status"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Executed fills, by direction.",
		},
		[]string{"direction"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_order_rejections_total",
			Help: "Rejected orders, by reason.",
		},
		[]string{"reason"},
	)

	totalAssetGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_total_asset",
			Help: "Total asset value at the most recent daily snapshot.",
		},
	)

	daysProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_days_processed_total",
			Help: "Number of simulated trading days completed.",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal, tradesTotal, rejectionsTotal, totalAssetGauge, daysProcessed)
}

func recordOrder(direction, status string)  { ordersTotal.WithLabelValues(direction, status).Inc() }
func recordTrade(direction string)          { tradesTotal.WithLabelValues(direction).Inc() }
func recordRejection(reason string)         { rejectionsTotal.WithLabelValues(reason).Inc() }
func setTotalAsset(v float64)               { totalAssetGauge.Set(v) }
func incDaysProcessed()                     { daysProcessed.Inc() }
