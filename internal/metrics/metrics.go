// Package metrics registers the Prometheus series the sessions update. Served
// at /metrics by cmd/tracy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracy_signals_total",
			Help: "Breakout signals emitted",
		},
		[]string{"symbol", "side"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracy_orders_total",
			Help: "Order submissions by strategy role and outcome",
		},
		[]string{"role", "result"}, // role: primary|secondary|retracement, result: ok|failed
	)

	TrailingUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracy_trailing_updates_total",
			Help: "Stop-loss moves by trailing algorithm",
		},
		[]string{"algo"}, // atr|box
	)

	ReconciledCloses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracy_reconciled_closes_total",
			Help: "Positions discovered closed by reconciliation",
		},
	)

	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracy_open_positions",
			Help: "Positions currently held in memory per symbol",
		},
		[]string{"symbol"},
	)

	TickErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracy_tick_errors_total",
			Help: "Errors caught at the session tick boundary",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		Signals,
		Orders,
		TrailingUpdates,
		ReconciledCloses,
		OpenPositions,
		TickErrors,
	)
}
