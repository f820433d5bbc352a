package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 决策与订单的运行指标，/metrics暴露

var (
	SignalsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeflow_signals_received_total",
		Help: "Inbound signals accepted by the webhook.",
	})

	SignalsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeflow_signals_malformed_total",
		Help: "Signals rejected during normalization.",
	})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeflow_decisions_total",
		Help: "Decisions by outcome and reason.",
	}, []string{"outcome", "reason"})

	Orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeflow_orders_total",
		Help: "Orders by terminal status.",
	}, []string{"status"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradeflow_pipeline_duration_seconds",
		Help:    "End to end processing time per signal.",
		Buckets: prometheus.DefBuckets,
	})
)
