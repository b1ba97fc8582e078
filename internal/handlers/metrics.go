package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Escrow operations are the money path; counting outcomes per operation
// is what makes conflicts (lost claims, double confirms) visible.
var (
	escrowOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskpop_escrow_operations_total",
		Help: "Escrow engine operations by outcome",
	}, []string{"op", "outcome"})

	escrowOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskpop_escrow_operation_duration_seconds",
		Help:    "Escrow engine operation latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op"})
)

func countOutcome(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	escrowOpsTotal.WithLabelValues(op, outcome).Inc()
}
