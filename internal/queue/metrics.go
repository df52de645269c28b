// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// queueDepth and waitDuration track this package's own Stats (spec §3
// Queue Statistics) as Prometheus series, in the same promauto idiom
// internal/lsp's metrics.go uses for its request counters.
var (
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "refactorcore",
			Subsystem: "queue",
			Name:      "pending_operations",
			Help:      "Number of operations currently pending in the operation queue",
		},
	)

	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refactorcore",
			Subsystem: "queue",
			Name:      "wait_duration_seconds",
			Help:      "Time a queued operation spent waiting before dispatch, by kind and outcome",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300},
		},
		[]string{"kind", "outcome"},
	)
)

// recordMetrics mirrors recordOutcome's bookkeeping into the Prometheus
// series above; called alongside it so the two never drift.
func recordMetrics(kind OperationKind, wait time.Duration, succeeded bool, pending int64) {
	queueDepth.Set(float64(pending))
	outcome := "failed"
	if succeeded {
		outcome = "completed"
	}
	waitDuration.WithLabelValues(string(kind), outcome).Observe(wait.Seconds())
}
