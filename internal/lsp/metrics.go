// Copyright (c) 2025 Contributors to the refactorcore project.
// Licensed under the GNU Affero General Public License v3.0.
// See LICENSE for details.

package lsp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestDuration and requestTotal track every Client request this
// package issues, in the teacher's promauto/Namespace+Subsystem idiom
// (services/code_buddy/cancel/metrics.go).
var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "refactorcore",
			Subsystem: "lsp",
			Name:      "request_duration_seconds",
			Help:      "Duration of LSP client requests by method",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refactorcore",
			Subsystem: "lsp",
			Name:      "requests_total",
			Help:      "Total LSP client requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)
)

func recordRequest(method string, d time.Duration, ok bool) {
	requestDuration.WithLabelValues(method).Observe(d.Seconds())
	outcome := "error"
	if ok {
		outcome = "success"
	}
	requestTotal.WithLabelValues(method, outcome).Inc()
}
