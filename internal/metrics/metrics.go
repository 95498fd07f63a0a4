// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bulkwear_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	PaymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_payment_outcomes_total",
			Help: "Payment capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_cache_requests_total",
			Help: "Read-through cache lookups by result",
		},
		[]string{"result"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bulkwear_cache_evictions_total",
			Help: "Entries evicted from the in-process cache",
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_sweep_runs_total",
			Help: "Sweep executions by result",
		},
		[]string{"sweep", "result"},
	)

	SweepDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_sweep_deleted_total",
			Help: "Rows removed by sweeps",
		},
		[]string{"sweep"},
	)

	EmailsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkwear_emails_total",
			Help: "Emails handed to the transport by template and status",
		},
		[]string{"template", "status"},
	)
)

func RecordPaymentOutcome(outcome string) {
	PaymentOutcomes.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(result).Inc()
}

func RecordSweep(sweep, result string, deleted int64) {
	SweepRuns.WithLabelValues(sweep, result).Inc()
	if deleted > 0 {
		SweepDeleted.WithLabelValues(sweep).Add(float64(deleted))
	}
}

func RecordEmail(template string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	EmailsDispatched.WithLabelValues(template, status).Inc()
}
