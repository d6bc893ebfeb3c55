// Package metrics holds Prometheus instruments that are used across the
// admin service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_mutations_total",
			Help: "Controller writes by resource, operation, and outcome.",
		}, []string{"resource", "op", "outcome"})

	ReorderWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_reorder_writes_total",
			Help: "Store writes issued while persisting a new display order.",
		}, []string{"strategy", "outcome"})

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_notifications_total",
			Help: "Operator notifications shown, by kind.",
		}, []string{"kind"})

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Admin sign-in attempts by outcome.",
		}, []string{"outcome"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_http_request_duration_seconds",
			Help:    "Admin HTTP request latency by method and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"})

	SessionCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admin_session_cache_entries",
			Help: "Sessions currently held in the in-process cache.",
		})
)

func init() {
	prometheus.MustRegister(
		MutationsTotal,
		ReorderWritesTotal,
		NotificationsTotal,
		LoginAttemptsTotal,
		HTTPRequestDuration,
		SessionCacheEntries,
	)
}

// Outcome maps an error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
