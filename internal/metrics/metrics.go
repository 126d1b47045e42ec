// Package metrics exposes the process-wide prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by route and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickertrust_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})

	// RequestDuration observes HTTP request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickertrust_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// SourceFallbacks counts deterministic fallbacks by signal source.
	SourceFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickertrust_source_fallbacks_total",
		Help: "Feature fetches that degraded to the synthetic fallback, by source.",
	}, []string{"source"})

	// RecomputeRuns counts completed trust recompute sweeps.
	RecomputeRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickertrust_recompute_runs_total",
		Help: "Completed trust score recompute sweeps.",
	})

	// TelemetryDropped counts telemetry events discarded because the queue was full.
	TelemetryDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickertrust_telemetry_dropped_total",
		Help: "Telemetry events dropped instead of blocking a request path.",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
