// Package metrics exposes Prometheus instrumentation for audit
// execution, platform spend, and the API server.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presence_query_duration_seconds",
			Help:    "Platform query duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"platform"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_query_total",
			Help: "Total platform queries executed",
		},
		[]string{"platform", "status"},
	)

	TokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_tokens_total",
			Help: "Total tokens consumed per platform",
		},
		[]string{"platform", "type"},
	)

	QueryCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_query_cost_usd_total",
			Help: "Estimated platform API spend in USD",
		},
		[]string{"platform"},
	)

	AuditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_audits_total",
			Help: "Total audits by terminal status",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_analytics_cache_hits_total",
			Help: "Total analytics cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_analytics_cache_misses_total",
			Help: "Total analytics cache misses",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presence_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"route", "method", "code"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueryDuration,
			QueryTotal,
			TokensUsed,
			QueryCost,
			AuditsTotal,
			CacheHits,
			CacheMisses,
			RequestDuration,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
