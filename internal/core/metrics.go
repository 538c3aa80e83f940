// AngelaMos | 2026
// metrics.go

package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthAttempts labels: strategy (session|token|api_key|dispatcher),
	// outcome (success|skip|reject).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_auth_attempts_total",
			Help: "Authentication attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	AccessDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_access_denials_total",
			Help: "Requests denied by ownership, origin, lock or quota checks",
		},
		[]string{"reason"},
	)

	QuotaWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "configurator_quota_warnings_total",
			Help: "Governed calls admitted while the tenant is within 90% of quota",
		},
	)

	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_tokens_issued_total",
			Help: "Signed tokens issued by purpose",
		},
		[]string{"purpose"},
	)

	EmbedCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_embed_cache_lookups_total",
			Help: "Published configurator cache lookups",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "configurator_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "status"},
	)
)

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
