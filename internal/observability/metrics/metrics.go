package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantsync_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantsync_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantsync_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	loginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tenantsync_login_duration_seconds",
		Help:    "Time spent verifying credentials",
		Buckets: prometheus.DefBuckets,
	})

	tokenRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantsync_token_rejections_total",
		Help: "Bearer tokens rejected by reason",
	}, []string{"reason"})

	authzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantsync_authorization_denials_total",
		Help: "Requests denied by the tenant guard",
	}, []string{"permission"})

	healthCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantsync_health_cache_lookups_total",
		Help: "Health report cache lookups by result",
	}, []string{"result"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tenantsync_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tenantsync_health_streams_active",
		Help: "Open websocket health streams",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin records the outcome and latency of a credential check.
// result is one of success, invalid_credentials, throttled, error.
func ObserveLogin(result string, duration time.Duration) {
	loginAttempts.WithLabelValues(result).Inc()
	if duration > 0 {
		loginDuration.Observe(duration.Seconds())
	}
}

// ObserveTokenRejection counts a rejected bearer token
func ObserveTokenRejection(reason string) {
	tokenRejections.WithLabelValues(reason).Inc()
}

// ObserveAuthzDenial counts a request refused for lack of permission or tenant mismatch
func ObserveAuthzDenial(permission string) {
	authzDenials.WithLabelValues(permission).Inc()
}

// ObserveHealthCache records a health cache hit or miss
func ObserveHealthCache(hit bool) {
	if hit {
		healthCache.WithLabelValues("hit").Inc()
		return
	}
	healthCache.WithLabelValues("miss").Inc()
}

// SetBreakerState publishes the state of a named circuit breaker
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

func IncrementStreams() {
	activeStreams.Inc()
}

func DecrementStreams() {
	activeStreams.Dec()
}
