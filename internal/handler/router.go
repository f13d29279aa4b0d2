package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/middleware"
	"github.com/aryan0dhankhar/tenantsync/internal/security/ratelimit"
)

// RouterDeps collects everything NewRouter mounts
type RouterDeps struct {
	Token        *TokenHandler
	Tenants      *TenantHandler
	Pipelines    *PipelineHandler
	Users        *UserHandler
	Health       *HealthHandler
	HealthStream *HealthStreamHandler // nil leaves the websocket route unmounted

	Guard          *security.Guard
	Limiter        *ratelimit.Limiter
	Audit          *audit.Logger
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler.
// Chain: recover -> request ID -> CORS -> sanitize -> content type -> metrics -> mux,
// and per protected route: auth -> rate limit -> audit -> body checks -> handler.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	protect := func(h http.HandlerFunc, fields ...string) http.Handler {
		var next http.Handler = h
		if len(fields) > 0 {
			next = middleware.RequireJSONFields(log, fields...)(next)
		}
		next = middleware.AuditMiddleware(d.Audit)(next)
		next = middleware.RateLimitMiddleware(d.Limiter, log)(next)
		return middleware.AuthMiddleware(d.Guard, log)(next)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /token", d.Token)

	mux.Handle("POST /tenants/{$}", protect(d.Tenants.Create, "name", "email"))
	mux.Handle("GET /tenants/{$}", protect(d.Tenants.List))
	mux.Handle("GET /tenants/{tenant_id}", protect(d.Tenants.Get))
	mux.Handle("POST /tenants/{tenant_id}/source-config/{$}",
		protect(d.Tenants.AddSourceConfig, "db_host", "db_port", "db_username", "db_password"))
	mux.Handle("GET /tenants/{tenant_id}/source-config/{$}", protect(d.Tenants.ListSourceConfigs))

	mux.Handle("GET /tenants/{tenant_id}/pipeline/{$}", protect(d.Pipelines.Status))
	mux.Handle("POST /tenants/{tenant_id}/pipeline/{$}", protect(d.Pipelines.SetStatus, "is_active"))
	mux.Handle("GET /health/{tenant_id}", protect(d.Pipelines.Health))

	mux.Handle("POST /users/{$}", protect(d.Users.Create, "username", "password"))
	mux.Handle("GET /users/me", protect(d.Users.Me))
	mux.Handle("DELETE /users/{id}", protect(d.Users.Delete))
	mux.Handle("GET /tenants/{tenant_id}/users/{$}", protect(d.Users.ListByTenant))

	if d.HealthStream != nil {
		mux.Handle("GET /ws/health/{tenant_id}", d.HealthStream)
	}

	mux.HandleFunc("GET /healthz", d.Health.Health)
	mux.HandleFunc("GET /readyz", d.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = metrics.HTTPMetricsMiddleware(mux)
	h = middleware.ValidateContentType(log, "application/x-www-form-urlencoded")(h)
	h = middleware.SanitizeInputs(log)(h)
	h = middleware.CORS(d.AllowedOrigins)(h)
	h = middleware.RequestID(log)(h)
	return middleware.Recover(log)(h)
}
