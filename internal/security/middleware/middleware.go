package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
	"github.com/aryan0dhankhar/tenantsync/internal/security/ratelimit"
)

type identityContextKey struct{}

// WithIdentity stores the authenticated identity in ctx
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity set by AuthMiddleware, or nil
func IdentityFromContext(ctx context.Context) *domain.Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*domain.Identity); ok {
		return id
	}
	return nil
}

// WriteUnauthorized sends the uniform 401 used for every token problem
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// AuthMiddleware resolves the bearer token into an identity before calling next.
// Every token failure produces the same 401; the reason is only logged.
func AuthMiddleware(guard *security.Guard, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err != nil {
				metrics.ObserveTokenRejection("missing")
				WriteUnauthorized(w)
				return
			}

			identity, err := guard.ResolveIdentity(r.Context(), token)
			if err != nil {
				if !errors.Is(err, security.ErrUnauthenticated) {
					log.Error("identity lookup failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					writeDetail(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				metrics.ObserveTokenRejection(rejectionReason(err))
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, auth.ErrMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrNotFound):
		return "unknown_subject"
	default:
		return "other"
	}
}

// RateLimitMiddleware applies the per-tenant request budget. Platform users
// without a tenant are limited per username.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if id := IdentityFromContext(r.Context()); id != nil {
				key = "tenant:" + id.TenantID
				if id.TenantID == "" {
					key = "user:" + id.Username
				}
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("key", key))
				writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every request refused with 401 or 403. It sits
// inside AuthMiddleware so the caller's identity is known.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusUnauthorized && rec.status != http.StatusForbidden {
				return
			}
			tenantID, username := r.PathValue("tenant_id"), ""
			if id := IdentityFromContext(r.Context()); id != nil {
				username = id.Username
			}
			auditLog.LogDenied(r.Context(), tenantID, username, r.Method+" "+r.URL.Path+" "+http.StatusText(rec.status))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return h.Hijack()
}
