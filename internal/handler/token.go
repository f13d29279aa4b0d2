package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security/ratelimit"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// TokenHandler serves POST /token, exchanging form credentials for a bearer token
type TokenHandler struct {
	authService *service.AuthService
	throttle    *ratelimit.LoginThrottle
	logger      *slog.Logger
}

// NewTokenHandler creates a new token handler. throttle may be nil.
func NewTokenHandler(authService *service.AuthService, throttle *ratelimit.LoginThrottle, logger *slog.Logger) *TokenHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenHandler{authService: authService, throttle: throttle, logger: logger}
}

// TokenResponse is the OAuth2 password-flow response body
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	if h.throttle != nil && !h.throttle.Allow(r.Context(), clientIP(r), username) {
		metrics.ObserveLogin("throttled", 0)
		h.logger.Warn("login throttled", slog.String("username", username))
		w.Header().Set("Retry-After", "60")
		writeDetail(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	result, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	if h.throttle != nil {
		h.throttle.Reset(r.Context(), username)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
