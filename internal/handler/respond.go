package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/middleware"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeError maps service and guard errors onto status codes
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, security.ErrUnauthenticated):
		middleware.WriteUnauthorized(w)
	case errors.Is(err, security.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrConflict):
		writeDetail(w, http.StatusConflict, "Already exists")
	case errors.Is(err, service.ErrInvalidInput):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error("request failed", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// authorize runs the guard for the caller in ctx and writes the rejection
func authorize(w http.ResponseWriter, r *http.Request, guard *security.Guard, log *slog.Logger, tenantID string, perm security.Permission) (*domain.Identity, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if err := guard.Authorize(identity, tenantID, perm); err != nil {
		if errors.Is(err, security.ErrForbidden) {
			metrics.ObserveAuthzDenial(string(perm))
		}
		writeError(w, log, err)
		return nil, false
	}
	return identity, true
}
