package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/middleware"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// UserHandler serves account provisioning
type UserHandler struct {
	users    *service.UserService
	guard    *security.Guard
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, guard: guard, auditLog: auditLog, logger: logger}
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	TenantID  string      `json:"tenant_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// MeResponse is the caller's own account with the permissions its role grants
type MeResponse struct {
	UserResponse
	Permissions []security.Permission `json:"permissions"`
}

func userView(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		TenantID:  u.TenantID,
		CreatedAt: u.CreatedAt,
	}
}

// Create handles POST /users/. Tenant admins provision accounts of their own
// tenant only and never admins; the tenant defaults to the caller's.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, h.logger, security.ErrUnauthenticated)
		return
	}

	var req service.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if identity.Role != domain.RoleAdmin {
		if req.Role == domain.RoleAdmin {
			metrics.ObserveAuthzDenial(string(security.PermManageUsers))
			writeError(w, h.logger, security.ErrForbidden)
			return
		}
		if req.TenantID == "" {
			req.TenantID = identity.TenantID
		}
		if _, ok := authorize(w, r, h.guard, h.logger, req.TenantID, security.PermManageUsers); !ok {
			return
		}
	}

	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogUserCreated(r.Context(), user.TenantID, identity.Username, user.ID)
	writeJSON(w, http.StatusCreated, userView(user))
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, h.logger, security.ErrUnauthenticated)
		return
	}

	user, err := h.users.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = security.ErrUnauthenticated
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		UserResponse: userView(user),
		Permissions:  security.GetRolePermissions(user.Role),
	})
}

// ListByTenant handles GET /tenants/{tenant_id}/users/
func (h *UserHandler) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if _, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermListUsers); !ok {
		return
	}

	users, err := h.users.ListByTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /users/{id}. Callers other than platform admins get
// the same 403 for unknown ids and for accounts they may not manage.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, h.logger, security.ErrUnauthenticated)
		return
	}
	userID := r.PathValue("id")
	deny := func() {
		metrics.ObserveAuthzDenial(string(security.PermManageUsers))
		writeError(w, h.logger, security.ErrForbidden)
	}

	if identity.Role != domain.RoleAdmin && !security.HasPermission(identity.Role, security.PermManageUsers) {
		deny()
		return
	}

	// outside the platform admin role a missing account looks like one in
	// another tenant
	target, err := h.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && identity.Role != domain.RoleAdmin {
			deny()
			return
		}
		writeError(w, h.logger, err)
		return
	}
	if err := h.guard.AuthorizeUser(identity, target, security.PermManageUsers); err != nil {
		if errors.Is(err, security.ErrForbidden) {
			metrics.ObserveAuthzDenial(string(security.PermManageUsers))
		}
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogUserDeleted(r.Context(), target.TenantID, identity.Username, userID)
	w.WriteHeader(http.StatusNoContent)
}
