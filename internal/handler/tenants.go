package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/middleware"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// TenantHandler serves tenants and their source configurations
type TenantHandler struct {
	tenants  *service.TenantService
	guard    *security.Guard
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *service.TenantService, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{tenants: tenants, guard: guard, auditLog: auditLog, logger: logger}
}

// SourceConfigResponse is a source configuration without its password
type SourceConfigResponse struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBUsername string `json:"db_username"`
}

func sourceConfigView(cfg *domain.SourceConfig) SourceConfigResponse {
	return SourceConfigResponse{
		ID:         cfg.ID,
		TenantID:   cfg.TenantID,
		DBHost:     cfg.DBHost,
		DBPort:     cfg.DBPort,
		DBUsername: cfg.DBUsername,
	}
}

// Create handles POST /tenants/
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authorize(w, r, h.guard, h.logger, "", security.PermCreateTenant)
	if !ok {
		return
	}

	var req service.CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenant, err := h.tenants.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogAction(r.Context(), tenant.ID, identity.Username, "create", "tenant", tenant.ID, "success", "")
	writeJSON(w, http.StatusCreated, tenant)
}

// List handles GET /tenants/. Admins see every tenant, everyone else only their own.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, h.logger, security.ErrUnauthenticated)
		return
	}
	if security.HasPermission(identity.Role, security.PermListTenants) {
		tenants, err := h.tenants.List(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, tenants)
		return
	}

	if identity.TenantID == "" {
		writeJSON(w, http.StatusOK, []*domain.Tenant{})
		return
	}
	if _, ok := authorize(w, r, h.guard, h.logger, identity.TenantID, security.PermReadTenant); !ok {
		return
	}
	tenant, err := h.tenants.Get(r.Context(), identity.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, []*domain.Tenant{tenant})
}

// Get handles GET /tenants/{tenant_id}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if _, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermReadTenant); !ok {
		return
	}

	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// AddSourceConfig handles POST /tenants/{tenant_id}/source-config/
func (h *TenantHandler) AddSourceConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	identity, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermWriteSourceConfig)
	if !ok {
		return
	}

	var req service.CreateSourceConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.tenants.AddSourceConfig(r.Context(), tenantID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogAction(r.Context(), tenantID, identity.Username, "create", "source_config", cfg.ID, "success", "")
	writeJSON(w, http.StatusCreated, sourceConfigView(cfg))
}

// ListSourceConfigs handles GET /tenants/{tenant_id}/source-config/
func (h *TenantHandler) ListSourceConfigs(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if _, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermReadSourceConfig); !ok {
		return
	}

	cfgs, err := h.tenants.ListSourceConfigs(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]SourceConfigResponse, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, sourceConfigView(cfg))
	}
	writeJSON(w, http.StatusOK, out)
}
