package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// PipelineHandler serves the pipeline switch and the derived health report
type PipelineHandler struct {
	pipelines *service.PipelineService
	guard     *security.Guard
	auditLog  *audit.Logger
	logger    *slog.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(pipelines *service.PipelineService, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *PipelineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineHandler{pipelines: pipelines, guard: guard, auditLog: auditLog, logger: logger}
}

// SetPipelineRequest is the body of POST /tenants/{tenant_id}/pipeline/
type SetPipelineRequest struct {
	IsActive *bool `json:"is_active"`
}

// Status handles GET /tenants/{tenant_id}/pipeline/
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if _, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermReadPipeline); !ok {
		return
	}

	status, err := h.pipelines.Status(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SetStatus handles POST /tenants/{tenant_id}/pipeline/
func (h *PipelineHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	identity, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermWritePipeline)
	if !ok {
		return
	}

	var req SetPipelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "is_active is required")
		return
	}

	// 404 for unknown tenants before writing a row that references them
	if _, err := h.pipelines.Status(r.Context(), tenantID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	status, err := h.pipelines.SetStatus(r.Context(), tenantID, *req.IsActive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	details := "deactivated"
	if status.IsActive {
		details = "activated"
	}
	h.auditLog.LogAction(r.Context(), tenantID, identity.Username, "update", "pipeline", tenantID, "success", details)
	writeJSON(w, http.StatusOK, status)
}

// Health handles GET /health/{tenant_id}
func (h *PipelineHandler) Health(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if _, ok := authorize(w, r, h.guard, h.logger, tenantID, security.PermReadHealth); !ok {
		return
	}

	report, err := h.pipelines.Health(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
