package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
)

// CreateTenantRequest is the payload for a new tenant
type CreateTenantRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

// CreateSourceConfigRequest is the payload for a new source database
type CreateSourceConfigRequest struct {
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBUsername string `json:"db_username"`
	DBPassword string `json:"db_password"`
}

// TenantService manages tenants and their source database configurations
type TenantService struct {
	tenants domain.TenantRepository
	sources domain.SourceConfigRepository
	logger  *slog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(tenants domain.TenantRepository, sources domain.SourceConfigRepository, logger *slog.Logger) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{tenants: tenants, sources: sources, logger: logger}
}

// Create validates and stores a tenant. An empty timezone defaults to UTC.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*domain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, invalid("email %q is not a valid address", req.Email)
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, invalid("unknown timezone %q", tz)
	}

	tenant := &domain.Tenant{Name: name, Email: req.Email, Timezone: tz}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("tenant created",
		slog.String("tenant_id", tenant.ID),
		slog.String("name", tenant.Name),
	)
	return tenant, nil
}

func (s *TenantService) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

func (s *TenantService) List(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenants.List(ctx)
}

// AddSourceConfig stores a source database for tenantID
func (s *TenantService) AddSourceConfig(ctx context.Context, tenantID string, req CreateSourceConfigRequest) (*domain.SourceConfig, error) {
	host := strings.TrimSpace(req.DBHost)
	if host == "" {
		return nil, invalid("db_host is required")
	}
	if req.DBPort < 1 || req.DBPort > 65535 {
		return nil, invalid("db_port must be between 1 and 65535")
	}
	if strings.TrimSpace(req.DBUsername) == "" {
		return nil, invalid("db_username is required")
	}

	cfg := &domain.SourceConfig{
		TenantID:   tenantID,
		DBHost:     host,
		DBPort:     req.DBPort,
		DBUsername: req.DBUsername,
		DBPassword: req.DBPassword,
	}
	if err := s.sources.Create(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("source config added",
		slog.String("tenant_id", tenantID),
		slog.String("source_id", cfg.ID),
		slog.String("db_host", cfg.DBHost),
	)
	return cfg, nil
}

// ListSourceConfigs returns every source of an existing tenant
func (s *TenantService) ListSourceConfigs(ctx context.Context, tenantID string) ([]*domain.SourceConfig, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.sources.ListByTenant(ctx, tenantID)
}
