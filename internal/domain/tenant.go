package domain

import (
	"context"
	"time"
)

// Tenant represents a customer organization
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// TenantRepository defines data access for tenants
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}

// SourceConfig describes the database a tenant's pipeline reads from
type SourceConfig struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBUsername string `json:"db_username"`
	DBPassword string `json:"-"`
}

// SourceConfigRepository defines data access for source configurations
type SourceConfigRepository interface {
	Create(ctx context.Context, cfg *SourceConfig) error
	ListByTenant(ctx context.Context, tenantID string) ([]*SourceConfig, error)
}

// PipelineStatus is the on/off switch of a tenant's pipeline
type PipelineStatus struct {
	TenantID  string    `json:"tenant_id"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PipelineStatusRepository defines data access for pipeline status rows
type PipelineStatusRepository interface {
	Get(ctx context.Context, tenantID string) (*PipelineStatus, error)
	Upsert(ctx context.Context, status *PipelineStatus) error
}

// Health colors reported to clients
const (
	HealthGreen = "green"
	HealthRed   = "red"
)

// HealthReport summarizes pipeline health for a tenant
type HealthReport struct {
	TenantID     string    `json:"-"`
	LastSyncTime time.Time `json:"last_sync_time"`
	LastError    string    `json:"last_error"`
	Status       string    `json:"status"`
}
