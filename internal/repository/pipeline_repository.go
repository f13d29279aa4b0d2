package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/pkg/database"
)

// PostgresPipelineStatusRepository implements domain.PipelineStatusRepository
type PostgresPipelineStatusRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPipelineStatusRepository creates a new pipeline status repository
func NewPostgresPipelineStatusRepository(db *sql.DB, logger *slog.Logger) *PostgresPipelineStatusRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPipelineStatusRepository{db: db, logger: logger}
}

// Get returns the status row of a tenant or domain.ErrNotFound when none was written yet
func (r *PostgresPipelineStatusRepository) Get(ctx context.Context, tenantID string) (*domain.PipelineStatus, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, domain.ErrNotFound
	}

	s := &domain.PipelineStatus{}
	query := `SELECT tenant_id, is_active, updated_at FROM pipeline_status WHERE tenant_id = $1`
	err := database.ReadOnly(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		return tx.QueryRowContext(ctx, query, tenantID).Scan(&s.TenantID, &s.IsActive, &s.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pipeline status: %w", err)
	}
	return s, nil
}

// Upsert writes the status row of a tenant
func (r *PostgresPipelineStatusRepository) Upsert(ctx context.Context, status *domain.PipelineStatus) error {
	query := `
		INSERT INTO pipeline_status (tenant_id, is_active, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = now()
		RETURNING updated_at
	`
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return tx.QueryRowContext(ctx, query, status.TenantID, status.IsActive).Scan(&status.UpdatedAt)
	})
	if err != nil {
		if isMissingReference(err) {
			return fmt.Errorf("tenant %q: %w", status.TenantID, domain.ErrNotFound)
		}
		r.logger.Error("failed to upsert pipeline status",
			slog.String("tenant_id", status.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to upsert pipeline status: %w", err)
	}
	return nil
}
