package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/pkg/database"
)

// PostgresSourceConfigRepository implements domain.SourceConfigRepository
type PostgresSourceConfigRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSourceConfigRepository creates a new source config repository
func NewPostgresSourceConfigRepository(db *sql.DB, logger *slog.Logger) *PostgresSourceConfigRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSourceConfigRepository{db: db, logger: logger}
}

// Create stores a source config for an existing tenant
func (r *PostgresSourceConfigRepository) Create(ctx context.Context, cfg *domain.SourceConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	query := `
		INSERT INTO source_configs (id, tenant_id, db_host, db_port, db_username, db_password)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		_, err := tx.ExecContext(ctx, query,
			cfg.ID, cfg.TenantID, cfg.DBHost, cfg.DBPort, cfg.DBUsername, cfg.DBPassword,
		)
		return err
	})
	if err != nil {
		if isMissingReference(err) {
			return fmt.Errorf("tenant %q: %w", cfg.TenantID, domain.ErrNotFound)
		}
		r.logger.Error("failed to create source config",
			slog.String("tenant_id", cfg.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create source config: %w", err)
	}
	return nil
}

// ListByTenant returns the source configs of one tenant
func (r *PostgresSourceConfigRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.SourceConfig, error) {
	out := []*domain.SourceConfig{}
	if _, err := uuid.Parse(tenantID); err != nil {
		return out, nil
	}

	query := `
		SELECT id, tenant_id, db_host, db_port, db_username, db_password
		FROM source_configs
		WHERE tenant_id = $1
		ORDER BY db_host, db_port
	`
	err := database.ReadOnly(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		rows, err := tx.QueryContext(ctx, query, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c := &domain.SourceConfig{}
			if err := rows.Scan(&c.ID, &c.TenantID, &c.DBHost, &c.DBPort, &c.DBUsername, &c.DBPassword); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list source configs: %w", err)
	}
	return out, nil
}
