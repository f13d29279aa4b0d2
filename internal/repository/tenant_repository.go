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

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create creates a new tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tenants (id, name, email, timezone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return tx.QueryRowContext(ctx, query, tenant.ID, tenant.Name, tenant.Email, tenant.Timezone).
			Scan(&tenant.CreatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %q: %w", tenant.ID, domain.ErrConflict)
		}
		r.logger.Error("failed to create tenant",
			slog.String("name", tenant.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	t := &domain.Tenant{}
	query := `
		SELECT id, name, email, timezone, created_at
		FROM tenants
		WHERE id = $1
	`
	err := database.ReadOnly(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		return tx.QueryRowContext(ctx, query, id).Scan(
			&t.ID, &t.Name, &t.Email, &t.Timezone, &t.CreatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// List returns all tenants
func (r *PostgresTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, email, timezone, created_at
		FROM tenants
		ORDER BY created_at DESC
	`

	out := []*domain.Tenant{}
	err := database.ReadOnly(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t := &domain.Tenant{}
			if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Timezone, &t.CreatedAt); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return out, nil
}
