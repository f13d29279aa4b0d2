package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
)

// MinPasswordLength is enforced on every provisioned account
const MinPasswordLength = 8

// CreateUserRequest describes a new account
type CreateUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	TenantID string      `json:"tenant_id,omitempty"`
}

// UserService provisions and manages accounts
type UserService struct {
	users   domain.UserRepository
	tenants domain.TenantRepository
	hasher  auth.PasswordHasher
	logger  *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users domain.UserRepository,
	tenants domain.TenantRepository,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, tenants: tenants, hasher: hasher, logger: logger}
}

// Validate checks the shape of a create request without touching the store
func (req *CreateUserRequest) Validate() error {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return invalid("username is required")
	}
	if len(req.Password) < MinPasswordLength {
		return invalid("password must be at least %d characters", MinPasswordLength)
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if !req.Role.Valid() {
		return invalid("unknown role %q", req.Role)
	}
	if req.Role.TenantScoped() && req.TenantID == "" {
		return invalid("role %s requires tenant_id", req.Role)
	}
	if !req.Role.TenantScoped() && req.TenantID != "" {
		return invalid("role %s cannot belong to a tenant", req.Role)
	}
	return nil
}

// Create hashes the password and stores the account
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.TenantID != "" {
		if _, err := s.tenants.GetByID(ctx, req.TenantID); err != nil {
			return nil, fmt.Errorf("tenant %s: %w", req.TenantID, err)
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     req.TenantID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
		slog.String("tenant_id", user.TenantID),
	)
	return user, nil
}

// Bootstrap creates the platform admin on first start; an existing account is left alone
func (s *UserService) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		s.logger.Debug("bootstrap admin already present", slog.String("username", username))
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	_, err = s.Create(ctx, CreateUserRequest{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListByTenant returns the accounts of a tenant; unknown tenants are not found
func (s *UserService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.User, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.users.ListByTenant(ctx, tenantID)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", id))
	return nil
}
