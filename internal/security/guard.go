package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
)

// Guard rejections. ErrTenantMismatch wraps ErrForbidden so callers can map
// both onto the same response.
var (
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrForbidden       = errors.New("not enough permissions")
	ErrTenantMismatch  = fmt.Errorf("%w: tenant mismatch", ErrForbidden)
)

// TokenValidator returns the subject of a valid token
type TokenValidator interface {
	Validate(token string) (string, error)
}

// IdentityStore resolves a token subject to a stored account
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Guard is the access-control boundary between bearer tokens and tenant data
type Guard struct {
	tokens TokenValidator
	users  IdentityStore
	logger *slog.Logger
}

// NewGuard creates a guard
func NewGuard(tokens TokenValidator, users IdentityStore, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{tokens: tokens, users: users, logger: logger}
}

// ResolveIdentity validates a bearer token and re-reads the account it names.
// An account deleted or renamed after issuance no longer resolves.
func (g *Guard) ResolveIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	subject, err := g.tokens.Validate(token)
	if err != nil {
		g.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if subject == "" {
		return nil, ErrUnauthenticated
	}

	user, err := g.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			g.logger.Info("token subject no longer exists", slog.String("username", subject))
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		g.logger.Error("failed to resolve identity",
			slog.String("username", subject),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	return user.Identity(), nil
}

// Authorize checks that identity may exercise perm on tenantID.
// Platform admins pass every tenant.
func (g *Guard) Authorize(identity *domain.Identity, tenantID string, perm Permission) error {
	if identity == nil {
		return ErrUnauthenticated
	}
	if identity.Role == domain.RoleAdmin {
		return nil
	}

	if !HasPermission(identity.Role, perm) {
		g.logger.Warn("permission denied",
			slog.String("username", identity.Username),
			slog.String("role", string(identity.Role)),
			slog.String("permission", string(perm)),
		)
		return ErrForbidden
	}

	if identity.TenantID == "" || identity.TenantID != tenantID {
		g.logger.Warn("tenant access denied",
			slog.String("username", identity.Username),
			slog.String("user_tenant", identity.TenantID),
			slog.String("requested_tenant", tenantID),
		)
		return ErrTenantMismatch
	}

	return nil
}

// AuthorizeUser checks account-level operations on target.
// Tenant admins act only on non-admin accounts of their own tenant; everyone
// else acts only on themselves.
func (g *Guard) AuthorizeUser(identity *domain.Identity, target *domain.User, perm Permission) error {
	if identity == nil {
		return ErrUnauthenticated
	}
	if identity.Role == domain.RoleAdmin {
		return nil
	}
	if target.ID == identity.UserID && perm != PermManageUsers {
		return nil
	}

	if err := g.Authorize(identity, target.TenantID, perm); err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin {
		g.logger.Warn("resource access denied",
			slog.String("username", identity.Username),
			slog.String("target_user", target.ID),
		)
		return ErrForbidden
	}
	return nil
}
