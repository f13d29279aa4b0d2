package domain

import (
	"context"
	"errors"
	"time"
)

// Repository sentinel errors shared by every store implementation
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Role is the coarse access level of a user
type Role string

const (
	// RoleAdmin is a platform-level operator; it is not bound to a tenant
	RoleAdmin       Role = "admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// TenantScoped reports whether users with this role must belong to a tenant
func (r Role) TenantScoped() bool {
	return r == RoleTenantAdmin || r == RoleUser
}

// User represents a stored account
type User struct {
	ID           string    // UUID
	Username     string    // Unique, case-sensitive
	PasswordHash string    // bcrypt hash, never serialized
	Role         Role      // admin | tenant_admin | user
	TenantID     string    // empty for platform-level users
	CreatedAt    time.Time
}

// Identity is the authenticated view of a user handed to protected code.
// It deliberately carries no credential material.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

// Identity strips the credential fields off the user record
func (u *User) Identity() *Identity {
	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		TenantID: u.TenantID,
	}
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)
}
