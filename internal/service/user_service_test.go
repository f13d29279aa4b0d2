package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
)

func newUserService(t *testing.T) (*UserService, *memUserRepo) {
	t.Helper()
	users := newMemUserRepo()
	return NewUserService(users, newMemTenantRepo("t1", "t2"), auth.NewBcryptHasher(bcrypt.MinCost), nil), users
}

func TestUserService_Create(t *testing.T) {
	svc, users := newUserService(t)

	u, err := svc.Create(context.Background(), CreateUserRequest{
		Username: " bob ", Password: "longenough", Role: domain.RoleTenantAdmin, TenantID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.NotEqual(t, "longenough", u.PasswordHash)
	assert.True(t, bcryptMatches(u.PasswordHash, "longenough"))

	stored, err := users.GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func bcryptMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func TestUserService_CreateValidation(t *testing.T) {
	svc, _ := newUserService(t)

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"missing username", CreateUserRequest{Password: "longenough", TenantID: "t1"}},
		{"short password", CreateUserRequest{Username: "x", Password: "short", TenantID: "t1"}},
		{"unknown role", CreateUserRequest{Username: "x", Password: "longenough", Role: "root", TenantID: "t1"}},
		{"tenant role without tenant", CreateUserRequest{Username: "x", Password: "longenough", Role: domain.RoleUser}},
		{"admin with tenant", CreateUserRequest{Username: "x", Password: "longenough", Role: domain.RoleAdmin, TenantID: "t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUserService_CreateDefaultsToUserRole(t *testing.T) {
	svc, _ := newUserService(t)
	u, err := svc.Create(context.Background(), CreateUserRequest{Username: "carol", Password: "longenough", TenantID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
}

func TestUserService_CreateUnknownTenant(t *testing.T) {
	svc, _ := newUserService(t)
	_, err := svc.Create(context.Background(), CreateUserRequest{Username: "dan", Password: "longenough", TenantID: "t9"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_CreateDuplicate(t *testing.T) {
	svc, _ := newUserService(t)
	req := CreateUserRequest{Username: "erin", Password: "longenough", TenantID: "t1"}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserService_Bootstrap(t *testing.T) {
	svc, users := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "root", "changeme-now"))
	u, err := users.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.Empty(t, u.TenantID)

	hash := u.PasswordHash
	require.NoError(t, svc.Bootstrap(ctx, "root", "another-password"))
	u, err = users.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, hash, u.PasswordHash, "existing admin is left untouched")

	assert.NoError(t, svc.Bootstrap(ctx, "", ""), "no username configured")
	assert.ErrorIs(t, svc.Bootstrap(ctx, "weak", "short"), ErrInvalidInput)
}

func TestUserService_ListAndDelete(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateUserRequest{Username: "a", Password: "longenough", TenantID: "t1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserRequest{Username: "b", Password: "longenough", TenantID: "t2"})
	require.NoError(t, err)

	list, err := svc.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Username)

	_, err = svc.ListByTenant(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), domain.ErrNotFound)
}
