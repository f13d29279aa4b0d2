package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
)

type authFixture struct {
	users  *memUserRepo
	hasher *countingHasher
	tokens *auth.TokenManager
	svc    *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMemUserRepo()
	hasher := &countingHasher{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
	tokens, err := auth.NewTokenManager("test-secret", "")
	require.NoError(t, err)

	userSvc := NewUserService(users, newMemTenantRepo("t1"), hasher, nil)
	_, err = userSvc.Create(context.Background(), CreateUserRequest{
		Username: "alice", Password: "Password123", Role: domain.RoleUser, TenantID: "t1",
	})
	require.NoError(t, err)

	svc := NewAuthService(users, hasher, tokens, 0, nil, nil)
	hasher.verifies = nil
	return &authFixture{users: users, hasher: hasher, tokens: tokens, svc: svc}
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture(t)

	id, err := f.svc.Authenticate(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, domain.RoleUser, id.Role)
	assert.Equal(t, "t1", id.TenantID)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, wrongPassword := f.svc.Authenticate(ctx, "alice", "nope-nope")
	_, unknownUser := f.svc.Authenticate(ctx, "mallory", "Password123")
	_, emptyPassword := f.svc.Authenticate(ctx, "alice", "")

	for _, err := range []error{wrongPassword, unknownUser, emptyPassword} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
	}
}

func TestAuthenticate_UnknownUserStillVerifies(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "ghost", "whatever1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, f.hasher.verifies, 1, "a bcrypt comparison must run for unknown users")
	assert.True(t, strings.HasPrefix(f.hasher.verifies[0], "$2a$"))
	cost, err := bcrypt.Cost([]byte(f.hasher.verifies[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost, "dummy hash uses the configured cost")
}

func TestAuthenticate_StoreFailureIsNotCredentialError(t *testing.T) {
	f := newAuthFixture(t)
	f.users.err = errors.New("connection reset")

	_, err := f.svc.Authenticate(context.Background(), "alice", "Password123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_IssuesBearerToken(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Login(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, int((30 * time.Minute).Seconds()), res.ExpiresIn)

	subject, err := f.tokens.Validate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestLogin_WrongPasswordIssuesNothing(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Login(context.Background(), "alice", "Password124")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, res)
}

func TestLogin_CustomTTL(t *testing.T) {
	f := newAuthFixture(t)
	svc := NewAuthService(f.users, f.hasher, f.tokens, 5*time.Minute, nil, nil)

	res, err := svc.Login(context.Background(), "alice", "Password123")
	require.NoError(t, err)
	assert.Equal(t, 300, res.ExpiresIn)
}
