package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
)

// ErrInvalidCredentials covers both unknown usernames and wrong passwords
var ErrInvalidCredentials = errors.New("incorrect username or password")

// DefaultLoginTTL is the lifetime of tokens handed out by Login
const DefaultLoginTTL = 30 * time.Minute

// dummyPassword is hashed once at startup so unknown usernames cost one full
// bcrypt comparison, same as a wrong password.
const dummyPassword = "tenantsync-timing-equalizer"

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// AuthService handles authentication operations
type AuthService struct {
	users     domain.UserRepository
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	audit     *audit.Logger
	loginTTL  time.Duration
	dummyHash string
	logger    *slog.Logger
}

// LoginResult represents login response
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// NewAuthService creates a new authentication service.
// loginTTL <= 0 falls back to DefaultLoginTTL.
func NewAuthService(
	users domain.UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	loginTTL time.Duration,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if loginTTL <= 0 {
		loginTTL = DefaultLoginTTL
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		logger.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		audit:     auditLog,
		loginTTL:  loginTTL,
		dummyHash: dummyHash,
		logger:    logger,
	}
}

// Authenticate checks a username/password pair.
// Unknown user and wrong password both yield ErrInvalidCredentials; they are
// only told apart in logs. Store failures are returned as-is.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	start := time.Now()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		metrics.ObserveLogin("error", time.Since(start))
		s.logger.Error("failed to load user for login",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.reject(ctx, username, "unknown_user", start)
		return nil, ErrInvalidCredentials
	}

	if password == "" || !s.hasher.Verify(password, user.PasswordHash) {
		s.reject(ctx, username, "wrong_password", start)
		return nil, ErrInvalidCredentials
	}

	metrics.ObserveLogin("success", time.Since(start))
	s.audit.LogLogin(ctx, username, true, "")
	return user.Identity(), nil
}

func (s *AuthService) reject(ctx context.Context, username, reason string, start time.Time) {
	metrics.ObserveLogin("invalid_credentials", time.Since(start))
	s.logger.Info("login rejected",
		slog.String("username", username),
		slog.String("reason", reason),
	)
	s.audit.LogLogin(ctx, username, false, reason)
}

// Login authenticates the user and issues an access token for the login TTL
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(identity.Username, s.loginTTL)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.String("username", identity.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", identity.UserID),
		slog.String("username", identity.Username),
	)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.loginTTL.Seconds()),
	}, nil
}
