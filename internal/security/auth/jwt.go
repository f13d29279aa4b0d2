package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when a caller does not ask for a lifetime
const DefaultTokenTTL = 15 * time.Minute

// Token validation failures. Callers treat all of them as unauthenticated;
// they stay distinct for logging and metrics.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
	ErrEmptySecret      = errors.New("signing secret is empty")
)

// Claims is the payload of an access token
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens.
// The secret is fixed at construction; changing it invalidates every token
// issued before. Tokens cannot be revoked ahead of their expiry.
type TokenManager struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a token manager bound to secret
func NewTokenManager(secret, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if issuer == "" {
		issuer = "tenantsync"
	}
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		defaultTTL: DefaultTokenTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the manager reading time from now
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *tm
	cp.now = now
	return &cp
}

// WithDefaultTTL returns a copy of the manager using ttl when Issue is given none
func (tm *TokenManager) WithDefaultTTL(ttl time.Duration) *TokenManager {
	cp := *tm
	if ttl > 0 {
		cp.defaultTTL = ttl
	}
	return &cp
}

// Issue signs a token for subject valid for ttl (the default TTL when ttl <= 0)
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject required")
	}
	if ttl <= 0 {
		ttl = tm.defaultTTL
	}
	now := tm.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the token subject
func (tm *TokenManager) Validate(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return "", tm.classify(tokenString, err)
	}
	if !token.Valid {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}

// classify maps jwt library errors onto our three failure kinds. A
// three-segment token whose MAC does not verify is a signature failure even
// when its header or payload no longer decodes.
func (tm *TokenManager) classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), tm.forged(tokenString):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// forged reports whether tokenString has three segments and its last one is
// not the HS256 MAC of the first two under our secret
func (tm *TokenManager) forged(tokenString string) bool {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false
	}
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return true
	}
	return jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, tm.secret) != nil
}

// ExtractToken pulls the credential out of an "Authorization: Bearer <token>" header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
