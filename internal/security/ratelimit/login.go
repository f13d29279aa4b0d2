package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/reliability/circuitbreaker"
)

// Counter is a shared windowed counter, backed by redis in production
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// LoginThrottle limits login attempts per client IP and per username.
// Counts live in the shared Counter when one is configured; when it is
// missing or failing, the local limiter takes over.
type LoginThrottle struct {
	counter     Counter
	breaker     *circuitbreaker.CircuitBreaker
	local       *Limiter
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
}

// NewLoginThrottle creates a throttle allowing maxAttempts per window for each key.
// counter may be nil.
func NewLoginThrottle(counter Counter, local *Limiter, maxAttempts int, window time.Duration, logger *slog.Logger) *LoginThrottle {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(3, 1, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("login throttle breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		metrics.SetBreakerState("login_throttle", int(to))
	})
	return &LoginThrottle{
		counter:     counter,
		breaker:     breaker,
		local:       local,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

func ipKey(ip string) string { return "login:ip:" + ip }
func userKey(name string) string { return "login:user:" + name }

// Allow records an attempt and reports whether it is within budget
func (t *LoginThrottle) Allow(ctx context.Context, clientIP, username string) bool {
	if t.maxAttempts <= 0 {
		return true
	}
	ok := true
	for _, key := range []string{ipKey(clientIP), userKey(username)} {
		if !t.allowKey(ctx, key) {
			ok = false
		}
	}
	return ok
}

// Reset clears the username counter after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	key := userKey(username)
	t.local.Reset(key)
	if t.counter == nil {
		return
	}
	err := t.breaker.Execute(func() error {
		return t.counter.Delete(ctx, key)
	})
	if err != nil {
		t.logger.Debug("failed to reset login counter", slog.String("error", err.Error()))
	}
}

func (t *LoginThrottle) allowKey(ctx context.Context, key string) bool {
	if t.counter != nil {
		var count int64
		err := t.breaker.Execute(func() error {
			var err error
			count, err = t.counter.IncrWindow(ctx, key, t.window)
			return err
		})
		if err == nil {
			return count <= int64(t.maxAttempts)
		}
		t.logger.Warn("shared login counter unavailable, using local limiter",
			slog.String("error", err.Error()),
		)
	}
	return t.local.AllowN(key, t.maxAttempts, t.window)
}
