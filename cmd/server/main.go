package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/featureflags"
	"github.com/aryan0dhankhar/tenantsync/internal/handler"
	"github.com/aryan0dhankhar/tenantsync/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/tenantsync/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/tracing"
	"github.com/aryan0dhankhar/tenantsync/internal/repository"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/audit"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
	"github.com/aryan0dhankhar/tenantsync/internal/security/ratelimit"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
	"github.com/aryan0dhankhar/tenantsync/internal/worker"
	"github.com/aryan0dhankhar/tenantsync/pkg/cache"
	"github.com/aryan0dhankhar/tenantsync/pkg/config"
	"github.com/aryan0dhankhar/tenantsync/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tenantsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize structured logger and tracing
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting tenantsync server", slog.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		ServiceName: "tenantsync",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// 3. Database: connect with retry, then apply migrations
	pool, err := database.NewConnectionPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool.GetDB()); err != nil {
		return err
	}

	// 4. Optional Redis for shared login counters
	var (
		counter    ratelimit.Counter
		redisCheck handler.Check
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		counter = redisClient
		redisCheck = redisClient.Ping
	} else {
		log.Info("REDIS_URL not set, login throttling is per instance")
	}

	// 5. Repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	sourceRepo := repository.NewPostgresSourceConfigRepository(db, log)
	pipelineRepo := repository.NewPostgresPipelineStatusRepository(db, log)

	// 6. Security components
	tokenManager, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	tokenManager = tokenManager.WithDefaultTTL(cfg.DefaultTokenTTL)

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	auditLogger := audit.NewLogger(log)
	guard := security.NewGuard(tokenManager, userRepo, log)

	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()
	loginLimiter := ratelimit.NewLimiter(cfg.LoginAttempts, time.Minute)
	defer loginLimiter.Stop()
	throttle := ratelimit.NewLoginThrottle(counter, loginLimiter, cfg.LoginAttempts, time.Minute, log)

	// 7. Services
	authService := service.NewAuthService(userRepo, hasher, tokenManager, cfg.AccessTokenTTL, auditLogger, log)
	userService := service.NewUserService(userRepo, tenantRepo, hasher, log)
	tenantService := service.NewTenantService(tenantRepo, sourceRepo, log)
	healthCache := cache.New[domain.HealthReport]()
	pipelineService := service.NewPipelineService(tenantRepo, pipelineRepo, healthCache, cfg.HealthCacheTTL, log)

	if err := userService.Bootstrap(ctx, cfg.BootstrapAdmin, cfg.BootstrapPassword); err != nil {
		return err
	}

	go worker.NewCacheJanitor(healthCache, "health", time.Minute, log).Start(ctx)

	// 8. HTTP routes
	flags := featureflags.Load()
	router := handler.NewRouter(handler.RouterDeps{
		Token:     handler.NewTokenHandler(authService, throttle, log),
		Tenants:   handler.NewTenantHandler(tenantService, guard, auditLogger, log),
		Pipelines: handler.NewPipelineHandler(pipelineService, guard, auditLogger, log),
		Users:     handler.NewUserHandler(userService, guard, auditLogger, log),
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"database": pool.Health,
			"redis":    redisCheck,
		}, log),
		HealthStream: handler.NewHealthStreamHandler(pipelineService, guard, flags,
			cfg.CORSAllowedOrigins, handler.DefaultStreamInterval, log),
		Guard:          guard,
		Limiter:        rateLimiter,
		Audit:          auditLogger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
	})

	// 9. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(router, "tenantsync"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Int("login_attempts", cfg.LoginAttempts),
		slog.Bool("health_stream", flags.Enabled(featureflags.HealthStream)),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
	return nil
}
