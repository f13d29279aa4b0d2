package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aryan0dhankhar/tenantsync/pkg/database"
)

// devJWTSecret is only accepted when ENVIRONMENT=development
const devJWTSecret = "tenantsync-development-secret"

// ErrMissingSecret is returned when JWT_SECRET is unset outside development
var ErrMissingSecret = errors.New("JWT_SECRET must be set outside development")

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	Database           *database.Config
	RedisURL           string // empty disables the shared login counter
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	DefaultTokenTTL    time.Duration
	BcryptCost         int
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	LoginAttempts      int // per client IP and per username, each minute
	HealthCacheTTL     time.Duration
	BootstrapAdmin     string
	BootstrapPassword  string
	OTLPEndpoint       string
	TraceSampleRatio   float64
}

// IsDevelopment reports whether the service runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getInt("ACCESS_TOKEN_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	defaultTTL, err := getInt("DEFAULT_TOKEN_TTL_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	bcryptCost, err := getInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}
	loginAttempts, err := getInt("LOGIN_ATTEMPTS_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	healthCache, err := getInt("HEALTH_CACHE_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	sampleRatio, err := strconv.ParseFloat(getEnv("OTEL_TRACES_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_TRACES_SAMPLE_RATIO: %w", err)
	}

	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Database:           db,
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "tenantsync"),
		AccessTokenTTL:     time.Duration(tokenTTL) * time.Minute,
		DefaultTokenTTL:    time.Duration(defaultTTL) * time.Minute,
		BcryptCost:         bcryptCost,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute: rateLimit,
		LoginAttempts:      loginAttempts,
		HealthCacheTTL:     time.Duration(healthCache) * time.Second,
		BootstrapAdmin:     os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapPassword:  os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:   sampleRatio,
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, ErrMissingSecret
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MINUTES: must be positive")
	}
	if cfg.BootstrapAdmin != "" && cfg.BootstrapPassword == "" {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_USERNAME is set")
	}

	return cfg, nil
}

func loadDatabase() (*database.Config, error) {
	db := database.DefaultConfig()
	db.URL = os.Getenv("DATABASE_URL")
	db.Host = getEnv("DB_HOST", db.Host)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Database = getEnv("DB_NAME", db.Database)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)

	port, err := getInt("DB_PORT", db.Port)
	if err != nil {
		return nil, err
	}
	db.Port = port
	return db, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
