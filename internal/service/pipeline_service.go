package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/pkg/cache"
)

const healthKeyPrefix = "health:"

// PipelineService exposes the pipeline switch and the derived health report
type PipelineService struct {
	tenants  domain.TenantRepository
	statuses domain.PipelineStatusRepository
	cache    *cache.Cache[domain.HealthReport]
	cacheTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewPipelineService creates a pipeline service. cacheTTL <= 0 disables health caching.
func NewPipelineService(
	tenants domain.TenantRepository,
	statuses domain.PipelineStatusRepository,
	healthCache *cache.Cache[domain.HealthReport],
	cacheTTL time.Duration,
	logger *slog.Logger,
) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	if healthCache == nil {
		healthCache = cache.New[domain.HealthReport]()
	}
	return &PipelineService{
		tenants:  tenants,
		statuses: statuses,
		cache:    healthCache,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Status returns the pipeline switch for tenantID. A tenant that never set
// one reports inactive.
func (s *PipelineService) Status(ctx context.Context, tenantID string) (*domain.PipelineStatus, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	status, err := s.statuses.Get(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.PipelineStatus{TenantID: tenantID, IsActive: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// SetStatus upserts the pipeline switch and drops the cached health report
func (s *PipelineService) SetStatus(ctx context.Context, tenantID string, active bool) (*domain.PipelineStatus, error) {
	status := &domain.PipelineStatus{TenantID: tenantID, IsActive: active}
	if err := s.statuses.Upsert(ctx, status); err != nil {
		return nil, err
	}
	s.cache.Delete(healthKeyPrefix + tenantID)

	s.logger.Info("pipeline status changed",
		slog.String("tenant_id", tenantID),
		slog.Bool("is_active", active),
	)
	return status, nil
}

// Health derives the health report: no status row or an active pipeline is
// green, an inactive one is red.
func (s *PipelineService) Health(ctx context.Context, tenantID string) (*domain.HealthReport, error) {
	key := healthKeyPrefix + tenantID
	if cached, ok := s.cache.Get(key); ok {
		metrics.ObserveHealthCache(true)
		return &cached, nil
	}
	metrics.ObserveHealthCache(false)

	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	active := true
	status, err := s.statuses.Get(ctx, tenantID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// never configured
	case err != nil:
		return nil, err
	default:
		active = status.IsActive
	}

	report := domain.HealthReport{
		TenantID:     tenantID,
		LastSyncTime: s.now(),
		LastError:    "No errors",
		Status:       domain.HealthGreen,
	}
	if !active {
		report.LastError = "Connection timeout"
		report.Status = domain.HealthRed
	}

	// may land after a concurrent SetStatus delete; the TTL bounds the staleness
	s.cache.Set(key, report, s.cacheTTL)
	return &report, nil
}
