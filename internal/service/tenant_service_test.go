package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
	"github.com/aryan0dhankhar/tenantsync/pkg/cache"
)

func TestTenantService_Create(t *testing.T) {
	tenants := newMemTenantRepo()
	svc := NewTenantService(tenants, &memSourceRepo{tenants: tenants}, nil)
	ctx := context.Background()

	tenant, err := svc.Create(ctx, CreateTenantRequest{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", tenant.Timezone)
	assert.NotEmpty(t, tenant.ID)

	_, err = svc.Create(ctx, CreateTenantRequest{Name: "", Email: "ops@acme.test"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, CreateTenantRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, CreateTenantRequest{Name: "Acme", Email: "ops@acme.test", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTenantService_SourceConfigs(t *testing.T) {
	tenants := newMemTenantRepo("t1")
	svc := NewTenantService(tenants, &memSourceRepo{tenants: tenants}, nil)
	ctx := context.Background()

	cfg, err := svc.AddSourceConfig(ctx, "t1", CreateSourceConfigRequest{
		DBHost: "db.internal", DBPort: 5432, DBUsername: "reader", DBPassword: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", cfg.TenantID)

	for _, port := range []int{0, -1, 65536} {
		_, err := svc.AddSourceConfig(ctx, "t1", CreateSourceConfigRequest{DBHost: "h", DBPort: port, DBUsername: "u"})
		assert.ErrorIs(t, err, ErrInvalidInput, "port %d", port)
	}
	_, err = svc.AddSourceConfig(ctx, "t1", CreateSourceConfigRequest{DBPort: 5432, DBUsername: "u"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddSourceConfig(ctx, "t9", CreateSourceConfigRequest{DBHost: "h", DBPort: 1, DBUsername: "u"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.ListSourceConfigs(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListSourceConfigs(ctx, "t9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func newPipelineService(ttl time.Duration) (*PipelineService, *memPipelineRepo) {
	statuses := newMemPipelineRepo()
	return NewPipelineService(newMemTenantRepo("t1"), statuses, cache.New[domain.HealthReport](), ttl, nil), statuses
}

func TestPipelineService_StatusDefaultsInactive(t *testing.T) {
	svc, _ := newPipelineService(0)
	status, err := svc.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, status.IsActive)

	_, err = svc.Status(context.Background(), "t9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipelineService_Health(t *testing.T) {
	svc, _ := newPipelineService(0)
	ctx := context.Background()

	report, err := svc.Health(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthGreen, report.Status, "no status row is green")
	assert.Equal(t, "No errors", report.LastError)

	_, err = svc.SetStatus(ctx, "t1", false)
	require.NoError(t, err)
	report, err = svc.Health(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthRed, report.Status)
	assert.Equal(t, "Connection timeout", report.LastError)

	_, err = svc.SetStatus(ctx, "t1", true)
	require.NoError(t, err)
	report, err = svc.Health(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthGreen, report.Status)

	_, err = svc.Health(ctx, "t9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipelineService_HealthCache(t *testing.T) {
	svc, statuses := newPipelineService(time.Minute)
	ctx := context.Background()

	_, err := svc.Health(ctx, "t1")
	require.NoError(t, err)
	_, err = svc.Health(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, statuses.gets, "second read is served from cache")

	_, err = svc.SetStatus(ctx, "t1", false)
	require.NoError(t, err)
	report, err := svc.Health(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthRed, report.Status, "status change invalidates the cache")
	assert.Equal(t, 2, statuses.gets)
}
