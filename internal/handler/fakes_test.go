package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
)

type memUserRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
	err        error
	lookups    int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byUsername: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUsername[u.Username]; ok {
		return fmt.Errorf("username %q: %w", u.Username, domain.ErrConflict)
	}
	if u.ID == "" {
		u.ID = fmt.Sprintf("u-%d", len(m.byID)+1)
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byUsername[u.Username] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byUsername, u.Username)
	return nil
}

func (m *memUserRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.User{}
	for _, u := range m.byID {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	order   []string
}

func newMemTenantRepo(ids ...string) *memTenantRepo {
	r := &memTenantRepo{tenants: map[string]*domain.Tenant{}}
	for _, id := range ids {
		r.tenants[id] = &domain.Tenant{ID: id, Name: id, Email: id + "@example.com", Timezone: "UTC"}
		r.order = append(r.order, id)
	}
	return r
}

func (r *memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = fmt.Sprintf("t-%d", len(r.tenants)+1)
	}
	t.CreatedAt = time.Now()
	r.tenants[t.ID] = t
	r.order = append(r.order, t.ID)
	return nil
}

func (r *memTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Tenant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tenants[id])
	}
	return out, nil
}

type memSourceRepo struct {
	mu      sync.Mutex
	tenants *memTenantRepo
	configs []*domain.SourceConfig
}

func (r *memSourceRepo) Create(ctx context.Context, cfg *domain.SourceConfig) error {
	if _, err := r.tenants.GetByID(ctx, cfg.TenantID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.ID = fmt.Sprintf("s-%d", len(r.configs)+1)
	r.configs = append(r.configs, cfg)
	return nil
}

func (r *memSourceRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.SourceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.SourceConfig{}
	for _, c := range r.configs {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memPipelineRepo struct {
	mu       sync.Mutex
	statuses map[string]domain.PipelineStatus
	gets     int
}

func newMemPipelineRepo() *memPipelineRepo {
	return &memPipelineRepo{statuses: map[string]domain.PipelineStatus{}}
}

func (r *memPipelineRepo) Get(_ context.Context, tenantID string) (*domain.PipelineStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	s, ok := r.statuses[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memPipelineRepo) Upsert(_ context.Context, s *domain.PipelineStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = time.Now()
	r.statuses[s.TenantID] = *s
	return nil
}
