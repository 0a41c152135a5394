package tenants

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a process-local tenant store. Records are copied on the way
// in and out so callers never share memory with the store.
type InMemoryRepo struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
	slugs   map[string]string // slug to tenant id
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tenants: make(map[string]Tenant),
		slugs:   make(map[string]string),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, tenant *Tenant) error {
	if err := tenant.Validate(); err != nil {
		return apperrors.New(apperrors.KindValidation, "%s", err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slugs[tenant.Slug]; ok {
		return apperrors.New(apperrors.KindValidation, "tenant slug %q already exists", tenant.Slug)
	}
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if _, ok := r.tenants[tenant.ID]; ok {
		return apperrors.New(apperrors.KindValidation, "tenant id %q already exists", tenant.ID)
	}
	r.tenants[tenant.ID] = *tenant
	r.slugs[tenant.Slug] = tenant.ID
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, tenantID string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, apperrors.ErrNotFound)
	}
	return &t, nil
}

func (r *InMemoryRepo) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugs[slug]
	if !ok {
		return nil, fmt.Errorf("get tenant by slug %s: %w", slug, apperrors.ErrNotFound)
	}
	t := r.tenants[id]
	return &t, nil
}

func (r *InMemoryRepo) List(_ context.Context) ([]*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		t := t
		list = append(list, &t)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Slug < list[j].Slug
	})
	return list, nil
}

func (r *InMemoryRepo) Upgrade(_ context.Context, tenantID string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("upgrade tenant %s: %w", tenantID, apperrors.ErrNotFound)
	}
	t.Upgrade()
	r.tenants[tenantID] = t
	return &t, nil
}
