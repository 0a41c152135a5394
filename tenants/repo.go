package tenants

import "context"

// Repo stores tenants. Get and GetBySlug wrap errors.ErrNotFound when nothing
// matches; Create rejects a duplicate slug.
type Repo interface {
	Create(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)

	// Upgrade atomically moves the tenant to the pro plan and returns the result.
	Upgrade(ctx context.Context, tenantID string) (*Tenant, error)
}
