package notes

import "context"

// QuotaCheck is consulted by CreateWithinQuota with the tenant's note count as it
// stands before the candidate note is added. A non-nil error aborts the insert.
type QuotaCheck func(ctx context.Context, currentCount int) error

// Repo stores notes. Lookups wrap errors.ErrNotFound when the id does not resolve.
type Repo interface {
	// CreateWithinQuota runs check and the insert as one step with respect to other
	// creations in the same tenant, so concurrent creators cannot both pass a check
	// against the same count. A nil check always inserts.
	CreateWithinQuota(ctx context.Context, note *Note, check QuotaCheck) error

	Get(ctx context.Context, id string) (*Note, error)

	// ListByTenant returns the tenant's notes ordered by creation time, then id.
	ListByTenant(ctx context.Context, tenantID string) ([]*Note, error)

	CountByTenant(ctx context.Context, tenantID string) (int, error)

	// Update applies fn to the stored note atomically. Identity, ownership and
	// CreatedAt are restored after fn runs, and UpdatedAt never moves backwards.
	Update(ctx context.Context, id string, fn func(n *Note) error) (*Note, error)

	// Delete reports whether a note was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
