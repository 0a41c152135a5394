package tenants

import (
	"fmt"
	"time"
)

// Plan is a tenant's subscription tier.
type Plan string

const (
	PlanFree Plan = "free" // Bounded note quota
	PlanPro  Plan = "pro"  // Unlimited notes
)

// UnlimitedNotes is the MaxNotes value of a pro tenant.
const UnlimitedNotes = -1

// DefaultFreeMaxNotes is the quota given to newly provisioned free tenants.
const DefaultFreeMaxNotes = 3

// Tenant is an isolated organisation owning users and notes. It is the unit of
// billing and of data isolation.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"` // Unique and immutable
	Plan      Plan      `json:"plan"`
	MaxNotes  int       `json:"maxNotes"` // -1 means unlimited
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the plan/quota invariant: pro tenants are unlimited and free
// tenants have a non-negative quota.
func (t *Tenant) Validate() error {
	if t.Slug == "" {
		return fmt.Errorf("tenant slug is required")
	}
	switch t.Plan {
	case PlanPro:
		if t.MaxNotes != UnlimitedNotes {
			return fmt.Errorf("pro tenant %s must have unlimited notes, got %d", t.Slug, t.MaxNotes)
		}
	case PlanFree:
		if t.MaxNotes < 0 {
			return fmt.Errorf("free tenant %s must have a non-negative note limit, got %d", t.Slug, t.MaxNotes)
		}
	default:
		return fmt.Errorf("tenant %s has unknown plan %q", t.Slug, t.Plan)
	}
	return nil
}

// Upgrade moves the tenant to the pro plan. There is no way back.
func (t *Tenant) Upgrade() {
	t.Plan = PlanPro
	t.MaxNotes = UnlimitedNotes
}

func (t *Tenant) IsUnlimited() bool {
	return t.Plan == PlanPro || t.MaxNotes == UnlimitedNotes
}
