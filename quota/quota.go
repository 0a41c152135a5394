package quota

import (
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/tenants"
)

// CheckCreationAllowed decides whether tenant may hold one more note given the
// number it holds now. Free tenants are capped at MaxNotes; pro tenants are not.
// The count must be read inside the same serialisation point as the insert.
func CheckCreationAllowed(tenant *tenants.Tenant, currentNoteCount int) error {
	if tenant.Plan != tenants.PlanFree {
		return nil
	}
	if currentNoteCount >= tenant.MaxNotes {
		return apperrors.New(apperrors.KindQuotaExceeded,
			"note limit of %d reached for the %s plan; upgrade to pro for unlimited notes",
			tenant.MaxNotes, tenant.Plan)
	}
	return nil
}

// Remaining returns how many more notes the tenant may create, or -1 when
// unlimited.
func Remaining(tenant *tenants.Tenant, currentNoteCount int) int {
	if tenant.IsUnlimited() {
		return tenants.UnlimitedNotes
	}
	if left := tenant.MaxNotes - currentNoteCount; left > 0 {
		return left
	}
	return 0
}
