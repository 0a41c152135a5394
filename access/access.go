// Package access decides whether a principal may perform an action on a
// resource. It holds no state and performs no I/O.
package access

import (
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/users"
)

// Action is an operation a principal attempts.
type Action string

const (
	ActionNoteCreate    Action = "note:create"
	ActionNoteRead      Action = "note:read"
	ActionNoteUpdate    Action = "note:update"
	ActionNoteDelete    Action = "note:delete"
	ActionTenantRead    Action = "tenant:read"
	ActionTenantUpgrade Action = "tenant:upgrade"
	ActionUserInvite    Action = "user:invite"
)

// RequiresAdmin reports whether only tenant admins may perform the action.
func (a Action) RequiresAdmin() bool {
	return a == ActionTenantUpgrade || a == ActionUserInvite
}

// Resource is the target of an action, identified for access purposes by the
// tenant that owns it.
type Resource struct {
	TenantID string
}

// Reason explains a denial.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnauthorized      Reason = "unauthorized"
	ReasonCrossTenantAccess Reason = "cross_tenant_access"
	ReasonInsufficientRole  Reason = "insufficient_role"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Authorize evaluates the rules in order; the first that matches decides.
//  1. no principal: Unauthorized
//  2. resource in another tenant: CrossTenantAccess, whatever the role
//  3. admin-only action by a non-admin: InsufficientRole
//  4. otherwise allowed
//
// Note CRUD only needs the tenant to match; both roles may do all of it.
func Authorize(principal *users.User, action Action, resource Resource) Decision {
	if principal == nil {
		return deny(ReasonUnauthorized)
	}
	if resource.TenantID == "" || resource.TenantID != principal.TenantID {
		return deny(ReasonCrossTenantAccess)
	}
	if action.RequiresAdmin() && !principal.IsAdmin() {
		return deny(ReasonInsufficientRole)
	}
	return allow
}

// Err converts a denial into the typed error reported to callers. Allowed
// decisions convert to nil.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthorized:
		return apperrors.ErrUnauthorized
	case d.Reason == ReasonInsufficientRole:
		return apperrors.ErrInsufficientRole
	default:
		return apperrors.ErrAccessDenied
	}
}
