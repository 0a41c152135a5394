package service

import (
	"context"

	"github.com/jrsteele09/go-tenant-notes/access"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/invitations"
	"github.com/jrsteele09/go-tenant-notes/quota"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

// InviteResult acknowledges a sent invitation.
type InviteResult struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	Invitation *invitations.Invitation `json:"invitation"`
}

// TenantView is a tenant with its current note usage. NotesRemaining is -1
// when the plan is unlimited.
type TenantView struct {
	tenants.Tenant
	NoteCount      int `json:"noteCount"`
	NotesRemaining int `json:"notesRemaining"`
}

// GetTenant returns the principal's own tenant. Any other slug is refused
// without revealing whether it exists.
func (s *NotesService) GetTenant(ctx context.Context, token, slug string) (*TenantView, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	own, err := s.tenantOf(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, access.ActionTenantRead, targetTenant(own, slug)); err != nil {
		return nil, err
	}
	count, err := s.repos.Notes.CountByTenant(ctx, own.ID)
	if err != nil {
		return nil, storeErr(err, "counting notes")
	}
	return &TenantView{
		Tenant:         *own,
		NoteCount:      count,
		NotesRemaining: quota.Remaining(own, count),
	}, nil
}

// UpgradeTenant moves the principal's own tenant to the pro plan. Only admins
// may upgrade, and only their own tenant. Upgrading a pro tenant is a no-op.
func (s *NotesService) UpgradeTenant(ctx context.Context, token, slug string) (*tenants.Tenant, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	// The role gate is checked against the principal's own tenant first, so a
	// member is refused for their role whichever slug they name.
	if err := s.authorize(principal, access.ActionTenantUpgrade, access.Resource{TenantID: principal.TenantID}); err != nil {
		return nil, err
	}
	own, err := s.tenantOf(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, access.ActionTenantUpgrade, targetTenant(own, slug)); err != nil {
		return nil, err
	}
	if own.Plan == tenants.PlanPro {
		return own, nil
	}

	upgraded, err := s.repos.Tenants.Upgrade(ctx, own.ID)
	if err != nil {
		return nil, storeErr(err, "upgrading tenant")
	}
	if s.metrics != nil {
		s.metrics.TenantUpgrades.Inc()
	}
	log.Info().Str("tenant_id", upgraded.ID).Str("slug", upgraded.Slug).Str("user_id", principal.ID).Msg("Tenant upgraded to pro")
	return upgraded, nil
}

// InviteUser hands an invitation to the sender. No user record is created.
func (s *NotesService) InviteUser(ctx context.Context, token, email string, role users.RoleType) (*InviteResult, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, access.ActionUserInvite, access.Resource{TenantID: principal.TenantID}); err != nil {
		return nil, err
	}
	invitation, err := invitations.New(principal, email, role, s.nowTime())
	if err != nil {
		return nil, err
	}
	if err := s.invites.Send(ctx, invitation); err != nil {
		log.Err(err).Str("email", invitation.Email).Msg("Failed to send invitation")
		return nil, apperrors.Internal(err, "sending invitation")
	}
	if s.metrics != nil {
		s.metrics.Invitations.WithLabelValues(string(invitation.Role)).Inc()
	}
	return &InviteResult{
		Success:    true,
		Message:    invitation.Message(),
		Invitation: invitation,
	}, nil
}

// targetTenant is the resource named by slug. A slug other than the
// principal's own is left unresolved and so belongs to no tenant.
func targetTenant(own *tenants.Tenant, slug string) access.Resource {
	if own.Slug != slug {
		return access.Resource{}
	}
	return access.Resource{TenantID: own.ID}
}
