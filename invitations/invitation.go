package invitations

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

// Invitation asks someone to join a tenant with a given role. No user record
// exists until the invitee accepts, which is handled outside this service.
type Invitation struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Role      users.RoleType `json:"role"`
	TenantID  string         `json:"tenantId"`
	InvitedBy string         `json:"invitedBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

// New validates the invitee and builds an invitation from inviter.
func New(inviter *users.User, email string, role users.RoleType, now time.Time) (*Invitation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.New(apperrors.KindValidation, "email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.KindValidation, "email %q is not a valid address", email)
	}
	if !role.Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "role %q must be admin or member", role)
	}
	return &Invitation{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		TenantID:  inviter.TenantID,
		InvitedBy: inviter.ID,
		CreatedAt: now,
	}, nil
}

// Message is the acknowledgement shown to the inviter.
func (i *Invitation) Message() string {
	return fmt.Sprintf("Invitation sent to %s with role %s", i.Email, i.Role)
}

// Sender delivers invitations, e.g. by email.
type Sender interface {
	Send(ctx context.Context, invitation *Invitation) error
}

// LogSender records invitations in the log instead of delivering them. It keeps
// the ones it has seen so they can be inspected.
type LogSender struct {
	mu   sync.Mutex
	sent []Invitation
}

var _ Sender = (*LogSender)(nil)

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(_ context.Context, invitation *Invitation) error {
	s.mu.Lock()
	s.sent = append(s.sent, *invitation)
	s.mu.Unlock()

	log.Info().
		Str("invitation_id", invitation.ID).
		Str("email", invitation.Email).
		Str("role", string(invitation.Role)).
		Str("tenant_id", invitation.TenantID).
		Str("invited_by", invitation.InvitedBy).
		Msg("Invitation sent")
	return nil
}

// Sent returns a copy of the delivered invitations in send order.
func (s *LogSender) Sent() []Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invitation, len(s.sent))
	copy(out, s.sent)
	return out
}
