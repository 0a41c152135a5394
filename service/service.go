package service

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-tenant-notes/access"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/internal/metrics"
	"github.com/jrsteele09/go-tenant-notes/invitations"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/sessions"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

// Repos holds all repository dependencies for the NotesService
type Repos struct {
	Tenants tenants.Repo   // Repository for tenant data
	Users   users.UserRepo // Repository for user data
	Notes   notes.Repo     // Repository for note data
}

// NotesService is the single entry point for every operation on tenants, users
// and notes. Each call resolves the principal from its session token, checks
// access, applies the plan quota when creating, and only then touches the store.
type NotesService struct {
	repos    Repos                 // All repository dependencies
	sessions *sessions.Manager     // Resolves tokens to principals
	invites  invitations.Sender    // Delivers user invitations
	metrics  *metrics.NotesMetrics // Optional
	nowTime  func() time.Time      // nowTime function (injectable for testing)
}

// NotesServiceOption defines a function type to modify the NotesService instance.
type NotesServiceOption func(*NotesService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) NotesServiceOption {
	return func(s *NotesService) {
		s.nowTime = nowFunc
	}
}

// WithInvitationSender replaces the default logging sender.
func WithInvitationSender(sender invitations.Sender) NotesServiceOption {
	return func(s *NotesService) {
		s.invites = sender
	}
}

// WithMetrics records denials, quota rejections and other events.
func WithMetrics(m *metrics.NotesMetrics) NotesServiceOption {
	return func(s *NotesService) {
		s.metrics = m
	}
}

// NewNotesService initializes a new NotesService with required dependencies.
func NewNotesService(repos Repos, sessionManager *sessions.Manager, options ...NotesServiceOption) (*NotesService, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewNotesService] Tenants repo is required")
	}
	if repos.Users == nil {
		return nil, errors.New("[NewNotesService] Users repo is required")
	}
	if repos.Notes == nil {
		return nil, errors.New("[NewNotesService] Notes repo is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewNotesService] session manager is required")
	}

	s := &NotesService{
		repos:    repos,
		sessions: sessionManager,
		invites:  invitations.NewLogSender(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// authenticate resolves the acting principal or fails with ErrUnauthorized.
func (s *NotesService) authenticate(ctx context.Context, token string) (*users.User, error) {
	principal, err := s.sessions.CurrentPrincipal(ctx, token)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		s.recordDenial("", access.ReasonUnauthorized)
		return nil, apperrors.ErrUnauthorized
	}
	return principal, nil
}

// authorize consults the access engine and converts a denial into its error.
func (s *NotesService) authorize(principal *users.User, action access.Action, resource access.Resource) error {
	decision := access.Authorize(principal, action, resource)
	if decision.Allowed {
		return nil
	}
	s.recordDenial(action, decision.Reason)
	log.Warn().
		Str("user_id", principal.ID).
		Str("tenant_id", principal.TenantID).
		Str("resource_tenant_id", resource.TenantID).
		Str("action", string(action)).
		Str("reason", string(decision.Reason)).
		Msg("Access denied")
	return decision.Err()
}

func (s *NotesService) recordDenial(action access.Action, reason access.Reason) {
	if s.metrics == nil {
		return
	}
	s.metrics.AccessDenials.WithLabelValues(string(action), string(reason)).Inc()
}

// tenantOf loads the principal's own tenant.
func (s *NotesService) tenantOf(ctx context.Context, principal *users.User) (*tenants.Tenant, error) {
	t, err := s.repos.Tenants.Get(ctx, principal.TenantID)
	if err != nil {
		return nil, storeErr(err, "loading tenant")
	}
	return t, nil
}

// storeErr passes typed errors through and wraps anything else as internal.
func storeErr(err error, action string) error {
	var typed *apperrors.Error
	if errors.As(err, &typed) {
		return err
	}
	log.Err(err).Msg(action)
	return apperrors.Internal(err, "%s", action)
}

// HealthStatus reports liveness.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health needs no session.
func (s *NotesService) Health(_ context.Context) HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: s.nowTime()}
}
