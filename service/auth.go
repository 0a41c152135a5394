package service

import (
	"context"
	"time"

	"github.com/jrsteele09/go-tenant-notes/users"
)

// Principal is the acting user as shown to clients. The tenant slug is what
// GetTenant and UpgradeTenant take.
type Principal struct {
	users.User
	TenantSlug string `json:"tenantSlug"`
	TenantName string `json:"tenantName"`
}

// LoginResult is returned by a successful login. Token is the bearer credential
// for every subsequent call.
type LoginResult struct {
	User      Principal `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login establishes a new session. The user is returned without password
// material.
func (s *NotesService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	session, token, user, err := s.sessions.Login(ctx, email, password)
	if err != nil {
		s.recordLogin(false)
		return nil, err
	}
	principal, err := s.principalView(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recordLogin(true)
	return &LoginResult{
		User:      *principal,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout ends the token's session. Calling it without a live session is a no-op.
func (s *NotesService) Logout(ctx context.Context, token string) error {
	return s.sessions.Logout(ctx, token)
}

// CurrentUser returns the principal's profile.
func (s *NotesService) CurrentUser(ctx context.Context, token string) (*Principal, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.principalView(ctx, principal)
}

// principalView strips password material and names the user's tenant.
func (s *NotesService) principalView(ctx context.Context, user *users.User) (*Principal, error) {
	tenant, err := s.tenantOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Principal{
		User:       user.Public(),
		TenantSlug: tenant.Slug,
		TenantName: tenant.Name,
	}, nil
}

func (s *NotesService) recordLogin(ok bool) {
	if s.metrics == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	s.metrics.Logins.WithLabelValues(outcome).Inc()
}
