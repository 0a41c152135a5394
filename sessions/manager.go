package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const defaultMaxAge = 24 * time.Hour

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equaliseTiming burns the same bcrypt work as a real password check so an
// unknown email cannot be told apart from a wrong password by response time.
func equaliseTiming(password string) {
	dummyHashOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
		dummyHash = string(h)
	})
	_ = users.CheckPasswordHash(password, dummyHash)
}

// Manager establishes and resolves sessions. It is the only component that
// changes who the acting principal is.
type Manager struct {
	users   users.UserRepo
	repo    Repo
	signer  *TokenSigner
	maxAge  time.Duration
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithMaxAge sets how long a session lives after login.
func WithMaxAge(maxAge time.Duration) ManagerOption {
	return func(m *Manager) {
		if maxAge > 0 {
			m.maxAge = maxAge
		}
	}
}

func NewManager(userRepo users.UserRepo, repo Repo, signingKey []byte, options ...ManagerOption) (*Manager, error) {
	if userRepo == nil {
		return nil, errors.New("[NewManager] Users repo is required")
	}
	if repo == nil {
		return nil, errors.New("[NewManager] Sessions repo is required")
	}
	signer, err := NewTokenSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("[NewManager] %w", err)
	}

	m := &Manager{
		users:   userRepo,
		repo:    repo,
		signer:  signer,
		maxAge:  defaultMaxAge,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Login verifies the credentials and establishes a new session. An unknown
// email and a wrong password fail identically with errors.ErrAuthentication.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, string, *users.User, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", nil, apperrors.Internal(err, "looking up user")
		}
		equaliseTiming(password)
		log.Info().Str("email", users.NormalizeEmail(email)).Msg("Login failed: unknown email")
		return nil, "", nil, apperrors.ErrAuthentication
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		log.Info().Str("user_id", user.ID).Msg("Login failed: wrong password")
		return nil, "", nil, apperrors.ErrAuthentication
	}

	now := m.nowTime()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TenantID:  user.TenantID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
	token, err := m.signer.Sign(session)
	if err != nil {
		return nil, "", nil, apperrors.Internal(err, "signing session token")
	}
	if err := m.repo.Upsert(ctx, session); err != nil {
		return nil, "", nil, apperrors.Internal(err, "storing session")
	}

	log.Info().Str("user_id", user.ID).Str("tenant_id", user.TenantID).Msg("Session established")
	return session, token, user, nil
}

// CurrentPrincipal returns the user bound to the token's session, or nil when
// there is no live session. An error is returned only for storage failures.
func (m *Manager) CurrentPrincipal(ctx context.Context, token string) (*users.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	now := m.nowTime()
	sessionID, err := m.signer.SessionID(token, now)
	if err != nil {
		return nil, nil
	}

	session, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal(err, "loading session")
	}
	if session.Expired(now) {
		_ = m.repo.Delete(ctx, sessionID)
		return nil, nil
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal(err, "loading session user")
	}
	if user.TenantID != session.TenantID {
		// A user never changes tenant; a mismatch means the record was replaced.
		return nil, nil
	}
	return user, nil
}

// IsAuthenticated reports whether the token resolves to a principal.
func (m *Manager) IsAuthenticated(ctx context.Context, token string) bool {
	user, err := m.CurrentPrincipal(ctx, token)
	return err == nil && user != nil
}

// Logout destroys the token's session. Unknown, expired or malformed tokens are
// a no-op, so calling Logout repeatedly is safe.
func (m *Manager) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	sessionID, err := m.signer.SessionIDIgnoringExpiry(token)
	if err != nil {
		return nil
	}
	return m.Invalidate(ctx, sessionID)
}

// Invalidate destroys a session by id.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		return apperrors.Internal(err, "deleting session")
	}
	return nil
}

// PurgeExpired removes every session past its lifetime.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	n, err := m.repo.DeleteExpired(ctx, m.nowTime())
	if err != nil {
		return 0, apperrors.Internal(err, "purging sessions")
	}
	if n > 0 {
		log.Debug().Int("count", n).Msg("Purged expired sessions")
	}
	return n, nil
}
