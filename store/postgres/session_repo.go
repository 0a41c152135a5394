package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrsteele09/go-tenant-notes/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

// SessionRepo keeps sessions across restarts.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Upsert(ctx context.Context, session *sessions.Session) error {
	if session.ID == "" {
		return fmt.Errorf("sessionID is required")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, tenant_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id, tenant_id = EXCLUDED.tenant_id,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		session.ID, session.UserID, session.TenantID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	var s sessions.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, tenant_id, created_at, expires_at
		FROM sessions WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.UserID, &s.TenantID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, notFoundWrap(err, "get session")
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
