package sessions

import (
	"context"
	"time"
)

// Repo defines storage for active sessions.
type Repo interface {
	// Upsert creates or replaces a session
	Upsert(ctx context.Context, session *Session) error

	// Get retrieves a session by ID, wrapping errors.ErrNotFound when absent
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions that expired at or before the given time
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
