package sessions

import "time"

// Session binds exactly one user as the acting principal. Each login creates an
// independent session addressed by its own bearer token, so any number of
// sessions may be active in one process.
type Session struct {
	ID        string    // Unique session identifier (UUID), carried as the token's jti
	UserID    string    // The principal
	TenantID  string    // Principal's tenant at login time
	CreatedAt time.Time // When the session was established
	ExpiresAt time.Time // After this the session no longer resolves
}

// Expired reports whether the session is past its lifetime at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
