package notes

import (
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/internal/utils"
)

// Note is a text note owned by a tenant. Any user of the owning tenant may read,
// edit or delete it; UserID only records the creator.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    string    `json:"userId"`
	TenantID  string    `json:"tenantId"` // Immutable once set
}

// Edited reports whether the note was updated after creation.
func (n *Note) Edited() bool {
	return n.UpdatedAt.After(n.CreatedAt)
}

// Update is a partial edit. Nil fields are left untouched.
type Update struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Validate rejects an explicitly empty title.
func (u Update) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return apperrors.New(apperrors.KindValidation, "title must not be empty")
	}
	return nil
}

// ApplyTo copies the provided fields onto n and stamps the edit time.
func (u Update) ApplyTo(n *Note, now time.Time) {
	if u.Title != nil {
		n.Title = strings.TrimSpace(utils.Value(u.Title))
	}
	if u.Content != nil {
		n.Content = utils.Value(u.Content)
	}
	n.UpdatedAt = now
}

// ValidateTitle checks a title for a new note.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.New(apperrors.KindValidation, "title must not be empty")
	}
	return nil
}
