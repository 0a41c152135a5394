package service

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-tenant-notes/access"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/quota"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

// NoteUpdate is a partial edit; nil fields are left as they are.
type NoteUpdate = notes.Update

// CreateNote adds a note to the principal's tenant, subject to the plan quota.
func (s *NotesService) CreateNote(ctx context.Context, token, title, content string) (*notes.Note, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, access.ActionNoteCreate, access.Resource{TenantID: principal.TenantID}); err != nil {
		return nil, err
	}
	if err := notes.ValidateTitle(title); err != nil {
		return nil, err
	}

	now := s.nowTime()
	note := &notes.Note{
		Title:     strings.TrimSpace(title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    principal.ID,
		TenantID:  principal.TenantID,
	}

	// Plans only move from free to pro, so a tenant read before the lock can at
	// worst refuse a creation that races an upgrade. The count is read under it.
	tenant, err := s.tenantOf(ctx, principal)
	if err != nil {
		return nil, err
	}
	err = s.repos.Notes.CreateWithinQuota(ctx, note, func(_ context.Context, count int) error {
		return quota.CheckCreationAllowed(tenant, count)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrQuotaExceeded) {
			s.recordQuotaRejection(principal)
			return nil, err
		}
		return nil, storeErr(err, "creating note")
	}

	if s.metrics != nil {
		s.metrics.NotesCreated.WithLabelValues(string(tenant.Plan)).Inc()
	}
	log.Info().Str("note_id", note.ID).Str("tenant_id", note.TenantID).Str("user_id", note.UserID).Msg("Note created")
	return note, nil
}

// GetNotes lists every note of the principal's tenant, oldest first.
func (s *NotesService) GetNotes(ctx context.Context, token string) ([]*notes.Note, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, access.ActionNoteRead, access.Resource{TenantID: principal.TenantID}); err != nil {
		return nil, err
	}
	list, err := s.repos.Notes.ListByTenant(ctx, principal.TenantID)
	if err != nil {
		return nil, storeErr(err, "listing notes")
	}
	return list, nil
}

// GetNote returns one note of the principal's tenant. Notes of other tenants
// are reported as not found.
func (s *NotesService) GetNote(ctx context.Context, token, id string) (*notes.Note, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.resolveNote(ctx, principal, id, access.ActionNoteRead)
}

// UpdateNote applies the provided fields and refreshes UpdatedAt. Either the
// whole update is applied or none of it.
func (s *NotesService) UpdateNote(ctx context.Context, token, id string, update NoteUpdate) (*notes.Note, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolveNote(ctx, principal, id, access.ActionNoteUpdate); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repos.Notes.Update(ctx, id, func(n *notes.Note) error {
		update.ApplyTo(n, s.nowTime())
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Deleted between resolution and update.
			return nil, noteNotFound(id)
		}
		return nil, storeErr(err, "updating note")
	}
	return updated, nil
}

// DeleteNote removes a note of the principal's tenant and reports whether it
// was removed by this call.
func (s *NotesService) DeleteNote(ctx context.Context, token, id string) (bool, error) {
	principal, err := s.authenticate(ctx, token)
	if err != nil {
		return false, err
	}
	if _, err := s.resolveNote(ctx, principal, id, access.ActionNoteDelete); err != nil {
		return false, err
	}
	deleted, err := s.repos.Notes.Delete(ctx, id)
	if err != nil {
		return false, storeErr(err, "deleting note")
	}
	if deleted {
		log.Info().Str("note_id", id).Str("tenant_id", principal.TenantID).Str("user_id", principal.ID).Msg("Note deleted")
	}
	return deleted, nil
}

// resolveNote loads the note and authorizes action on it. A cross-tenant note
// is indistinguishable from a missing one.
func (s *NotesService) resolveNote(ctx context.Context, principal *users.User, id string, action access.Action) (*notes.Note, error) {
	note, err := s.repos.Notes.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, noteNotFound(id)
		}
		return nil, storeErr(err, "loading note")
	}
	if err := s.authorize(principal, action, access.Resource{TenantID: note.TenantID}); err != nil {
		if apperrors.Is(err, apperrors.ErrAccessDenied) {
			return nil, noteNotFound(id)
		}
		return nil, err
	}
	return note, nil
}

func noteNotFound(id string) error {
	return apperrors.New(apperrors.KindNotFound, "note %s not found", id)
}

func (s *NotesService) recordQuotaRejection(principal *users.User) {
	log.Info().Str("tenant_id", principal.TenantID).Str("user_id", principal.ID).Msg("Note creation rejected: plan limit reached")
	if s.metrics != nil {
		s.metrics.QuotaRejections.WithLabelValues(principal.TenantID).Inc()
	}
}
