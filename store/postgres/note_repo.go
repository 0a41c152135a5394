package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/notes"
)

var _ notes.Repo = (*NoteRepo)(nil)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

const noteColumns = `id, title, content, created_at, updated_at, user_id, tenant_id`

func scanNote(row scannable) (*notes.Note, error) {
	var n notes.Note
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt, &n.UserID, &n.TenantID); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateWithinQuota locks the owning tenant's row for the length of the
// transaction, so creations in one tenant queue behind each other while other
// tenants proceed.
func (r *NoteRepo) CreateWithinQuota(ctx context.Context, note *notes.Note, check notes.QuotaCheck) error {
	if note.TenantID == "" {
		return apperrors.New(apperrors.KindValidation, "note has no tenant")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, note.TenantID).Scan(&locked); err != nil {
		return notFoundWrap(err, "lock tenant %s", note.TenantID)
	}

	if check != nil {
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM notes WHERE tenant_id = $1`, note.TenantID).Scan(&count); err != nil {
			return fmt.Errorf("count notes: %w", err)
		}
		if err := check(ctx, count); err != nil {
			return err
		}
	}

	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	note.CreatedAt = dbTime(note.CreatedAt)
	note.UpdatedAt = dbTime(note.UpdatedAt)
	if _, err := tx.Exec(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		note.ID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt, note.UserID, note.TenantID,
	); err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.KindValidation, "note id %q already exists", note.ID)
		}
		return fmt.Errorf("insert note: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create note: %w", err)
	}
	return nil
}

func (r *NoteRepo) Get(ctx context.Context, id string) (*notes.Note, error) {
	n, err := scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get note %s", id)
	}
	return n, nil
}

func (r *NoteRepo) ListByTenant(ctx context.Context, tenantID string) ([]*notes.Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	list := make([]*notes.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *NoteRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notes WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// Update locks the note row so concurrent edits apply one after another.
func (r *NoteRepo) Update(ctx context.Context, id string, fn func(n *notes.Note) error) (*notes.Note, error) {
	var updated *notes.Note
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		stored, err := scanNote(tx.QueryRow(ctx,
			`SELECT `+noteColumns+` FROM notes WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return notFoundWrap(err, "update note %s", id)
		}

		next := *stored
		if err := fn(&next); err != nil {
			return err
		}
		next.UpdatedAt = dbTime(next.UpdatedAt)
		notes.Reconcile(stored, &next)

		if _, err := tx.Exec(ctx,
			`UPDATE notes SET title = $2, content = $3, updated_at = $4 WHERE id = $1`,
			id, next.Title, next.Content, next.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update note %s: %w", id, err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *NoteRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete note %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
