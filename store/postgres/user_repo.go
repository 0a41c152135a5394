package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/users"
)

var _ users.UserRepo = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, name, role, tenant_id, password_hash`

func scanUser(row scannable) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.TenantID, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	if !user.Role.Valid() {
		return apperrors.New(apperrors.KindValidation, "unknown role %q", user.Role)
	}
	if user.TenantID == "" {
		return apperrors.New(apperrors.KindValidation, "user %s has no tenant", user.Email)
	}
	email := users.NormalizeEmail(user.Email)
	if email == "" {
		return apperrors.New(apperrors.KindValidation, "email is required")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = email

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.Role, user.TenantID, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.KindValidation, "email %q already registered", email)
		}
		return fmt.Errorf("create user %s: %w", email, err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, users.NormalizeEmail(email)))
	if err != nil {
		return nil, notFoundWrap(err, "get user by email")
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return u, nil
}

func (r *UserRepo) ListByTenant(ctx context.Context, tenantID string) ([]*users.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY email`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := make([]*users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
