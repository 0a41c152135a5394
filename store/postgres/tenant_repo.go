package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/tenants"
)

var _ tenants.Repo = (*TenantRepo)(nil)

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

const tenantColumns = `id, name, slug, plan, max_notes, created_at`

func scanTenant(row scannable) (*tenants.Tenant, error) {
	var t tenants.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.MaxNotes, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepo) Create(ctx context.Context, tenant *tenants.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return apperrors.New(apperrors.KindValidation, "%s", err.Error())
	}
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.ID, tenant.Name, tenant.Slug, tenant.Plan, tenant.MaxNotes, tenant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.KindValidation, "tenant slug %q already exists", tenant.Slug)
		}
		return fmt.Errorf("create tenant %s: %w", tenant.Slug, err)
	}
	return nil
}

func (r *TenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, tenantID))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", tenantID)
	}
	return t, nil
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*tenants.Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant by slug %s", slug)
	}
	return t, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*tenants.Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	list := make([]*tenants.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TenantRepo) Upgrade(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx,
		`UPDATE tenants SET plan = $2, max_notes = $3 WHERE id = $1 RETURNING `+tenantColumns,
		tenantID, tenants.PlanPro, tenants.UnlimitedNotes))
	if err != nil {
		return nil, notFoundWrap(err, "upgrade tenant %s", tenantID)
	}
	return t, nil
}
