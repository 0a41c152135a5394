package users

import "context"

// UserRepo stores users. Emails are unique across all tenants and compared in
// their normalized form.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)
}
