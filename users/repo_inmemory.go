package users

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
)

var _ UserRepo = (*InMemoryUserRepo)(nil)

type InMemoryUserRepo struct {
	lock     sync.RWMutex
	users    map[string]User
	emailIds map[string]string // email to user id
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		users:    make(map[string]User),
		emailIds: make(map[string]string),
	}
}

func (ur *InMemoryUserRepo) Create(_ context.Context, user *User) error {
	if !user.Role.Valid() {
		return apperrors.New(apperrors.KindValidation, "unknown role %q", user.Role)
	}
	if user.TenantID == "" {
		return apperrors.New(apperrors.KindValidation, "user %s has no tenant", user.Email)
	}
	email := NormalizeEmail(user.Email)
	if email == "" {
		return apperrors.New(apperrors.KindValidation, "email is required")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.emailIds[email]; ok {
		return apperrors.New(apperrors.KindValidation, "email %q already registered", email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = email
	ur.users[user.ID] = *user
	ur.emailIds[email] = user.ID
	return nil
}

func (ur *InMemoryUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", apperrors.ErrNotFound)
	}
	u := ur.users[id]
	return &u, nil
}

func (ur *InMemoryUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", id, apperrors.ErrNotFound)
	}
	return &u, nil
}

func (ur *InMemoryUserRepo) ListByTenant(_ context.Context, tenantID string) ([]*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*User, 0)
	for _, u := range ur.users {
		if u.TenantID != tenantID {
			continue
		}
		u := u
		list = append(list, &u)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})
	return list, nil
}
