package notes

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps notes in process memory. Creations are serialised per
// tenant; tenants never wait on each other.
type InMemoryRepo struct {
	mu          sync.RWMutex
	notes       map[string]Note
	counts      map[string]int // tenant id to note count
	tenantLocks map[string]*sync.Mutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		notes:       make(map[string]Note),
		counts:      make(map[string]int),
		tenantLocks: make(map[string]*sync.Mutex),
	}
}

func (r *InMemoryRepo) tenantLock(tenantID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.tenantLocks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		r.tenantLocks[tenantID] = l
	}
	return l
}

func (r *InMemoryRepo) CreateWithinQuota(ctx context.Context, note *Note, check QuotaCheck) error {
	if note.TenantID == "" {
		return apperrors.New(apperrors.KindValidation, "note has no tenant")
	}

	l := r.tenantLock(note.TenantID)
	l.Lock()
	defer l.Unlock()

	if check != nil {
		r.mu.RLock()
		count := r.counts[note.TenantID]
		r.mu.RUnlock()

		if err := check(ctx, count); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if _, ok := r.notes[note.ID]; ok {
		return apperrors.New(apperrors.KindValidation, "note id %q already exists", note.ID)
	}
	r.notes[note.ID] = *note
	r.counts[note.TenantID]++
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("get note %s: %w", id, apperrors.ErrNotFound)
	}
	return &n, nil
}

func (r *InMemoryRepo) ListByTenant(_ context.Context, tenantID string) ([]*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Note, 0, r.counts[tenantID])
	for _, n := range r.notes {
		if n.TenantID != tenantID {
			continue
		}
		n := n
		list = append(list, &n)
	}
	SortByCreation(list)
	return list, nil
}

func (r *InMemoryRepo) CountByTenant(_ context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[tenantID], nil
}

func (r *InMemoryRepo) Update(_ context.Context, id string, fn func(n *Note) error) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("update note %s: %w", id, apperrors.ErrNotFound)
	}

	updated := stored
	if err := fn(&updated); err != nil {
		return nil, err
	}
	Reconcile(&stored, &updated)
	r.notes[id] = updated
	return &updated, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[id]
	if !ok {
		return false, nil
	}
	delete(r.notes, id)
	r.counts[n.TenantID]--
	return true, nil
}

// Reconcile restores the fields an update may not change and keeps UpdatedAt
// monotonic with respect to the stored version.
func Reconcile(stored, updated *Note) {
	updated.ID = stored.ID
	updated.TenantID = stored.TenantID
	updated.UserID = stored.UserID
	updated.CreatedAt = stored.CreatedAt
	if updated.UpdatedAt.Before(stored.UpdatedAt) {
		updated.UpdatedAt = stored.UpdatedAt
	}
}

// SortByCreation orders notes by CreatedAt, breaking ties by id.
func SortByCreation(list []*Note) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
