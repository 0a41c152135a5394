package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/internal/metrics"
	"github.com/jrsteele09/go-tenant-notes/internal/utils"
	"github.com/jrsteele09/go-tenant-notes/invitations"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/jrsteele09/go-tenant-notes/sessions"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	acmeAdmin    = "admin@acme.test"
	acmeMember   = "user@acme.test"
	globexAdmin  = "admin@globex.test"
	globexMember = "user@globex.test"
	testPassword = "password"
)

type testFixture struct {
	ctx     context.Context
	repos   service.Repos
	svc     *service.NotesService
	sender  *invitations.LogSender
	metrics *metrics.NotesMetrics
	acme    *tenants.Tenant
	globex  *tenants.Tenant

	mu  sync.Mutex
	now time.Time
}

func (f *testFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		ctx: context.Background(),
		repos: service.Repos{
			Tenants: tenants.NewInMemoryRepo(),
			Users:   users.NewInMemoryUserRepo(),
			Notes:   notes.NewInMemoryRepo(),
		},
		sender:  invitations.NewLogSender(),
		metrics: metrics.NewNotesMetricsWithRegistry(prometheus.NewRegistry()),
		now:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}

	f.acme = &tenants.Tenant{Name: "Acme Corp", Slug: "acme", Plan: tenants.PlanFree, MaxNotes: 3, CreatedAt: f.now}
	f.globex = &tenants.Tenant{Name: "Globex Corporation", Slug: "globex", Plan: tenants.PlanPro, MaxNotes: tenants.UnlimitedNotes, CreatedAt: f.now}
	require.NoError(t, f.repos.Tenants.Create(f.ctx, f.acme))
	require.NoError(t, f.repos.Tenants.Create(f.ctx, f.globex))

	hash, err := users.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	for _, u := range []users.User{
		{Email: acmeAdmin, Name: "John Admin", Role: users.RoleAdmin, TenantID: f.acme.ID},
		{Email: acmeMember, Name: "Jane User", Role: users.RoleMember, TenantID: f.acme.ID},
		{Email: globexAdmin, Name: "Bob Admin", Role: users.RoleAdmin, TenantID: f.globex.ID},
		{Email: globexMember, Name: "Alice User", Role: users.RoleMember, TenantID: f.globex.ID},
	} {
		u := u
		u.PasswordHash = hash
		require.NoError(t, f.repos.Users.Create(f.ctx, &u))
	}

	manager, err := sessions.NewManager(f.repos.Users, sessions.NewInMemoryRepo(), []byte("test-secret"),
		sessions.WithNowTime(f.clock))
	require.NoError(t, err)

	f.svc, err = service.NewNotesService(f.repos, manager,
		service.WithNowTime(f.clock),
		service.WithInvitationSender(f.sender),
		service.WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	return f
}

func (f *testFixture) login(t *testing.T, email string) string {
	t.Helper()
	result, err := f.svc.Login(f.ctx, email, testPassword)
	require.NoError(t, err)
	return result.Token
}

func TestNewNotesService_RequiresDependencies(t *testing.T) {
	f := setupTestFixture(t)
	manager, err := sessions.NewManager(f.repos.Users, sessions.NewInMemoryRepo(), []byte("k"))
	require.NoError(t, err)

	_, err = service.NewNotesService(service.Repos{Users: f.repos.Users, Notes: f.repos.Notes}, manager)
	require.Error(t, err)
	_, err = service.NewNotesService(service.Repos{Tenants: f.repos.Tenants, Notes: f.repos.Notes}, manager)
	require.Error(t, err)
	_, err = service.NewNotesService(service.Repos{Tenants: f.repos.Tenants, Users: f.repos.Users}, manager)
	require.Error(t, err)
	_, err = service.NewNotesService(f.repos, nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.svc.Login(f.ctx, acmeAdmin, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, acmeAdmin, result.User.Email)
	require.Equal(t, f.acme.ID, result.User.TenantID)
	require.Empty(t, result.User.PasswordHash, "password material never leaves the service")
	require.Equal(t, "acme", result.User.TenantSlug)
	require.Equal(t, "Acme Corp", result.User.TenantName)

	_, err = f.svc.Login(f.ctx, acmeAdmin, "wrong")
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	_, err = f.svc.Login(f.ctx, "nobody@acme.test", testPassword)
	require.ErrorIs(t, err, apperrors.ErrAuthentication)

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues("failure")))
}

func TestOperations_RequireSession(t *testing.T) {
	f := setupTestFixture(t)
	for _, token := range []string{"", "garbage"} {
		_, err := f.svc.CreateNote(f.ctx, token, "t", "")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.GetNotes(f.ctx, token)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.GetNote(f.ctx, token, "id")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.UpdateNote(f.ctx, token, "id", service.NoteUpdate{})
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.DeleteNote(f.ctx, token, "id")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.UpgradeTenant(f.ctx, token, "acme")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.InviteUser(f.ctx, token, "x@acme.test", users.RoleMember)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.GetTenant(f.ctx, token, "acme")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		_, err = f.svc.CurrentUser(f.ctx, token)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
}

func TestAcmeScenario(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, acmeAdmin)
	member := f.login(t, acmeMember)

	for i, token := range []string{admin, member, admin} {
		_, err := f.svc.CreateNote(f.ctx, token, "note", "")
		require.NoError(t, err, "note %d", i+1)
	}

	_, err := f.svc.CreateNote(f.ctx, member, "fourth", "")
	require.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuotaRejections.WithLabelValues(f.acme.ID)))

	_, err = f.svc.UpgradeTenant(f.ctx, member, "acme")
	require.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	upgraded, err := f.svc.UpgradeTenant(f.ctx, admin, "acme")
	require.NoError(t, err)
	require.Equal(t, tenants.PlanPro, upgraded.Plan)
	require.Equal(t, tenants.UnlimitedNotes, upgraded.MaxNotes)

	_, err = f.svc.CreateNote(f.ctx, member, "fourth", "")
	require.NoError(t, err)

	list, err := f.svc.GetNotes(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 4)
}

func TestTenantIsolation(t *testing.T) {
	f := setupTestFixture(t)
	acme := f.login(t, acmeAdmin)
	globex := f.login(t, globexMember)

	foreign, err := f.svc.CreateNote(f.ctx, globex, "Globex secret", "plans")
	require.NoError(t, err)
	own, err := f.svc.CreateNote(f.ctx, acme, "Acme note", "")
	require.NoError(t, err)

	list, err := f.svc.GetNotes(f.ctx, acme)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, own.ID, list[0].ID)

	_, err = f.svc.GetNote(f.ctx, acme, foreign.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.UpdateNote(f.ctx, acme, foreign.ID, service.NoteUpdate{Title: utils.Ptr("mine now")})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.DeleteNote(f.ctx, acme, foreign.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.GetNote(f.ctx, acme, "does-not-exist")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.svc.GetNote(f.ctx, globex, foreign.ID)
	require.NoError(t, err)
	require.Equal(t, "Globex secret", got.Title, "foreign attempts leave the note untouched")
}

func TestRoleGating(t *testing.T) {
	f := setupTestFixture(t)
	member := f.login(t, acmeMember)

	for _, slug := range []string{"acme", "globex", "missing"} {
		_, err := f.svc.UpgradeTenant(f.ctx, member, slug)
		require.ErrorIs(t, err, apperrors.ErrInsufficientRole, slug)
	}
	_, err := f.svc.InviteUser(f.ctx, member, "new@acme.test", users.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrInsufficientRole)
	require.Empty(t, f.sender.Sent())

	acme, err := f.repos.Tenants.Get(f.ctx, f.acme.ID)
	require.NoError(t, err)
	require.Equal(t, tenants.PlanFree, acme.Plan)
}

func TestUpgradeTenant(t *testing.T) {
	f := setupTestFixture(t)
	acmeToken := f.login(t, acmeAdmin)
	globexToken := f.login(t, globexAdmin)

	t.Run("other tenant", func(t *testing.T) {
		_, err := f.svc.UpgradeTenant(f.ctx, acmeToken, "globex")
		require.ErrorIs(t, err, apperrors.ErrAccessDenied)
		_, err = f.svc.UpgradeTenant(f.ctx, acmeToken, "unknown")
		require.ErrorIs(t, err, apperrors.ErrAccessDenied)
	})

	t.Run("already pro", func(t *testing.T) {
		tenant, err := f.svc.UpgradeTenant(f.ctx, globexToken, "globex")
		require.NoError(t, err)
		require.Equal(t, tenants.PlanPro, tenant.Plan)
		require.Zero(t, testutil.ToFloat64(f.metrics.TenantUpgrades))
	})

	t.Run("own tenant", func(t *testing.T) {
		tenant, err := f.svc.UpgradeTenant(f.ctx, acmeToken, "acme")
		require.NoError(t, err)
		require.Equal(t, tenants.PlanPro, tenant.Plan)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TenantUpgrades))
	})
}

func TestGetTenant(t *testing.T) {
	f := setupTestFixture(t)
	member := f.login(t, acmeMember)

	tenant, err := f.svc.GetTenant(f.ctx, member, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", tenant.Name)
	require.Zero(t, tenant.NoteCount)
	require.Equal(t, 3, tenant.NotesRemaining)

	_, err = f.svc.CreateNote(f.ctx, member, "first", "")
	require.NoError(t, err)
	tenant, err = f.svc.GetTenant(f.ctx, member, "acme")
	require.NoError(t, err)
	require.Equal(t, 1, tenant.NoteCount)
	require.Equal(t, 2, tenant.NotesRemaining)

	globex, err := f.svc.GetTenant(f.ctx, f.login(t, globexMember), "globex")
	require.NoError(t, err)
	require.Equal(t, tenants.UnlimitedNotes, globex.NotesRemaining)

	_, err = f.svc.GetTenant(f.ctx, member, "globex")
	require.ErrorIs(t, err, apperrors.ErrAccessDenied)
}

func TestCreateNote(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, acmeMember)

	note, err := f.svc.CreateNote(f.ctx, token, "  Title  ", "")
	require.NoError(t, err)
	require.Equal(t, "Title", note.Title)
	require.Empty(t, note.Content)
	require.Equal(t, f.acme.ID, note.TenantID)
	require.Equal(t, f.clock(), note.CreatedAt)
	require.Equal(t, note.CreatedAt, note.UpdatedAt)
	require.False(t, note.Edited())

	for _, title := range []string{"", "   "} {
		_, err := f.svc.CreateNote(f.ctx, token, title, "content")
		require.ErrorIs(t, err, apperrors.ErrValidation)
	}

	count, err := f.repos.Notes.CountByTenant(f.ctx, f.acme.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count, "rejected creations are not stored")
}

func TestUpdateNote(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, acmeMember)

	note, err := f.svc.CreateNote(f.ctx, token, "Original", "body")
	require.NoError(t, err)

	f.advance(time.Minute)
	first, err := f.svc.UpdateNote(f.ctx, token, note.ID, service.NoteUpdate{Content: utils.Ptr("new body")})
	require.NoError(t, err)
	require.Equal(t, "Original", first.Title, "omitted fields are untouched")
	require.Equal(t, "new body", first.Content)

	f.advance(time.Minute)
	second, err := f.svc.UpdateNote(f.ctx, token, note.ID, service.NoteUpdate{Title: utils.Ptr("Renamed")})
	require.NoError(t, err)

	require.Equal(t, note.CreatedAt, first.CreatedAt)
	require.Equal(t, note.CreatedAt, second.CreatedAt)
	require.True(t, first.UpdatedAt.After(note.CreatedAt))
	require.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	t.Run("empty title rejected without partial apply", func(t *testing.T) {
		_, err := f.svc.UpdateNote(f.ctx, token, note.ID, service.NoteUpdate{Title: utils.Ptr(""), Content: utils.Ptr("lost")})
		require.ErrorIs(t, err, apperrors.ErrValidation)

		got, err := f.svc.GetNote(f.ctx, token, note.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Title)
		require.Equal(t, "new body", got.Content)
	})
}

func TestDeleteNote(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, acmeAdmin)
	member := f.login(t, acmeMember)

	note, err := f.svc.CreateNote(f.ctx, admin, "shared", "")
	require.NoError(t, err)

	deleted, err := f.svc.DeleteNote(f.ctx, member, note.ID)
	require.NoError(t, err, "any user of the tenant may delete any of its notes")
	require.True(t, deleted)

	_, err = f.svc.DeleteNote(f.ctx, member, note.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConcurrentCreationsAtLimit(t *testing.T) {
	f := setupTestFixture(t)
	tokens := []string{f.login(t, acmeAdmin), f.login(t, acmeMember)}

	const attempts = 40
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, err := f.svc.CreateNote(f.ctx, token, "race", "")
			errs <- err
		}(tokens[i%len(tokens)])
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	}
	require.Equal(t, f.acme.MaxNotes, succeeded)

	count, err := f.repos.Notes.CountByTenant(f.ctx, f.acme.ID)
	require.NoError(t, err)
	require.Equal(t, f.acme.MaxNotes, count)
}

func TestInviteUser(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, acmeAdmin)

	result, err := f.svc.InviteUser(f.ctx, admin, "new@acme.test", users.RoleMember)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "Invitation sent to new@acme.test with role member", result.Message)
	require.Len(t, f.sender.Sent(), 1)
	require.Equal(t, f.acme.ID, f.sender.Sent()[0].TenantID)

	_, err = f.repos.Users.GetByEmail(f.ctx, "new@acme.test")
	require.ErrorIs(t, err, apperrors.ErrNotFound, "invitations do not create users")

	_, err = f.svc.InviteUser(f.ctx, admin, "not-an-email", users.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.svc.InviteUser(f.ctx, admin, "", users.RoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, acmeAdmin)

	user, err := f.svc.CurrentUser(f.ctx, token)
	require.NoError(t, err)
	require.Equal(t, acmeAdmin, user.Email)
	require.Equal(t, "acme", user.TenantSlug)

	require.NoError(t, f.svc.Logout(f.ctx, token))
	require.NoError(t, f.svc.Logout(f.ctx, token))

	_, err = f.svc.CurrentUser(f.ctx, token)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = f.svc.GetNotes(f.ctx, token)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	h := f.svc.Health(f.ctx)
	require.Equal(t, "ok", h.Status)
	require.Equal(t, f.clock(), h.Timestamp)
}
