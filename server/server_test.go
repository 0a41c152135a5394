package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jrsteele09/go-tenant-notes/internal/config"
	"github.com/jrsteele09/go-tenant-notes/internal/metrics"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/server"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/jrsteele09/go-tenant-notes/sessions"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	ctx    context.Context
	repos  service.Repos
	server *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	return setupTestFixtureWithBurst(t, 100)
}

func setupTestFixtureWithBurst(t *testing.T, loginBurst int) *testFixture {
	t.Helper()

	t.Setenv("ENV", "TEST")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://app.test")
	t.Setenv("LOGIN_RATE_PER_SECOND", "0.001")
	t.Setenv("LOGIN_BURST", strconv.Itoa(loginBurst))
	cfg, err := config.New()
	require.NoError(t, err)

	f := &testFixture{
		ctx: context.Background(),
		repos: service.Repos{
			Tenants: tenants.NewInMemoryRepo(),
			Users:   users.NewInMemoryUserRepo(),
			Notes:   notes.NewInMemoryRepo(),
		},
	}
	require.NoError(t, server.SeedDemoData(f.ctx, f.repos))

	manager, err := sessions.NewManager(f.repos.Users, sessions.NewInMemoryRepo(), cfg.GetSessionSecret())
	require.NoError(t, err)
	m := metrics.NewNotesMetricsWithRegistry(prometheus.NewRegistry())
	notesService, err := service.NewNotesService(f.repos, manager, service.WithMetrics(m))
	require.NoError(t, err)

	f.server, err = server.New(cfg, notesService, m)
	require.NoError(t, err)
	return f
}

// do sends a request and returns the recorded response.
func (f *testFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T, email string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": server.DemoPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result service.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	require.Equal(t, kind, body["error"])
	require.NotEmpty(t, body["error_description"])
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("success and me", func(t *testing.T) {
		token := f.login(t, "admin@acme.test")
		rec := f.do(t, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[map[string]any](t, rec)
		require.Equal(t, "admin@acme.test", me["email"])
		require.Equal(t, "admin", me["role"])
		require.NotContains(t, rec.Body.String(), "$2a$", "password hash is never serialised")
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "admin@acme.test", "password": "nope"})
		requireError(t, rec, http.StatusUnauthorized, "authentication_error")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		requireError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("no session", func(t *testing.T) {
		requireError(t, f.do(t, http.MethodGet, "/me", "", nil), http.StatusUnauthorized, "unauthorized")
		requireError(t, f.do(t, http.MethodGet, "/notes", "forged", nil), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("non bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notes", http.NoBody)
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		requireError(t, rec, http.StatusUnauthorized, "unauthorized")
	})
}

func TestAcmeScenario(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, "admin@acme.test")
	member := f.login(t, "user@acme.test")

	list := decode[[]notes.Note](t, f.do(t, http.MethodGet, "/notes", member, nil))
	require.Len(t, list, 2)
	require.Equal(t, "Welcome to Acme Notes", list[0].Title)

	rec := f.do(t, http.MethodPost, "/notes", member, map[string]string{"title": "Third", "content": ""})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/notes", member, map[string]string{"title": "Fourth"})
	requireError(t, rec, http.StatusPaymentRequired, "quota_exceeded")

	requireError(t, f.do(t, http.MethodPost, "/tenants/acme/upgrade", member, nil), http.StatusForbidden, "insufficient_role")
	requireError(t, f.do(t, http.MethodPost, "/tenants/globex/upgrade", admin, nil), http.StatusForbidden, "access_denied")

	rec = f.do(t, http.MethodPost, "/tenants/acme/upgrade", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tenant := decode[tenants.Tenant](t, rec)
	require.Equal(t, tenants.PlanPro, tenant.Plan)
	require.Equal(t, -1, tenant.MaxNotes)

	rec = f.do(t, http.MethodPost, "/notes", member, map[string]string{"title": "Fourth"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNoteLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	acme := f.login(t, "user@acme.test")
	globex := f.login(t, "user@globex.test")

	created := decode[notes.Note](t, f.do(t, http.MethodPost, "/notes", acme, map[string]string{"title": "Draft", "content": "v1"}))

	t.Run("other tenant cannot see it", func(t *testing.T) {
		path := "/notes/" + created.ID
		requireError(t, f.do(t, http.MethodGet, path, globex, nil), http.StatusNotFound, "not_found")
		requireError(t, f.do(t, http.MethodPut, path, globex, map[string]string{"title": "x"}), http.StatusNotFound, "not_found")
		requireError(t, f.do(t, http.MethodDelete, path, globex, nil), http.StatusNotFound, "not_found")
	})

	t.Run("partial update", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/notes/"+created.ID, acme, map[string]string{"content": "v2"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[notes.Note](t, rec)
		require.Equal(t, "Draft", updated.Title)
		require.Equal(t, "v2", updated.Content)
		require.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("empty title rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/notes/"+created.ID, acme, map[string]string{"title": " "})
		requireError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/notes/"+created.ID, acme, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, true, decode[map[string]any](t, rec)["success"])
		requireError(t, f.do(t, http.MethodGet, "/notes/"+created.ID, acme, nil), http.StatusNotFound, "not_found")
	})
}

func TestLogin_ReturnsTenantSlugForTenantRoutes(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "admin@acme.test", "password": server.DemoPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}](t, rec)
	require.Equal(t, "acme", login.User["tenantSlug"])
	require.Equal(t, "Acme Corp", login.User["tenantName"])

	me := decode[map[string]any](t, f.do(t, http.MethodGet, "/me", login.Token, nil))
	slug, ok := me["tenantSlug"].(string)
	require.True(t, ok, "me carries the tenant slug")
	require.Equal(t, login.User["tenantSlug"], slug)

	rec = f.do(t, http.MethodGet, "/tenants/"+slug, login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	usage := decode[map[string]any](t, rec)
	require.Equal(t, 2.0, usage["noteCount"])
	require.Equal(t, 1.0, usage["notesRemaining"])

	rec = f.do(t, http.MethodPost, "/tenants/"+slug+"/upgrade", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, tenants.PlanPro, decode[tenants.Tenant](t, rec).Plan)
}

func TestGetTenant(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, "user@globex.test")

	rec := f.do(t, http.MethodGet, "/tenants/globex", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Globex Corporation", decode[tenants.Tenant](t, rec).Name)

	requireError(t, f.do(t, http.MethodGet, "/tenants/acme", token, nil), http.StatusForbidden, "access_denied")
}

func TestInviteUser(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, "admin@globex.test")
	member := f.login(t, "user@globex.test")

	rec := f.do(t, http.MethodPost, "/users/invite", admin, map[string]string{"email": "new@globex.test", "role": "member"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Invitation sent to new@globex.test with role member", decode[map[string]any](t, rec)["message"])

	rec = f.do(t, http.MethodPost, "/users/invite", member, map[string]string{"email": "new@globex.test", "role": "member"})
	requireError(t, rec, http.StatusForbidden, "insufficient_role")

	rec = f.do(t, http.MethodPost, "/users/invite", admin, map[string]string{"email": "invalid", "role": "member"})
	requireError(t, rec, http.StatusBadRequest, "validation_error")
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	token := f.login(t, "admin@acme.test")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/logout", token, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/logout", token, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/logout", "", nil).Code)
	requireError(t, f.do(t, http.MethodGet, "/me", token, nil), http.StatusUnauthorized, "unauthorized")
}

func TestLoginRateLimit(t *testing.T) {
	f := setupTestFixtureWithBurst(t, 1)

	f.login(t, "admin@acme.test")
	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "admin@acme.test", "password": server.DemoPassword})
	requireError(t, rec, http.StatusTooManyRequests, "rate_limited")
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/notes", http.NoBody)
	req.Header.Set("Origin", "https://app.test")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/notes", http.NoBody)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestFixture(t)
	f.do(t, http.MethodGet, "/health", "", nil)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tenant_notes_http_request_duration_seconds")
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, server.SeedDemoData(f.ctx, f.repos))

	list, err := f.repos.Tenants.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, tenant := range list {
		count, err := f.repos.Notes.CountByTenant(f.ctx, tenant.ID)
		require.NoError(t, err)
		require.Equal(t, 2, count, tenant.Slug)
	}
}
