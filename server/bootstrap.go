package server

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password"

type demoUser struct {
	email string
	name  string
	role  users.RoleType
}

type demoNote struct {
	title     string
	content   string
	createdAt time.Time
	author    string // email of the creating user
}

type demoTenant struct {
	tenant tenants.Tenant
	users  []demoUser
	notes  []demoNote
}

var demoCreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var demoData = []demoTenant{
	{
		tenant: tenants.Tenant{Name: "Acme Corp", Slug: "acme", Plan: tenants.PlanFree, MaxNotes: tenants.DefaultFreeMaxNotes, CreatedAt: demoCreatedAt},
		users: []demoUser{
			{email: "admin@acme.test", name: "John Admin", role: users.RoleAdmin},
			{email: "user@acme.test", name: "Jane User", role: users.RoleMember},
		},
		notes: []demoNote{
			{
				title:     "Welcome to Acme Notes",
				content:   "This is your first note in the Acme workspace. You can edit, delete, and create new notes here.",
				createdAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				author:    "admin@acme.test",
			},
			{
				title:     "Project Ideas",
				content:   "Here are some project ideas:\n1. Improve user onboarding\n2. Add real-time collaboration\n3. Implement search functionality",
				createdAt: time.Date(2024, 1, 16, 14, 30, 0, 0, time.UTC),
				author:    "user@acme.test",
			},
		},
	},
	{
		tenant: tenants.Tenant{Name: "Globex Corporation", Slug: "globex", Plan: tenants.PlanPro, MaxNotes: tenants.UnlimitedNotes, CreatedAt: demoCreatedAt},
		users: []demoUser{
			{email: "admin@globex.test", name: "Bob Admin", role: users.RoleAdmin},
			{email: "user@globex.test", name: "Alice User", role: users.RoleMember},
		},
		notes: []demoNote{
			{
				title:     "Globex Quarterly Planning",
				content:   "Q1 goals:\n- Launch new product line\n- Expand team by 20%\n- Implement customer feedback system",
				createdAt: time.Date(2024, 1, 17, 9, 15, 0, 0, time.UTC),
				author:    "admin@globex.test",
			},
			{
				title:     "Meeting Notes - Jan 18",
				content:   "Discussed upcoming features and user feedback. Need to prioritize mobile responsiveness.",
				createdAt: time.Date(2024, 1, 18, 16, 45, 0, 0, time.UTC),
				author:    "user@globex.test",
			},
		},
	},
}

// SeedDemoData creates the demo tenants, users and notes. Tenants that already
// exist are left alone, so seeding twice is harmless.
func SeedDemoData(ctx context.Context, repos service.Repos) error {
	log.Info().Msg("🔧 Bootstrap: Checking demo data...")

	passwordHash, err := users.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("[SeedDemoData] failed to hash demo password: %w", err)
	}

	for _, demo := range demoData {
		created, err := seedTenant(ctx, repos, demo, passwordHash)
		if err != nil {
			return fmt.Errorf("[SeedDemoData] failed to seed tenant %s: %w", demo.tenant.Slug, err)
		}
		if !created {
			log.Debug().Str("slug", demo.tenant.Slug).Msg("Demo tenant already exists")
			continue
		}
		for _, u := range demo.users {
			log.Info().Str("tenant", demo.tenant.Slug).Str("email", u.email).Str("role", string(u.role)).Msg("👤 Demo user created")
		}
	}
	log.Info().Str("password", DemoPassword).Msg("✅ Bootstrap complete: demo users share this password")
	return nil
}

func seedTenant(ctx context.Context, repos service.Repos, demo demoTenant, passwordHash string) (bool, error) {
	if _, err := repos.Tenants.GetBySlug(ctx, demo.tenant.Slug); err == nil {
		return false, nil
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}

	tenant := demo.tenant
	if err := repos.Tenants.Create(ctx, &tenant); err != nil {
		return false, err
	}

	authors := make(map[string]string, len(demo.users)) // email to user id
	for _, u := range demo.users {
		user := &users.User{Email: u.email, Name: u.name, Role: u.role, TenantID: tenant.ID, PasswordHash: passwordHash}
		if err := repos.Users.Create(ctx, user); err != nil {
			return false, err
		}
		authors[u.email] = user.ID
	}

	for _, n := range demo.notes {
		note := &notes.Note{
			Title:     n.title,
			Content:   n.content,
			CreatedAt: n.createdAt,
			UpdatedAt: n.createdAt,
			UserID:    authors[n.author],
			TenantID:  tenant.ID,
		}
		if err := repos.Notes.CreateWithinQuota(ctx, note, nil); err != nil {
			return false, err
		}
	}
	return true, nil
}
