package users

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is a user's role within their tenant
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Can upgrade the tenant and invite users
	RoleMember RoleType = "member" // Full note access within the tenant
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User belongs to exactly one tenant for its whole lifetime.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Role         RoleType `json:"role"`
	TenantID     string   `json:"tenantId"`
	PasswordHash string   `json:"-"` // Never serialize
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public returns a copy of the user without password material.
func (u *User) Public() User {
	c := *u
	c.PasswordHash = ""
	return c
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// HashPasswordWithCost is HashPassword with an explicit bcrypt cost. Tests use
// bcrypt.MinCost to keep fixtures fast.
func HashPasswordWithCost(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
