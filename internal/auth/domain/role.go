package domain

import (
	"slices"
	"time"
)

// Well-known role names seeded at startup. Owner is the super-admin role and
// carries the wildcard scope.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
	RoleOwner      = "owner"
)

// ScopeAll is the wildcard scope held only by the owner role.
const ScopeAll = "*"

type Role struct {
	ID        string
	Name      string
	Scopes    []string // Parsed from space-delimited storage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSuperAdmin reports whether the role carries the wildcard scope.
func (r Role) IsSuperAdmin() bool {
	return slices.Contains(r.Scopes, ScopeAll)
}

// HasScope reports whether the role grants the given scope, either directly
// or through the wildcard.
func (r Role) HasScope(scope string) bool {
	return slices.Contains(r.Scopes, scope) || r.IsSuperAdmin()
}
