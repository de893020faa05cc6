package model

import (
	"strings"
	"time"

	"github.com/ayane-t/mochimono/internal/apperr"
)

// Role is a member's authority level within a realm.
type Role string

const (
	// RoleOwner grants write, invite, and remove authority.
	RoleOwner Role = "owner"
	// RoleMember grants read/write access to realm items.
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Realm is a named sharing group. Items may belong to zero or one
// realm at a time.
type Realm struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the realm invariants.
func (r *Realm) Validate() error {
	if r.ID == "" {
		return apperr.Validationf("id", "required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validationf("name", "required")
	}
	if r.OwnerID == "" {
		return apperr.Validationf("owner_id", "required")
	}
	return nil
}

// Member materializes a user's relationship to a realm. A member with
// no AcceptedAt timestamp is a pending invitation. Members are unique
// per (RealmID, UserID); the store enforces the deduplication.
type Member struct {
	ID         string     `json:"id"`
	RealmID    string     `json:"realm_id"`
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	InvitedAt  time.Time  `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Accepted reports whether the invitation has been accepted.
func (m *Member) Accepted() bool { return m.AcceptedAt != nil }

// Validate checks the member invariants.
func (m *Member) Validate() error {
	if m.ID == "" {
		return apperr.Validationf("id", "required")
	}
	if m.RealmID == "" {
		return apperr.Validationf("realm_id", "required")
	}
	if m.UserID == "" {
		return apperr.Validationf("user_id", "required")
	}
	if !m.Role.Valid() {
		return apperr.Validationf("role", "unknown value %q", m.Role)
	}
	return nil
}
