// Package identity defines principals and the normalized identity produced
// by the resolver regardless of which store a principal lives in.
package identity

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Role represents the authorization level of a principal.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ValidRoles is the set of all valid principal roles.
var ValidRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleManager:  true,
	RoleEmployee: true,
}

// Source tags which store an identity was resolved from. Downstream handlers
// key data visibility off this tag; authorization never does.
type Source string

const (
	SourceRegistry Source = "registry"
	SourceDemo     Source = "demo"
)

// Principal is one row in either the registry store or the demo store: a
// person who can authenticate. Demo principals have no organization linkage,
// so OrgID and DatabaseName are empty for them.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Role         Role      `json:"role"`
	OrgID        string    `json:"org_id,omitempty"`
	DatabaseName string    `json:"database_name,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks that a principal destined for a store write is complete.
func (p *Principal) Validate() error {
	if p.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return errors.New("invalid email format")
	}
	if p.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if !ValidRoles[p.Role] {
		return errors.New("invalid role: must be admin, manager, or employee")
	}
	return nil
}

// Identity is the resolver's output: a single normalized shape regardless of
// the originating store.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Active    bool   `json:"active"`
	OrgID     string `json:"org_id,omitempty"`
	OrgName   string `json:"org_name,omitempty"`
	Source    Source `json:"source"`
}

// SplitName splits a stored display name into first/last components on the
// first space. A single-word name has an empty last name.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}
