// Package organization defines the organization record held in the registry
// store and the signup request that creates one.
package organization

import (
	"errors"
	"net/mail"
	"time"
)

// Organization is one registered tenant organization. DatabaseName points at
// the tenant database by convention, not by enforced constraint: the two live
// in different stores. An organization is only written to the registry once
// its tenant database is fully provisioned.
type Organization struct {
	ID           string    `json:"id"` // external id, e.g. ORG-20260828-X7K2QD
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	JoinCode     string    `json:"join_code"`
	DatabaseName string    `json:"database_name"`
	LicensePlan  string    `json:"license_plan,omitempty"`
	LicenseSeats int       `json:"license_seats,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Defaults for freshly signed-up organizations.
const (
	DefaultLicensePlan  = "trial"
	DefaultLicenseSeats = 5
)

// SignupRequest holds the fields required to register a new organization
// together with its bootstrap administrator.
type SignupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	LicensePlan  string `json:"license_plan,omitempty"`
	LicenseSeats int    `json:"license_seats,omitempty"`

	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPhone    string `json:"admin_phone,omitempty"`
	AdminPassword string `json:"admin_password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the SignupRequest has all required fields.
func (r *SignupRequest) Validate() error {
	if r.Name == "" {
		return errors.New("organization name is required")
	}
	if r.AdminName == "" {
		return errors.New("admin name is required")
	}
	if r.AdminEmail == "" {
		return errors.New("admin email is required")
	}
	if _, err := mail.ParseAddress(r.AdminEmail); err != nil {
		return errors.New("invalid admin email format")
	}
	if r.AdminPassword == "" {
		return errors.New("admin password is required")
	}
	if len(r.AdminPassword) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}
	if r.LicenseSeats < 0 {
		return errors.New("license seats must not be negative")
	}
	return nil
}
