package domain

import "time"

// Role enumerates the access levels known to the helpdesk.
type Role string

const (
	RoleEndUser     Role = "end_user"
	RoleITPersonnel Role = "it_personnel"
	RoleSuperAdmin  Role = "super_admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleEndUser, RoleITPersonnel, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role grants staff-level access.
func (r Role) IsStaff() bool {
	return r == RoleITPersonnel || r == RoleSuperAdmin
}

// User is the identity record consumed by every authorization rule.
// Registration and credential handling happen upstream; this core only
// stores and mutates the profile.
type User struct {
	ID              string
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	Department      string
	Position        string
	Branch          string
	Location        string
	Role            Role
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
