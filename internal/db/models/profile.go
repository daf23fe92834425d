// Package models - profile.go defines the optional 1:1 side profiles that extend a
// User: AdminProfile for platform/organization administration and MentorProfile for
// mentoring capacity. Absence of a profile is a normal state, not an error.
package models

import "time"

// AdminRole is the role an AdminProfile grants
type AdminRole string

const (
	// AdminRoleSuperAdmin bypasses all organization-scoped checks
	AdminRoleSuperAdmin AdminRole = "super_admin"
	// AdminRoleOrgAdmin administers an explicit set of managed organizations
	AdminRoleOrgAdmin AdminRole = "org_admin"
	// AdminRoleContentAdmin manages content within its managed organizations
	AdminRoleContentAdmin AdminRole = "content_admin"
	// AdminRoleSupportAdmin handles support operations within its managed organizations
	AdminRoleSupportAdmin AdminRole = "support_admin"
)

// Valid reports whether the role is one of the known admin roles
func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleSuperAdmin, AdminRoleOrgAdmin, AdminRoleContentAdmin, AdminRoleSupportAdmin:
		return true
	}
	return false
}

// AdminProfile grants a user a platform-wide or multi-organization administrative role.
// IsActive suspends the profile without deleting it; a suspended profile grants nothing.
type AdminProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      AdminRole `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// ManagedOrgIDs is the set of organizations a non-super admin role is scoped
	// to. Loaded from the admin_profile_organizations join table; empty for
	// super admins, whose reach is unscoped.
	ManagedOrgIDs []string `db:"-" json:"managed_org_ids"`
}

// Manages reports whether the profile's scope covers the given organization.
// Super admins manage everything.
func (p *AdminProfile) Manages(orgID string) bool {
	if p.Role == AdminRoleSuperAdmin {
		return true
	}
	for _, id := range p.ManagedOrgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// MentorProfileStatus is the availability state of a mentor profile
type MentorProfileStatus string

const (
	MentorProfileActive   MentorProfileStatus = "active"
	MentorProfileInactive MentorProfileStatus = "inactive"
)

// MentorProfile describes a user's mentoring capacity. Only users with an active
// profile are eligible for new mentorship assignments.
type MentorProfile struct {
	ID          string              `db:"id" json:"id"`
	UserID      string              `db:"user_id" json:"user_id"`
	MaxStudents int                 `db:"max_students" json:"max_students"`
	Status      MentorProfileStatus `db:"status" json:"status"`
	Bio         string              `db:"bio" json:"bio"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}
