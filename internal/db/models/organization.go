// Package models - organization.go defines the Organization tenant model and the
// OrganizationMember membership record that drives organization-scoped authorization.
package models

import "time"

// MembershipRole is the role a user holds inside an organization
type MembershipRole string

const (
	MembershipRoleOwner  MembershipRole = "owner"
	MembershipRoleAdmin  MembershipRole = "admin"
	MembershipRoleMember MembershipRole = "member"
)

// Valid reports whether the role is one of the known membership roles
func (r MembershipRole) Valid() bool {
	switch r {
	case MembershipRoleOwner, MembershipRoleAdmin, MembershipRoleMember:
		return true
	}
	return false
}

// Organization represents a tenant boundary for users, cohorts, and configuration
type Organization struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	DisplayName string `db:"display_name" json:"display_name"`
	BillingTier string `db:"billing_tier" json:"billing_tier"`
	// MaxUsers is a soft limit: membership inserts are not blocked when the
	// organization is over quota, but the overage is surfaced to admins.
	MaxUsers       int       `db:"max_users" json:"max_users"`
	StorageQuotaMB int       `db:"storage_quota_mb" json:"storage_quota_mb"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrganizationMember represents a user's membership in an organization
type OrganizationMember struct {
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Role           MembershipRole `db:"role" json:"role"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// OrganizationMemberWithUser includes user details for display
type OrganizationMemberWithUser struct {
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Role           MembershipRole `db:"role" json:"role"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UserName       string         `db:"user_name" json:"user_name"`
	UserEmail      string         `db:"user_email" json:"user_email"`
}

// UserMembership includes organization details for a user's membership
type UserMembership struct {
	OrganizationID   string         `db:"organization_id" json:"organization_id"`
	OrganizationName string         `db:"organization_name" json:"organization_name"`
	Role             MembershipRole `db:"role" json:"role"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
