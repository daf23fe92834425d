// Package authz - resolver.go computes the set of role tags a user holds relevant
// to a scope. Resolution is a pure read: it walks the membership records and the
// optional admin/mentor side-profiles and returns the union. A user with no
// profile and no membership resolves to the empty set, never an error.
package authz

import (
	"context"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// Scope narrows a role resolution to an organization and optionally a cohort
// within it. A nil *Scope means global scope.
type Scope struct {
	OrgID    string
	CohortID string
}

// OrgScope builds a scope covering one organization
func OrgScope(orgID string) *Scope {
	return &Scope{OrgID: orgID}
}

// CohortScope builds a scope covering one cohort and its owning organization
func CohortScope(orgID, cohortID string) *Scope {
	return &Scope{OrgID: orgID, CohortID: cohortID}
}

// ProfileStore is the slice of ProfileRepository the resolver reads
type ProfileStore interface {
	GetAdminProfile(ctx context.Context, userID string) (*models.AdminProfile, error)
	GetMentorProfile(ctx context.Context, userID string) (*models.MentorProfile, error)
}

// MembershipStore is the slice of OrganizationRepository the resolver and gate read
type MembershipStore interface {
	GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error)
	GetUserMemberships(ctx context.Context, userID string) ([]*models.UserMembership, error)
	SharedAdminOrg(ctx context.Context, adminUserID, targetUserID string) (bool, error)
}

// CohortStore is the slice of CohortRepository the resolver reads
type CohortStore interface {
	GetMember(ctx context.Context, cohortID, userID string) (*models.CohortMember, error)
}

// Resolver computes role sets from profiles and membership records
type Resolver struct {
	profiles    ProfileStore
	memberships MembershipStore
	cohorts     CohortStore
}

// NewResolver creates a new role resolver
func NewResolver(profiles ProfileStore, memberships MembershipStore, cohorts CohortStore) *Resolver {
	return &Resolver{
		profiles:    profiles,
		memberships: memberships,
		cohorts:     cohorts,
	}
}

// Resolve returns the set of role tags userID holds relevant to scope.
//
// An active super admin profile short-circuits to {super_admin}: the caller
// need not consult any other source, the override is absolute. Otherwise the
// result is the union of the admin profile role (when its managed set covers
// the scope, or the scope is global), the organization membership role, the
// cohort membership role, and the mentor profile marker.
func (r *Resolver) Resolve(ctx context.Context, userID string, scope *Scope) (RoleSet, error) {
	roles := make(RoleSet)

	adminProfile, err := r.profiles.GetAdminProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if adminProfile != nil && adminProfile.IsActive {
		if adminProfile.Role == models.AdminRoleSuperAdmin {
			return NewRoleSet(RoleSuperAdmin), nil
		}
		inScope := scope == nil || adminProfile.Manages(scope.OrgID)
		if tag, ok := adminRoleTag(adminProfile.Role); ok && inScope {
			roles.Add(tag)
		}
	}

	if scope != nil && scope.OrgID != "" {
		member, err := r.memberships.GetMember(ctx, scope.OrgID, userID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			if tag, ok := membershipRoleTag(member.Role); ok {
				roles.Add(tag)
			}
		}
	}

	if scope != nil && scope.CohortID != "" {
		member, err := r.cohorts.GetMember(ctx, scope.CohortID, userID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			if tag, ok := cohortRoleTag(member.Role); ok {
				roles.Add(tag)
			}
		}
	}

	mentorProfile, err := r.profiles.GetMentorProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if mentorProfile != nil && mentorProfile.Status == models.MentorProfileActive {
		roles.Add(RoleMentorProfile)
	}

	return roles, nil
}
