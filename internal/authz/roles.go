// Package authz - roles.go defines the role tags produced by the Resolver and the
// RoleSet container predicates are written against.
package authz

import "github.com/learnstack/lms-backend/internal/db/models"

// RoleTag is one capability level a user holds within a scope. Tags come from
// three sources: the AdminProfile role, the organization membership role, and
// the cohort membership role. RoleMentorProfile marks the presence of an
// active MentorProfile.
type RoleTag string

const (
	// Admin profile roles
	RoleSuperAdmin   RoleTag = "super_admin"
	RoleOrgAdmin     RoleTag = "org_admin"
	RoleContentAdmin RoleTag = "content_admin"
	RoleSupportAdmin RoleTag = "support_admin"

	// Organization membership roles
	RoleOwner  RoleTag = "owner"
	RoleAdmin  RoleTag = "admin"
	RoleMember RoleTag = "member"

	// Cohort membership roles
	RoleLearner    RoleTag = "learner"
	RoleMentor     RoleTag = "mentor"
	RoleInstructor RoleTag = "instructor"

	// RoleMentorProfile is present when the user carries an active MentorProfile
	RoleMentorProfile RoleTag = "mentor_profile"
)

// RoleSet is the set of role tags a user holds relevant to one scope
type RoleSet map[RoleTag]struct{}

// NewRoleSet builds a RoleSet from the given tags
func NewRoleSet(tags ...RoleTag) RoleSet {
	s := make(RoleSet, len(tags))
	for _, tag := range tags {
		s[tag] = struct{}{}
	}
	return s
}

// Add inserts a tag into the set
func (s RoleSet) Add(tag RoleTag) {
	s[tag] = struct{}{}
}

// Has reports whether the set contains the tag
func (s RoleSet) Has(tag RoleTag) bool {
	_, ok := s[tag]
	return ok
}

// HasAny reports whether the set contains at least one of the tags
func (s RoleSet) HasAny(tags ...RoleTag) bool {
	for _, tag := range tags {
		if s.Has(tag) {
			return true
		}
	}
	return false
}

// Tags returns the set's contents as a slice, in no particular order
func (s RoleSet) Tags() []RoleTag {
	tags := make([]RoleTag, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	return tags
}

// adminRoleTag maps an AdminProfile role onto its RoleTag
func adminRoleTag(role models.AdminRole) (RoleTag, bool) {
	switch role {
	case models.AdminRoleSuperAdmin:
		return RoleSuperAdmin, true
	case models.AdminRoleOrgAdmin:
		return RoleOrgAdmin, true
	case models.AdminRoleContentAdmin:
		return RoleContentAdmin, true
	case models.AdminRoleSupportAdmin:
		return RoleSupportAdmin, true
	}
	return "", false
}

// membershipRoleTag maps an organization membership role onto its RoleTag
func membershipRoleTag(role models.MembershipRole) (RoleTag, bool) {
	switch role {
	case models.MembershipRoleOwner:
		return RoleOwner, true
	case models.MembershipRoleAdmin:
		return RoleAdmin, true
	case models.MembershipRoleMember:
		return RoleMember, true
	}
	return "", false
}

// cohortRoleTag maps a cohort membership role onto its RoleTag
func cohortRoleTag(role models.CohortRole) (RoleTag, bool) {
	switch role {
	case models.CohortRoleLearner:
		return RoleLearner, true
	case models.CohortRoleMentor:
		return RoleMentor, true
	case models.CohortRoleInstructor:
		return RoleInstructor, true
	}
	return "", false
}
