// Package models - cohort.go defines the Cohort model, a time-boxed learning group
// within an organization, and the CohortMember record with its per-cohort role.
// A user may hold different roles in different cohorts simultaneously.
package models

import "time"

// CohortRole is the role a user holds inside a cohort
type CohortRole string

const (
	CohortRoleLearner    CohortRole = "learner"
	CohortRoleMentor     CohortRole = "mentor"
	CohortRoleInstructor CohortRole = "instructor"
)

// Valid reports whether the role is one of the known cohort roles
func (r CohortRole) Valid() bool {
	switch r {
	case CohortRoleLearner, CohortRoleMentor, CohortRoleInstructor:
		return true
	}
	return false
}

// Cohort represents a time-boxed learning group within an organization
type Cohort struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	StartsOn       *time.Time `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn         *time.Time `db:"ends_on" json:"ends_on,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// CohortMember represents a user's membership in a cohort
type CohortMember struct {
	CohortID  string     `db:"cohort_id" json:"cohort_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Role      CohortRole `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
