// Package authz - gate.go implements the named authorization predicates consumed at
// every API boundary. Each predicate is written as "super admin always passes, then
// role-in-scope membership in a predicate-specific allowed set", plus the object
// checks that tie the scope to the target entity.
//
// A predicate returning false is a normal outcome, not an error. Errors are
// reserved for infrastructure failures and malformed input (an unknown
// predicate name or a missing required scope is a programmer error).
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/learnstack/lms-backend/internal/telemetry"
)

// Predicate names one authorization check
type Predicate string

const (
	PredicateManageOrganization    Predicate = "can_manage_organization"
	PredicateManageUsers           Predicate = "can_manage_users"
	PredicateManageContent         Predicate = "can_manage_content"
	PredicateViewAnalytics         Predicate = "can_view_analytics"
	PredicateBulkOperations        Predicate = "can_perform_bulk_operations"
	PredicateManageSystemConfig    Predicate = "can_manage_system_config"
	PredicateGenerateContent       Predicate = "can_generate_content"
	PredicateMentorOfStudent       Predicate = "is_mentor_of_student"
	PredicateManageNotifications   Predicate = "can_manage_notifications"
)

var (
	// ErrUnknownPredicate is returned for a predicate name the gate does not know
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrMissingScope is returned when a predicate requires a scope and none was given
	ErrMissingScope = errors.New("predicate requires a scope")
	// ErrMissingTarget is returned when a predicate requires a target user and none was given
	ErrMissingTarget = errors.New("predicate requires a target user")
)

// AssignmentStore is the slice of MentorshipRepository the gate reads
type AssignmentStore interface {
	HasActiveAssignment(ctx context.Context, mentorID, studentID string) (bool, error)
}

// Request carries the inputs of one authorization check. UserID is always
// required; the remaining fields depend on the predicate.
type Request struct {
	// UserID is the caller being authorized
	UserID string
	// Scope is the organization/cohort the check is evaluated against.
	// Required by the organization-, content-, and analytics-scoped predicates.
	Scope *Scope
	// TargetUserID is the subject user for can_manage_users,
	// is_mentor_of_student (the student), and can_manage_notifications
	// (the notification's recipient).
	TargetUserID string
	// GlobalConfig marks a system-config check against a row with no owning
	// organization. Only super admins pass those.
	GlobalConfig bool
}

// Gate evaluates named predicates against resolver output and object relations
type Gate struct {
	resolver    *Resolver
	memberships MembershipStore
	assignments AssignmentStore
}

// NewGate creates a new authorization gate
func NewGate(resolver *Resolver, memberships MembershipStore, assignments AssignmentStore) *Gate {
	return &Gate{
		resolver:    resolver,
		memberships: memberships,
		assignments: assignments,
	}
}

// Authorize evaluates the named predicate for the request. The boolean result
// is the decision; an error means the check could not be evaluated at all.
func (g *Gate) Authorize(ctx context.Context, predicate Predicate, req Request) (bool, error) {
	allowed, err := g.evaluate(ctx, predicate, req)
	if err != nil {
		return false, err
	}

	telemetry.AuthzDecisionsTotal.WithLabelValues(string(predicate), strconv.FormatBool(allowed)).Inc()
	if !allowed {
		slog.Debug("authorization denied",
			"predicate", predicate,
			"user_id", req.UserID)
	}

	return allowed, nil
}

func (g *Gate) evaluate(ctx context.Context, predicate Predicate, req Request) (bool, error) {
	roles, err := g.resolver.Resolve(ctx, req.UserID, req.Scope)
	if err != nil {
		return false, fmt.Errorf("failed to resolve roles: %w", err)
	}
	if roles.Has(RoleSuperAdmin) {
		return true, nil
	}

	switch predicate {
	case PredicateManageOrganization:
		if err := requireScope(req, predicate); err != nil {
			return false, err
		}
		return roles.HasAny(RoleOwner, RoleAdmin), nil

	case PredicateManageUsers:
		return g.canManageUsers(ctx, req, roles)

	case PredicateManageContent:
		if err := requireScope(req, predicate); err != nil {
			return false, err
		}
		return roles.HasAny(RoleOwner, RoleAdmin, RoleContentAdmin, RoleOrgAdmin), nil

	case PredicateViewAnalytics:
		if err := requireScope(req, predicate); err != nil {
			return false, err
		}
		return roles.HasAny(RoleOwner, RoleAdmin, RoleOrgAdmin, RoleContentAdmin, RoleSupportAdmin), nil

	case PredicateBulkOperations:
		return roles.Has(RoleOrgAdmin), nil

	case PredicateManageSystemConfig:
		// Global config is super-admin territory; that path already returned
		// above. Org-scoped config additionally admits the org's owner/admin.
		if req.GlobalConfig || req.Scope == nil || req.Scope.OrgID == "" {
			return false, nil
		}
		return roles.HasAny(RoleOwner, RoleAdmin), nil

	case PredicateGenerateContent:
		return roles.HasAny(RoleOwner, RoleAdmin, RoleContentAdmin, RoleOrgAdmin), nil

	case PredicateMentorOfStudent:
		if req.TargetUserID == "" {
			return false, fmt.Errorf("%w: %s", ErrMissingTarget, predicate)
		}
		ok, err := g.assignments.HasActiveAssignment(ctx, req.UserID, req.TargetUserID)
		if err != nil {
			return false, fmt.Errorf("failed to check mentorship assignment: %w", err)
		}
		return ok, nil

	case PredicateManageNotifications:
		if req.TargetUserID == "" {
			return false, fmt.Errorf("%w: %s", ErrMissingTarget, predicate)
		}
		return req.UserID == req.TargetUserID, nil
	}

	return false, fmt.Errorf("%w: %s", ErrUnknownPredicate, predicate)
}

// canManageUsers admits membership admins/owners sharing an organization with
// the target user, and org admins whose managed set covers one of the target's
// organizations. Without a target user the check degrades to a role check.
func (g *Gate) canManageUsers(ctx context.Context, req Request, roles RoleSet) (bool, error) {
	if req.TargetUserID == "" {
		return roles.HasAny(RoleOwner, RoleAdmin, RoleOrgAdmin), nil
	}

	shared, err := g.memberships.SharedAdminOrg(ctx, req.UserID, req.TargetUserID)
	if err != nil {
		return false, fmt.Errorf("failed to check shared organizations: %w", err)
	}
	if shared {
		return true, nil
	}

	if roles.Has(RoleOrgAdmin) {
		return g.orgAdminManagesTarget(ctx, req.UserID, req.TargetUserID)
	}

	return false, nil
}

// orgAdminManagesTarget reports whether the caller's org_admin profile manages
// an organization the target user belongs to.
func (g *Gate) orgAdminManagesTarget(ctx context.Context, callerID, targetID string) (bool, error) {
	profile, err := g.resolver.profiles.GetAdminProfile(ctx, callerID)
	if err != nil {
		return false, fmt.Errorf("failed to get admin profile: %w", err)
	}
	if profile == nil || !profile.IsActive {
		return false, nil
	}

	memberships, err := g.memberships.GetUserMemberships(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to get target memberships: %w", err)
	}
	for _, m := range memberships {
		if profile.Manages(m.OrganizationID) {
			return true, nil
		}
	}

	return false, nil
}

func requireScope(req Request, predicate Predicate) error {
	if req.Scope == nil || req.Scope.OrgID == "" {
		return fmt.Errorf("%w: %s", ErrMissingScope, predicate)
	}
	return nil
}
