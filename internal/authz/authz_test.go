package authz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

type fakeProfiles struct {
	admin  map[string]*models.AdminProfile
	mentor map[string]*models.MentorProfile
}

func (f *fakeProfiles) GetAdminProfile(_ context.Context, userID string) (*models.AdminProfile, error) {
	return f.admin[userID], nil
}

func (f *fakeProfiles) GetMentorProfile(_ context.Context, userID string) (*models.MentorProfile, error) {
	return f.mentor[userID], nil
}

type fakeMemberships struct {
	// members maps "orgID/userID" to a membership role
	members map[string]models.MembershipRole
}

func membershipKey(orgID, userID string) string { return orgID + "/" + userID }

func (f *fakeMemberships) GetMember(_ context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	role, ok := f.members[membershipKey(orgID, userID)]
	if !ok {
		return nil, nil
	}
	return &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role}, nil
}

func (f *fakeMemberships) GetUserMemberships(_ context.Context, userID string) ([]*models.UserMembership, error) {
	var result []*models.UserMembership
	for key, role := range f.members {
		org, user, _ := strings.Cut(key, "/")
		if user == userID {
			result = append(result, &models.UserMembership{OrganizationID: org, Role: role})
		}
	}
	return result, nil
}

func (f *fakeMemberships) SharedAdminOrg(_ context.Context, adminUserID, targetUserID string) (bool, error) {
	for key, role := range f.members {
		if role != models.MembershipRoleAdmin && role != models.MembershipRoleOwner {
			continue
		}
		org, user, _ := strings.Cut(key, "/")
		if user != adminUserID {
			continue
		}
		if _, ok := f.members[membershipKey(org, targetUserID)]; ok {
			return true, nil
		}
	}
	return false, nil
}

type fakeCohorts struct {
	members map[string]models.CohortRole
}

func (f *fakeCohorts) GetMember(_ context.Context, cohortID, userID string) (*models.CohortMember, error) {
	role, ok := f.members[membershipKey(cohortID, userID)]
	if !ok {
		return nil, nil
	}
	return &models.CohortMember{CohortID: cohortID, UserID: userID, Role: role}, nil
}

type fakeAssignments struct {
	active map[string]bool // "mentorID/studentID"
}

func (f *fakeAssignments) HasActiveAssignment(_ context.Context, mentorID, studentID string) (bool, error) {
	return f.active[mentorID+"/"+studentID], nil
}

type fixture struct {
	profiles    *fakeProfiles
	memberships *fakeMemberships
	cohorts     *fakeCohorts
	assignments *fakeAssignments
	resolver    *Resolver
	gate        *Gate
}

func newFixture() *fixture {
	f := &fixture{
		profiles: &fakeProfiles{
			admin:  make(map[string]*models.AdminProfile),
			mentor: make(map[string]*models.MentorProfile),
		},
		memberships: &fakeMemberships{members: make(map[string]models.MembershipRole)},
		cohorts:     &fakeCohorts{members: make(map[string]models.CohortRole)},
		assignments: &fakeAssignments{active: make(map[string]bool)},
	}
	f.resolver = NewResolver(f.profiles, f.memberships, f.cohorts)
	f.gate = NewGate(f.resolver, f.memberships, f.assignments)
	return f
}

var allPredicates = []Predicate{
	PredicateManageOrganization,
	PredicateManageUsers,
	PredicateManageContent,
	PredicateViewAnalytics,
	PredicateBulkOperations,
	PredicateManageSystemConfig,
	PredicateGenerateContent,
	PredicateMentorOfStudent,
	PredicateManageNotifications,
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestResolve_NoRoles(t *testing.T) {
	f := newFixture()

	roles, err := f.resolver.Resolve(context.Background(), "nobody", OrgScope("org-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("roles = %v, want empty set", roles.Tags())
	}
}

func TestResolve_SuperAdminShortCircuits(t *testing.T) {
	f := newFixture()
	f.profiles.admin["root"] = &models.AdminProfile{UserID: "root", Role: models.AdminRoleSuperAdmin, IsActive: true}
	f.memberships.members[membershipKey("org-1", "root")] = models.MembershipRoleMember

	roles, err := f.resolver.Resolve(context.Background(), "root", OrgScope("org-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !roles.Has(RoleSuperAdmin) {
		t.Error("expected super_admin tag")
	}
	if len(roles) != 1 {
		t.Errorf("roles = %v, want only super_admin", roles.Tags())
	}
}

func TestResolve_SuspendedProfileGrantsNothing(t *testing.T) {
	f := newFixture()
	f.profiles.admin["suspended"] = &models.AdminProfile{UserID: "suspended", Role: models.AdminRoleSuperAdmin, IsActive: false}

	roles, err := f.resolver.Resolve(context.Background(), "suspended", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("roles = %v, want empty set", roles.Tags())
	}
}

func TestResolve_Union(t *testing.T) {
	f := newFixture()
	f.profiles.admin["user-1"] = &models.AdminProfile{
		UserID: "user-1", Role: models.AdminRoleContentAdmin, IsActive: true,
		ManagedOrgIDs: []string{"org-1"},
	}
	f.memberships.members[membershipKey("org-1", "user-1")] = models.MembershipRoleMember
	f.cohorts.members[membershipKey("cohort-1", "user-1")] = models.CohortRoleMentor
	f.profiles.mentor["user-1"] = &models.MentorProfile{UserID: "user-1", Status: models.MentorProfileActive}

	roles, err := f.resolver.Resolve(context.Background(), "user-1", CohortScope("org-1", "cohort-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []RoleTag{RoleContentAdmin, RoleMember, RoleMentor, RoleMentorProfile} {
		if !roles.Has(want) {
			t.Errorf("missing role %s in %v", want, roles.Tags())
		}
	}
}

// The admin profile role is dropped when the scope org is outside its managed set.
func TestResolve_ProfileScopedToManagedOrgs(t *testing.T) {
	f := newFixture()
	f.profiles.admin["user-1"] = &models.AdminProfile{
		UserID: "user-1", Role: models.AdminRoleOrgAdmin, IsActive: true,
		ManagedOrgIDs: []string{"org-1"},
	}

	roles, err := f.resolver.Resolve(context.Background(), "user-1", OrgScope("org-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roles.Has(RoleOrgAdmin) {
		t.Error("org_admin should not apply outside its managed organizations")
	}

	roles, err = f.resolver.Resolve(context.Background(), "user-1", OrgScope("org-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !roles.Has(RoleOrgAdmin) {
		t.Error("org_admin should apply inside its managed organizations")
	}
}

// ---------------------------------------------------------------------------
// Gate: super-admin override
// ---------------------------------------------------------------------------

// Every predicate passes for a super admin, whatever the scope or target.
func TestAuthorize_SuperAdminPassesEverything(t *testing.T) {
	f := newFixture()
	f.profiles.admin["root"] = &models.AdminProfile{UserID: "root", Role: models.AdminRoleSuperAdmin, IsActive: true}

	for _, predicate := range allPredicates {
		req := Request{UserID: "root", Scope: OrgScope("org-1"), TargetUserID: "someone", GlobalConfig: true}
		allowed, err := f.gate.Authorize(context.Background(), predicate, req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", predicate, err)
		}
		if !allowed {
			t.Errorf("%s: super admin denied", predicate)
		}
	}
}

// ---------------------------------------------------------------------------
// Gate: scope isolation
// ---------------------------------------------------------------------------

// An admin of techcorp must not manage content owned by edutech; moving the
// content into techcorp flips the decision.
func TestAuthorize_ManageContent_ScopeIsolation(t *testing.T) {
	f := newFixture()
	f.memberships.members[membershipKey("techcorp", "user-1")] = models.MembershipRoleAdmin

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageContent,
		Request{UserID: "user-1", Scope: OrgScope("edutech")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("techcorp admin must not manage edutech content")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateManageContent,
		Request{UserID: "user-1", Scope: OrgScope("techcorp")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("techcorp admin must manage techcorp content")
	}
}

func TestAuthorize_ManageOrganization(t *testing.T) {
	f := newFixture()
	f.memberships.members[membershipKey("org-1", "owner-1")] = models.MembershipRoleOwner
	f.memberships.members[membershipKey("org-1", "member-1")] = models.MembershipRoleMember

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageOrganization,
		Request{UserID: "owner-1", Scope: OrgScope("org-1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("owner should manage their organization")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateManageOrganization,
		Request{UserID: "member-1", Scope: OrgScope("org-1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("plain member should not manage the organization")
	}
}

func TestAuthorize_MissingScopeIsError(t *testing.T) {
	f := newFixture()

	_, err := f.gate.Authorize(context.Background(), PredicateManageContent, Request{UserID: "user-1"})
	if !errors.Is(err, ErrMissingScope) {
		t.Errorf("err = %v, want ErrMissingScope", err)
	}
}

func TestAuthorize_UnknownPredicate(t *testing.T) {
	f := newFixture()

	_, err := f.gate.Authorize(context.Background(), Predicate("can_fly"), Request{UserID: "user-1"})
	if !errors.Is(err, ErrUnknownPredicate) {
		t.Errorf("err = %v, want ErrUnknownPredicate", err)
	}
}

// ---------------------------------------------------------------------------
// Gate: user management
// ---------------------------------------------------------------------------

func TestAuthorize_ManageUsers_SharedOrg(t *testing.T) {
	f := newFixture()
	f.memberships.members[membershipKey("org-1", "admin-1")] = models.MembershipRoleAdmin
	f.memberships.members[membershipKey("org-1", "target-1")] = models.MembershipRoleMember
	f.memberships.members[membershipKey("org-2", "stranger")] = models.MembershipRoleMember

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageUsers,
		Request{UserID: "admin-1", TargetUserID: "target-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("admin sharing an org with the target should pass")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateManageUsers,
		Request{UserID: "admin-1", TargetUserID: "stranger"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("admin must not manage a user from an unrelated org")
	}
}

func TestAuthorize_ManageUsers_OrgAdminProfile(t *testing.T) {
	f := newFixture()
	f.profiles.admin["orgadmin"] = &models.AdminProfile{
		UserID: "orgadmin", Role: models.AdminRoleOrgAdmin, IsActive: true,
		ManagedOrgIDs: []string{"org-2"},
	}
	f.memberships.members[membershipKey("org-2", "target-1")] = models.MembershipRoleMember

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageUsers,
		Request{UserID: "orgadmin", TargetUserID: "target-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("org_admin managing the target's org should pass")
	}
}

// ---------------------------------------------------------------------------
// Gate: system config
// ---------------------------------------------------------------------------

func TestAuthorize_SystemConfig_GlobalIsSuperAdminOnly(t *testing.T) {
	f := newFixture()
	f.memberships.members[membershipKey("org-1", "owner-1")] = models.MembershipRoleOwner

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageSystemConfig,
		Request{UserID: "owner-1", Scope: OrgScope("org-1"), GlobalConfig: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("global config must be super-admin only")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateManageSystemConfig,
		Request{UserID: "owner-1", Scope: OrgScope("org-1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("org owner should manage org-scoped config")
	}
}

// ---------------------------------------------------------------------------
// Gate: mentorship and notifications
// ---------------------------------------------------------------------------

func TestAuthorize_MentorOfStudent(t *testing.T) {
	f := newFixture()
	f.assignments.active["mentor-1/student-1"] = true

	allowed, err := f.gate.Authorize(context.Background(), PredicateMentorOfStudent,
		Request{UserID: "mentor-1", TargetUserID: "student-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("active assignment should pass")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateMentorOfStudent,
		Request{UserID: "mentor-1", TargetUserID: "student-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("no assignment should fail")
	}
}

func TestAuthorize_ManageNotifications_RecipientOnly(t *testing.T) {
	f := newFixture()

	allowed, err := f.gate.Authorize(context.Background(), PredicateManageNotifications,
		Request{UserID: "user-1", TargetUserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("recipient should manage their own notifications")
	}

	allowed, err = f.gate.Authorize(context.Background(), PredicateManageNotifications,
		Request{UserID: "user-1", TargetUserID: "user-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("non-recipient must not manage another user's notifications")
	}
}
