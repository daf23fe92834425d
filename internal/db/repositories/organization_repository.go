// organization_repository.go implements OrganizationRepository, providing database
// queries for organization CRUD, membership management, and role lookup.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db sqlx.ExtContext
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db sqlx.ExtContext) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, display_name, billing_tier, max_users, storage_quota_mb, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	err := sqlx.GetContext(ctx, r.db, org, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// GetByName retrieves an organization by its unique name
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `
		SELECT id, name, display_name, billing_tier, max_users, storage_quota_mb, created_at, updated_at
		FROM organizations
		WHERE name = $1
	`

	org := &models.Organization{}
	err := sqlx.GetContext(ctx, r.db, org, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// Create inserts a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, display_name, billing_tier, max_users, storage_quota_mb)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		org.Name, org.DisplayName, org.BillingTier, org.MaxUsers, org.StorageQuotaMB).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// Update updates an organization
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET display_name = $2, billing_tier = $3, max_users = $4, storage_quota_mb = $5, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		org.ID, org.DisplayName, org.BillingTier, org.MaxUsers, org.StorageQuotaMB)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	return nil
}

// Delete deletes an organization
func (r *OrganizationRepository) Delete(ctx context.Context, orgID string) error {
	query := `DELETE FROM organizations WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

// List retrieves a paginated list of organizations
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `
		SELECT id, name, display_name, billing_tier, max_users, storage_quota_mb, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	orgs := make([]*models.Organization, 0)
	if err := sqlx.SelectContext(ctx, r.db, &orgs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}

// === Organization Membership Operations ===

// AddMember adds a user to an organization with the given role
func (r *OrganizationRepository) AddMember(ctx context.Context, orgID, userID string, role models.MembershipRole) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from an organization
func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// UpdateMemberRole changes a user's role in an organization
func (r *OrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, userID string, role models.MembershipRole) error {
	query := `
		UPDATE organization_members
		SET role = $3
		WHERE organization_id = $1 AND user_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return nil
}

// GetMember retrieves a user's membership in an organization
func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`

	member := &models.OrganizationMember{}
	err := sqlx.GetContext(ctx, r.db, member, query, orgID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all members of an organization with user details
func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID string) ([]*models.OrganizationMemberWithUser, error) {
	query := `
		SELECT om.organization_id, om.user_id, om.role, om.created_at,
		       COALESCE(u.name, '') AS user_name, COALESCE(u.email, '') AS user_email
		FROM organization_members om
		LEFT JOIN users u ON om.user_id = u.id
		WHERE om.organization_id = $1
		ORDER BY om.created_at DESC
	`

	members := make([]*models.OrganizationMemberWithUser, 0)
	if err := sqlx.SelectContext(ctx, r.db, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// GetUserMemberships retrieves all organization memberships for a user
func (r *OrganizationRepository) GetUserMemberships(ctx context.Context, userID string) ([]*models.UserMembership, error) {
	query := `
		SELECT om.organization_id, COALESCE(o.name, '') AS organization_name, om.role, om.created_at
		FROM organization_members om
		LEFT JOIN organizations o ON om.organization_id = o.id
		WHERE om.user_id = $1
		ORDER BY om.created_at DESC
	`

	memberships := make([]*models.UserMembership, 0)
	if err := sqlx.SelectContext(ctx, r.db, &memberships, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user memberships: %w", err)
	}

	return memberships, nil
}

// CountMembers returns the current member count for an organization. Used for
// the advisory max_users check; the count is reported, not enforced at insert.
func (r *OrganizationRepository) CountMembers(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM organization_members WHERE organization_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

// SharedAdminOrg reports whether adminUserID holds an admin or owner membership
// in any organization that targetUserID is also a member of. This backs the
// "can manage users" object check.
func (r *OrganizationRepository) SharedAdminOrg(ctx context.Context, adminUserID, targetUserID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM organization_members caller
			JOIN organization_members target
			  ON caller.organization_id = target.organization_id
			WHERE caller.user_id = $1
			  AND target.user_id = $2
			  AND caller.role IN ('admin', 'owner')
		)
	`

	if err := sqlx.GetContext(ctx, r.db, &exists, query, adminUserID, targetUserID); err != nil {
		return false, fmt.Errorf("failed to check shared admin org: %w", err)
	}

	return exists, nil
}
