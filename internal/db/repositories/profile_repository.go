// profile_repository.go implements ProfileRepository, providing database queries for
// the optional AdminProfile and MentorProfile side-profiles. Both lookups return
// (nil, nil) when the user carries no profile — absence is a normal state.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

// ProfileRepository handles database operations for admin and mentor profiles
type ProfileRepository struct {
	db sqlx.ExtContext
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db sqlx.ExtContext) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// === Admin profiles ===

// GetAdminProfile retrieves a user's admin profile with its managed organizations
func (r *ProfileRepository) GetAdminProfile(ctx context.Context, userID string) (*models.AdminProfile, error) {
	query := `
		SELECT id, user_id, role, is_active, created_at, updated_at
		FROM admin_profiles
		WHERE user_id = $1
	`

	profile := &models.AdminProfile{}
	err := sqlx.GetContext(ctx, r.db, profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No profile
		}
		return nil, fmt.Errorf("failed to get admin profile: %w", err)
	}

	orgQuery := `
		SELECT organization_id
		FROM admin_profile_organizations
		WHERE admin_profile_id = $1
	`
	orgIDs := make([]string, 0)
	if err := sqlx.SelectContext(ctx, r.db, &orgIDs, orgQuery, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to get managed organizations: %w", err)
	}
	profile.ManagedOrgIDs = orgIDs

	return profile, nil
}

// CreateAdminProfile inserts an admin profile and its managed organization links
func (r *ProfileRepository) CreateAdminProfile(ctx context.Context, profile *models.AdminProfile) error {
	query := `
		INSERT INTO admin_profiles (user_id, role, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, profile.UserID, profile.Role, profile.IsActive).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create admin profile: %w", err)
	}

	for _, orgID := range profile.ManagedOrgIDs {
		if err := r.AddManagedOrganization(ctx, profile.ID, orgID); err != nil {
			return err
		}
	}

	return nil
}

// SetAdminProfileActive toggles the is_active suspend flag
func (r *ProfileRepository) SetAdminProfileActive(ctx context.Context, profileID string, active bool) error {
	query := `
		UPDATE admin_profiles
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, profileID, active)
	if err != nil {
		return fmt.Errorf("failed to update admin profile: %w", err)
	}

	return nil
}

// AddManagedOrganization links a managed organization to an admin profile
func (r *ProfileRepository) AddManagedOrganization(ctx context.Context, profileID, orgID string) error {
	query := `
		INSERT INTO admin_profile_organizations (admin_profile_id, organization_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, profileID, orgID)
	if err != nil {
		return fmt.Errorf("failed to add managed organization: %w", err)
	}

	return nil
}

// RemoveManagedOrganization unlinks a managed organization from an admin profile
func (r *ProfileRepository) RemoveManagedOrganization(ctx context.Context, profileID, orgID string) error {
	query := `
		DELETE FROM admin_profile_organizations
		WHERE admin_profile_id = $1 AND organization_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, profileID, orgID)
	if err != nil {
		return fmt.Errorf("failed to remove managed organization: %w", err)
	}

	return nil
}

// HasActiveSuperAdmin reports whether any active super admin profile exists.
// Used by the first-run bootstrap check.
func (r *ProfileRepository) HasActiveSuperAdmin(ctx context.Context) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM admin_profiles WHERE role = 'super_admin' AND is_active
		)
	`

	if err := sqlx.GetContext(ctx, r.db, &exists, query); err != nil {
		return false, fmt.Errorf("failed to check for super admin: %w", err)
	}

	return exists, nil
}

// === Mentor profiles ===

// GetMentorProfile retrieves a user's mentor profile
func (r *ProfileRepository) GetMentorProfile(ctx context.Context, userID string) (*models.MentorProfile, error) {
	query := `
		SELECT id, user_id, max_students, status, bio, created_at, updated_at
		FROM mentor_profiles
		WHERE user_id = $1
	`

	profile := &models.MentorProfile{}
	err := sqlx.GetContext(ctx, r.db, profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No profile
		}
		return nil, fmt.Errorf("failed to get mentor profile: %w", err)
	}

	return profile, nil
}

// CreateMentorProfile inserts a mentor profile
func (r *ProfileRepository) CreateMentorProfile(ctx context.Context, profile *models.MentorProfile) error {
	query := `
		INSERT INTO mentor_profiles (user_id, max_students, status, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		profile.UserID, profile.MaxStudents, profile.Status, profile.Bio).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create mentor profile: %w", err)
	}

	return nil
}

// UpdateMentorProfile updates a mentor profile's capacity and status
func (r *ProfileRepository) UpdateMentorProfile(ctx context.Context, profile *models.MentorProfile) error {
	query := `
		UPDATE mentor_profiles
		SET max_students = $2, status = $3, bio = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.MaxStudents, profile.Status, profile.Bio)
	if err != nil {
		return fmt.Errorf("failed to update mentor profile: %w", err)
	}

	return nil
}
