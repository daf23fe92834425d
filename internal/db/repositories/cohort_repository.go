// cohort_repository.go implements CohortRepository, providing database queries for
// cohorts and cohort membership (enrollment).
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

// CohortRepository handles database operations for cohorts
type CohortRepository struct {
	db sqlx.ExtContext
}

// NewCohortRepository creates a new cohort repository
func NewCohortRepository(db sqlx.ExtContext) *CohortRepository {
	return &CohortRepository{db: db}
}

// GetByID retrieves a cohort by ID
func (r *CohortRepository) GetByID(ctx context.Context, id string) (*models.Cohort, error) {
	query := `
		SELECT id, organization_id, name, starts_on, ends_on, created_at, updated_at
		FROM cohorts
		WHERE id = $1
	`

	cohort := &models.Cohort{}
	err := sqlx.GetContext(ctx, r.db, cohort, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get cohort: %w", err)
	}

	return cohort, nil
}

// Create inserts a new cohort
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	query := `
		INSERT INTO cohorts (organization_id, name, starts_on, ends_on)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		cohort.OrganizationID, cohort.Name, cohort.StartsOn, cohort.EndsOn).
		Scan(&cohort.ID, &cohort.CreatedAt, &cohort.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cohort: %w", err)
	}

	return nil
}

// ListByOrganization retrieves all cohorts in an organization
func (r *CohortRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Cohort, error) {
	query := `
		SELECT id, organization_id, name, starts_on, ends_on, created_at, updated_at
		FROM cohorts
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	cohorts := make([]*models.Cohort, 0)
	if err := sqlx.SelectContext(ctx, r.db, &cohorts, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list cohorts: %w", err)
	}

	return cohorts, nil
}

// AddMember enrolls a user in a cohort with the given role
func (r *CohortRepository) AddMember(ctx context.Context, cohortID, userID string, role models.CohortRole) error {
	query := `
		INSERT INTO cohort_members (cohort_id, user_id, role)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, cohortID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add cohort member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a cohort
func (r *CohortRepository) RemoveMember(ctx context.Context, cohortID, userID string) error {
	query := `DELETE FROM cohort_members WHERE cohort_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, cohortID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cohort member: %w", err)
	}

	return nil
}

// GetMember retrieves a user's membership in a cohort
func (r *CohortRepository) GetMember(ctx context.Context, cohortID, userID string) (*models.CohortMember, error) {
	query := `
		SELECT cohort_id, user_id, role, created_at
		FROM cohort_members
		WHERE cohort_id = $1 AND user_id = $2
	`

	member := &models.CohortMember{}
	err := sqlx.GetContext(ctx, r.db, member, query, cohortID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cohort member: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all members of a cohort
func (r *CohortRepository) ListMembers(ctx context.Context, cohortID string) ([]*models.CohortMember, error) {
	query := `
		SELECT cohort_id, user_id, role, created_at
		FROM cohort_members
		WHERE cohort_id = $1
		ORDER BY created_at DESC
	`

	members := make([]*models.CohortMember, 0)
	if err := sqlx.SelectContext(ctx, r.db, &members, query, cohortID); err != nil {
		return nil, fmt.Errorf("failed to list cohort members: %w", err)
	}

	return members, nil
}
