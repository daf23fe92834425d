// analytics_repository.go implements AnalyticsRepository: the metric source
// queries read by the rollup aggregator and the upserts that write one row per
// (subject, date). Upserts resolve concurrent writers through the natural-key
// unique constraint (INSERT ... ON CONFLICT DO UPDATE), not application locking.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

// AnalyticsRepository handles rollup reads/writes and metric source queries
type AnalyticsRepository struct {
	db sqlx.ExtContext
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db sqlx.ExtContext) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

const dateFormat = "2006-01-02"

// === Organization rollups ===

// GetOrgRollup retrieves the rollup row for (organization, date), or (nil, nil)
func (r *AnalyticsRepository) GetOrgRollup(ctx context.Context, orgID string, date time.Time) (*models.OrgDailyRollup, error) {
	query := `
		SELECT id, organization_id, date, active_users, new_enrollments, sessions_held,
		       messages_sent, goal_completion_rate, created_at, updated_at
		FROM org_daily_rollups
		WHERE organization_id = $1 AND date = $2
	`

	rollup := &models.OrgDailyRollup{}
	err := sqlx.GetContext(ctx, r.db, rollup, query, orgID, date.Format(dateFormat))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get org rollup: %w", err)
	}

	return rollup, nil
}

// UpsertOrgRollup writes the rollup row for (organization, date), overwriting
// all metric columns when the row already exists
func (r *AnalyticsRepository) UpsertOrgRollup(ctx context.Context, rollup *models.OrgDailyRollup) error {
	query := `
		INSERT INTO org_daily_rollups
			(organization_id, date, active_users, new_enrollments, sessions_held,
			 messages_sent, goal_completion_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, date) DO UPDATE SET
			active_users = EXCLUDED.active_users,
			new_enrollments = EXCLUDED.new_enrollments,
			sessions_held = EXCLUDED.sessions_held,
			messages_sent = EXCLUDED.messages_sent,
			goal_completion_rate = EXCLUDED.goal_completion_rate,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		rollup.OrganizationID, rollup.Date.Format(dateFormat),
		rollup.ActiveUsers, rollup.NewEnrollments, rollup.SessionsHeld,
		rollup.MessagesSent, rollup.GoalCompletionRate).
		Scan(&rollup.ID, &rollup.CreatedAt, &rollup.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert org rollup: %w", err)
	}

	return nil
}

// === Student rollups ===

// GetStudentRollup retrieves the rollup row for (student, date), or (nil, nil)
func (r *AnalyticsRepository) GetStudentRollup(ctx context.Context, studentID string, date time.Time) (*models.StudentDailyRollup, error) {
	query := `
		SELECT id, student_id, date, sessions_attended, messages_sent, goals_completed,
		       goals_open, avg_progress, created_at, updated_at
		FROM student_daily_rollups
		WHERE student_id = $1 AND date = $2
	`

	rollup := &models.StudentDailyRollup{}
	err := sqlx.GetContext(ctx, r.db, rollup, query, studentID, date.Format(dateFormat))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student rollup: %w", err)
	}

	return rollup, nil
}

// UpsertStudentRollup writes the rollup row for (student, date)
func (r *AnalyticsRepository) UpsertStudentRollup(ctx context.Context, rollup *models.StudentDailyRollup) error {
	query := `
		INSERT INTO student_daily_rollups
			(student_id, date, sessions_attended, messages_sent, goals_completed,
			 goals_open, avg_progress)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, date) DO UPDATE SET
			sessions_attended = EXCLUDED.sessions_attended,
			messages_sent = EXCLUDED.messages_sent,
			goals_completed = EXCLUDED.goals_completed,
			goals_open = EXCLUDED.goals_open,
			avg_progress = EXCLUDED.avg_progress,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		rollup.StudentID, rollup.Date.Format(dateFormat),
		rollup.SessionsAttended, rollup.MessagesSent, rollup.GoalsCompleted,
		rollup.GoalsOpen, rollup.AvgProgress).
		Scan(&rollup.ID, &rollup.CreatedAt, &rollup.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert student rollup: %w", err)
	}

	return nil
}

// === Mentor rollups ===

// GetMentorRollup retrieves the rollup row for (mentor, date), or (nil, nil)
func (r *AnalyticsRepository) GetMentorRollup(ctx context.Context, mentorID string, date time.Time) (*models.MentorDailyRollup, error) {
	query := `
		SELECT id, mentor_id, date, sessions_held, messages_sent, feedback_given,
		       active_students, avg_rating, created_at, updated_at
		FROM mentor_daily_rollups
		WHERE mentor_id = $1 AND date = $2
	`

	rollup := &models.MentorDailyRollup{}
	err := sqlx.GetContext(ctx, r.db, rollup, query, mentorID, date.Format(dateFormat))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mentor rollup: %w", err)
	}

	return rollup, nil
}

// UpsertMentorRollup writes the rollup row for (mentor, date)
func (r *AnalyticsRepository) UpsertMentorRollup(ctx context.Context, rollup *models.MentorDailyRollup) error {
	query := `
		INSERT INTO mentor_daily_rollups
			(mentor_id, date, sessions_held, messages_sent, feedback_given,
			 active_students, avg_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mentor_id, date) DO UPDATE SET
			sessions_held = EXCLUDED.sessions_held,
			messages_sent = EXCLUDED.messages_sent,
			feedback_given = EXCLUDED.feedback_given,
			active_students = EXCLUDED.active_students,
			avg_rating = EXCLUDED.avg_rating,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		rollup.MentorID, rollup.Date.Format(dateFormat),
		rollup.SessionsHeld, rollup.MessagesSent, rollup.FeedbackGiven,
		rollup.ActiveStudents, rollup.AvgRating).
		Scan(&rollup.ID, &rollup.CreatedAt, &rollup.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mentor rollup: %w", err)
	}

	return nil
}

// === Metric source queries ===
//
// Each metric is read by its own query so the aggregator can guard them
// independently: a failing metric defaults to zero without blocking the rest.

// countScalar runs a single-value COUNT query
func (r *AnalyticsRepository) countScalar(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// OrgActiveUsers counts distinct users who sent a message or had a session on
// the given day within the organization's cohorts
func (r *AnalyticsRepository) OrgActiveUsers(ctx context.Context, orgID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT mm.sender_id)
		FROM mentor_messages mm
		JOIN mentorship_assignments ma ON mm.assignment_id = ma.id
		JOIN cohorts c ON ma.cohort_id = c.id
		WHERE c.organization_id = $1 AND mm.created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, orgID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

// OrgNewEnrollments counts cohort enrollments created on the given day
func (r *AnalyticsRepository) OrgNewEnrollments(ctx context.Context, orgID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM cohort_members cm
		JOIN cohorts c ON cm.cohort_id = c.id
		WHERE c.organization_id = $1 AND cm.created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, orgID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count new enrollments: %w", err)
	}
	return count, nil
}

// OrgSessionsHeld counts sessions scheduled for the given day in the organization
func (r *AnalyticsRepository) OrgSessionsHeld(ctx context.Context, orgID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_sessions ms
		JOIN mentorship_assignments ma ON ms.assignment_id = ma.id
		JOIN cohorts c ON ma.cohort_id = c.id
		WHERE c.organization_id = $1 AND ms.scheduled_at::date = $2
	`
	count, err := r.countScalar(ctx, query, orgID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions held: %w", err)
	}
	return count, nil
}

// OrgMessagesSent counts messages sent on the given day in the organization
func (r *AnalyticsRepository) OrgMessagesSent(ctx context.Context, orgID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_messages mm
		JOIN mentorship_assignments ma ON mm.assignment_id = ma.id
		JOIN cohorts c ON ma.cohort_id = c.id
		WHERE c.organization_id = $1 AND mm.created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, orgID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count messages sent: %w", err)
	}
	return count, nil
}

// OrgGoalCompletionRate returns completed/total across the organization's
// non-cancelled goals as of the given day. A zero denominator yields 0.
func (r *AnalyticsRepository) OrgGoalCompletionRate(ctx context.Context, orgID string, date time.Time) (float64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE g.status = 'completed') AS completed,
			COUNT(*) AS total
		FROM mentorship_goals g
		JOIN mentorship_assignments ma ON g.assignment_id = ma.id
		JOIN cohorts c ON ma.cohort_id = c.id
		WHERE c.organization_id = $1
		  AND g.status <> 'cancelled'
		  AND g.created_at::date <= $2
	`

	var row struct {
		Completed int `db:"completed"`
		Total     int `db:"total"`
	}
	if err := sqlx.GetContext(ctx, r.db, &row, query, orgID, date.Format(dateFormat)); err != nil {
		return 0, fmt.Errorf("failed to compute goal completion rate: %w", err)
	}

	if row.Total == 0 {
		return 0, nil
	}
	return float64(row.Completed) / float64(row.Total), nil
}

// StudentSessionsAttended counts the student's sessions on the given day
func (r *AnalyticsRepository) StudentSessionsAttended(ctx context.Context, studentID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_sessions ms
		JOIN mentorship_assignments ma ON ms.assignment_id = ma.id
		WHERE ma.student_id = $1 AND ms.scheduled_at::date = $2 AND ms.status = 'completed'
	`
	count, err := r.countScalar(ctx, query, studentID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions attended: %w", err)
	}
	return count, nil
}

// StudentMessagesSent counts messages the student sent on the given day
func (r *AnalyticsRepository) StudentMessagesSent(ctx context.Context, studentID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_messages
		WHERE sender_id = $1 AND created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, studentID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count messages sent: %w", err)
	}
	return count, nil
}

// StudentGoalsCompleted counts the student's goals that reached completed on the given day
func (r *AnalyticsRepository) StudentGoalsCompleted(ctx context.Context, studentID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentorship_goals g
		JOIN mentorship_assignments ma ON g.assignment_id = ma.id
		WHERE ma.student_id = $1 AND g.status = 'completed' AND g.updated_at::date = $2
	`
	count, err := r.countScalar(ctx, query, studentID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count goals completed: %w", err)
	}
	return count, nil
}

// StudentGoalsOpen counts the student's currently open goals
func (r *AnalyticsRepository) StudentGoalsOpen(ctx context.Context, studentID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentorship_goals g
		JOIN mentorship_assignments ma ON g.assignment_id = ma.id
		WHERE ma.student_id = $1 AND g.status IN ('open', 'in_progress')
	`
	count, err := r.countScalar(ctx, query, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count open goals: %w", err)
	}
	return count, nil
}

// StudentAvgProgress averages the student's progress records on the given day.
// No records yields 0.
func (r *AnalyticsRepository) StudentAvgProgress(ctx context.Context, studentID string, date time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(sp.percent_complete), 0)
		FROM student_progress sp
		JOIN mentorship_assignments ma ON sp.assignment_id = ma.id
		WHERE ma.student_id = $1 AND sp.recorded_at::date = $2
	`

	var avg float64
	if err := sqlx.GetContext(ctx, r.db, &avg, query, studentID, date.Format(dateFormat)); err != nil {
		return 0, fmt.Errorf("failed to compute avg progress: %w", err)
	}
	return avg, nil
}

// MentorSessionsHeld counts the mentor's sessions on the given day
func (r *AnalyticsRepository) MentorSessionsHeld(ctx context.Context, mentorID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_sessions ms
		JOIN mentorship_assignments ma ON ms.assignment_id = ma.id
		WHERE ma.mentor_id = $1 AND ms.scheduled_at::date = $2
	`
	count, err := r.countScalar(ctx, query, mentorID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions held: %w", err)
	}
	return count, nil
}

// MentorMessagesSent counts messages the mentor sent on the given day
func (r *AnalyticsRepository) MentorMessagesSent(ctx context.Context, mentorID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_messages
		WHERE sender_id = $1 AND created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, mentorID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count messages sent: %w", err)
	}
	return count, nil
}

// MentorFeedbackGiven counts feedback the mentor authored on the given day
func (r *AnalyticsRepository) MentorFeedbackGiven(ctx context.Context, mentorID string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mentor_feedback mf
		JOIN mentorship_assignments ma ON mf.assignment_id = ma.id
		WHERE mf.author_id = $1 AND ma.mentor_id = $1 AND mf.created_at::date = $2
	`
	count, err := r.countScalar(ctx, query, mentorID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback given: %w", err)
	}
	return count, nil
}

// MentorActiveStudents counts the mentor's currently active assignments
func (r *AnalyticsRepository) MentorActiveStudents(ctx context.Context, mentorID string) (int, error) {
	query := `
		SELECT COUNT(DISTINCT student_id)
		FROM mentorship_assignments
		WHERE mentor_id = $1 AND status = 'active'
	`
	count, err := r.countScalar(ctx, query, mentorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active students: %w", err)
	}
	return count, nil
}

// MentorAvgRating averages ratings received on the mentor's assignments from
// other authors (i.e. students), up to and including the given day. No
// feedback yields 0.
func (r *AnalyticsRepository) MentorAvgRating(ctx context.Context, mentorID string, date time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(mf.rating), 0)
		FROM mentor_feedback mf
		JOIN mentorship_assignments ma ON mf.assignment_id = ma.id
		WHERE ma.mentor_id = $1 AND mf.author_id <> $1 AND mf.created_at::date <= $2
	`

	var avg float64
	if err := sqlx.GetContext(ctx, r.db, &avg, query, mentorID, date.Format(dateFormat)); err != nil {
		return 0, fmt.Errorf("failed to compute avg rating: %w", err)
	}
	return avg, nil
}

// ListOrganizationIDs returns all organization IDs, for the scheduled daily pass
func (r *AnalyticsRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := sqlx.SelectContext(ctx, r.db, &ids, `SELECT id FROM organizations`); err != nil {
		return nil, fmt.Errorf("failed to list organization ids: %w", err)
	}
	return ids, nil
}

// ListActiveStudentIDs returns students with at least one non-cancelled assignment
func (r *AnalyticsRepository) ListActiveStudentIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT student_id
		FROM mentorship_assignments
		WHERE status IN ('pending', 'active')
	`
	ids := make([]string, 0)
	if err := sqlx.SelectContext(ctx, r.db, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list active student ids: %w", err)
	}
	return ids, nil
}

// ListActiveMentorIDs returns mentors with at least one non-cancelled assignment
func (r *AnalyticsRepository) ListActiveMentorIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT mentor_id
		FROM mentorship_assignments
		WHERE status IN ('pending', 'active')
	`
	ids := make([]string, 0)
	if err := sqlx.SelectContext(ctx, r.db, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list active mentor ids: %w", err)
	}
	return ids, nil
}
