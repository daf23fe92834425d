// mentorship_repository.go implements MentorshipRepository, covering the assignment
// aggregate and its nested records: sessions, messages, feedback, goals, progress.
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

// MentorshipRepository handles database operations for mentorship assignments
// and their nested records
type MentorshipRepository struct {
	db sqlx.ExtContext
}

// NewMentorshipRepository creates a new mentorship repository
func NewMentorshipRepository(db sqlx.ExtContext) *MentorshipRepository {
	return &MentorshipRepository{db: db}
}

// === Assignments ===

// GetAssignment retrieves an assignment by ID
func (r *MentorshipRepository) GetAssignment(ctx context.Context, id string) (*models.MentorshipAssignment, error) {
	query := `
		SELECT id, mentor_id, student_id, cohort_id, status, created_at, updated_at
		FROM mentorship_assignments
		WHERE id = $1
	`

	a := &models.MentorshipAssignment{}
	err := sqlx.GetContext(ctx, r.db, a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// CreateAssignment inserts a new assignment
func (r *MentorshipRepository) CreateAssignment(ctx context.Context, a *models.MentorshipAssignment) error {
	query := `
		INSERT INTO mentorship_assignments (mentor_id, student_id, cohort_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, a.MentorID, a.StudentID, a.CohortID, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return nil
}

// UpdateAssignmentStatus moves an assignment through its state machine
func (r *MentorshipRepository) UpdateAssignmentStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	query := `
		UPDATE mentorship_assignments
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}

	return nil
}

// ListAssignmentsByMentor retrieves a mentor's assignments
func (r *MentorshipRepository) ListAssignmentsByMentor(ctx context.Context, mentorID string) ([]*models.MentorshipAssignment, error) {
	query := `
		SELECT id, mentor_id, student_id, cohort_id, status, created_at, updated_at
		FROM mentorship_assignments
		WHERE mentor_id = $1
		ORDER BY created_at DESC
	`

	assignments := make([]*models.MentorshipAssignment, 0)
	if err := sqlx.SelectContext(ctx, r.db, &assignments, query, mentorID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	return assignments, nil
}

// ListAssignmentsByStudent retrieves a student's assignments
func (r *MentorshipRepository) ListAssignmentsByStudent(ctx context.Context, studentID string) ([]*models.MentorshipAssignment, error) {
	query := `
		SELECT id, mentor_id, student_id, cohort_id, status, created_at, updated_at
		FROM mentorship_assignments
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	assignments := make([]*models.MentorshipAssignment, 0)
	if err := sqlx.SelectContext(ctx, r.db, &assignments, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	return assignments, nil
}

// HasActiveAssignment reports whether an active assignment links the given
// mentor and student. This backs the is_mentor_of_student predicate.
func (r *MentorshipRepository) HasActiveAssignment(ctx context.Context, mentorID, studentID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM mentorship_assignments
			WHERE mentor_id = $1 AND student_id = $2 AND status = 'active'
		)
	`

	if err := sqlx.GetContext(ctx, r.db, &exists, query, mentorID, studentID); err != nil {
		return false, fmt.Errorf("failed to check active assignment: %w", err)
	}

	return exists, nil
}

// HasOpenAssignment reports whether a pending or active assignment links the
// given mentor and student. This backs the duplicate check at creation, which
// must also reject a pair that is still awaiting activation.
func (r *MentorshipRepository) HasOpenAssignment(ctx context.Context, mentorID, studentID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM mentorship_assignments
			WHERE mentor_id = $1 AND student_id = $2 AND status IN ('pending', 'active')
		)
	`

	if err := sqlx.GetContext(ctx, r.db, &exists, query, mentorID, studentID); err != nil {
		return false, fmt.Errorf("failed to check open assignment: %w", err)
	}

	return exists, nil
}

// CountOpenStudents returns the number of distinct students a mentor holds a
// pending or active assignment for. Used for the MentorProfile capacity check;
// pending assignments reserve a slot so activation cannot overshoot.
func (r *MentorshipRepository) CountOpenStudents(ctx context.Context, mentorID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(DISTINCT student_id)
		FROM mentorship_assignments
		WHERE mentor_id = $1 AND status IN ('pending', 'active')
	`

	if err := sqlx.GetContext(ctx, r.db, &count, query, mentorID); err != nil {
		return 0, fmt.Errorf("failed to count open students: %w", err)
	}

	return count, nil
}

// === Sessions ===

// CreateSession inserts a scheduled session
func (r *MentorshipRepository) CreateSession(ctx context.Context, s *models.MentorSession) error {
	query := `
		INSERT INTO mentor_sessions (assignment_id, scheduled_at, duration_minutes, topic, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.AssignmentID, s.ScheduledAt, s.DurationMinutes, s.Topic, s.Status).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// ListSessions retrieves all sessions for an assignment
func (r *MentorshipRepository) ListSessions(ctx context.Context, assignmentID string) ([]*models.MentorSession, error) {
	query := `
		SELECT id, assignment_id, scheduled_at, duration_minutes, topic, status, created_at
		FROM mentor_sessions
		WHERE assignment_id = $1
		ORDER BY scheduled_at DESC
	`

	sessions := make([]*models.MentorSession, 0)
	if err := sqlx.SelectContext(ctx, r.db, &sessions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// === Messages ===

// CreateMessage inserts a message
func (r *MentorshipRepository) CreateMessage(ctx context.Context, m *models.MentorMessage) error {
	query := `
		INSERT INTO mentor_messages (assignment_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query, m.AssignmentID, m.SenderID, m.Body).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListMessages retrieves all messages for an assignment
func (r *MentorshipRepository) ListMessages(ctx context.Context, assignmentID string) ([]*models.MentorMessage, error) {
	query := `
		SELECT id, assignment_id, sender_id, body, created_at
		FROM mentor_messages
		WHERE assignment_id = $1
		ORDER BY created_at ASC
	`

	messages := make([]*models.MentorMessage, 0)
	if err := sqlx.SelectContext(ctx, r.db, &messages, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// === Feedback ===

// CreateFeedback inserts a feedback record
func (r *MentorshipRepository) CreateFeedback(ctx context.Context, f *models.MentorFeedback) error {
	query := `
		INSERT INTO mentor_feedback (assignment_id, author_id, rating, comments)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query, f.AssignmentID, f.AuthorID, f.Rating, f.Comments).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

// ListFeedback retrieves all feedback for an assignment
func (r *MentorshipRepository) ListFeedback(ctx context.Context, assignmentID string) ([]*models.MentorFeedback, error) {
	query := `
		SELECT id, assignment_id, author_id, rating, comments, created_at
		FROM mentor_feedback
		WHERE assignment_id = $1
		ORDER BY created_at DESC
	`

	feedback := make([]*models.MentorFeedback, 0)
	if err := sqlx.SelectContext(ctx, r.db, &feedback, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	return feedback, nil
}

// === Goals ===

// GetGoal retrieves a goal by ID
func (r *MentorshipRepository) GetGoal(ctx context.Context, id string) (*models.MentorshipGoal, error) {
	query := `
		SELECT id, assignment_id, title, description, status, target_date, created_at, updated_at
		FROM mentorship_goals
		WHERE id = $1
	`

	g := &models.MentorshipGoal{}
	err := sqlx.GetContext(ctx, r.db, g, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	return g, nil
}

// CreateGoal inserts a goal
func (r *MentorshipRepository) CreateGoal(ctx context.Context, g *models.MentorshipGoal) error {
	query := `
		INSERT INTO mentorship_goals (assignment_id, title, description, status, target_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		g.AssignmentID, g.Title, g.Description, g.Status, g.TargetDate).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// UpdateGoal updates a goal's mutable fields
func (r *MentorshipRepository) UpdateGoal(ctx context.Context, g *models.MentorshipGoal) error {
	query := `
		UPDATE mentorship_goals
		SET title = $2, description = $3, status = $4, target_date = $5, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, g.ID, g.Title, g.Description, g.Status, g.TargetDate)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	return nil
}

// ListGoalsDueWithin retrieves non-terminal goals whose target date falls
// between today and today+windowDays (inclusive). Used by the reminder job.
func (r *MentorshipRepository) ListGoalsDueWithin(ctx context.Context, today time.Time, windowDays int) ([]*models.MentorshipGoal, error) {
	query := `
		SELECT id, assignment_id, title, description, status, target_date, created_at, updated_at
		FROM mentorship_goals
		WHERE status IN ('open', 'in_progress')
		  AND target_date IS NOT NULL
		  AND target_date >= $1::date
		  AND target_date <= $1::date + $2 * INTERVAL '1 day'
		ORDER BY target_date ASC
	`

	goals := make([]*models.MentorshipGoal, 0)
	if err := sqlx.SelectContext(ctx, r.db, &goals, query, today.Format("2006-01-02"), windowDays); err != nil {
		return nil, fmt.Errorf("failed to list goals due within window: %w", err)
	}

	return goals, nil
}

// === Progress ===

// CreateProgress inserts a student progress record
func (r *MentorshipRepository) CreateProgress(ctx context.Context, p *models.StudentProgress) error {
	query := `
		INSERT INTO student_progress (assignment_id, note, percent_complete)
		VALUES ($1, $2, $3)
		RETURNING id, recorded_at
	`

	err := r.db.QueryRowxContext(ctx, query, p.AssignmentID, p.Note, p.PercentComplete).
		Scan(&p.ID, &p.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create progress record: %w", err)
	}

	return nil
}

// ListProgress retrieves progress records for an assignment
func (r *MentorshipRepository) ListProgress(ctx context.Context, assignmentID string) ([]*models.StudentProgress, error) {
	query := `
		SELECT id, assignment_id, note, percent_complete, recorded_at
		FROM student_progress
		WHERE assignment_id = $1
		ORDER BY recorded_at DESC
	`

	records := make([]*models.StudentProgress, 0)
	if err := sqlx.SelectContext(ctx, r.db, &records, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list progress records: %w", err)
	}

	return records, nil
}
