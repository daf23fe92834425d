// Package analytics implements the daily rollup aggregator. For each subject
// (organization, student, mentor) and calendar date it recomputes every metric
// from the raw activity tables and upserts one row keyed by (subject, date).
//
// Two rules shape the implementation:
//   - Skip-unless-forced: an existing row for the key makes the run a no-op
//     unless force is set, so re-invocations are cheap and idempotent.
//   - Metric isolation: each metric runs as its own guarded query. A failing
//     metric defaults to 0 and is logged; it never aborts the other metrics or
//     the upsert.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/telemetry"
)

// Aggregator recomputes and upserts daily rollup rows
type Aggregator struct {
	repo *repositories.AnalyticsRepository
}

// NewAggregator creates a rollup aggregator over the given repository
func NewAggregator(repo *repositories.AnalyticsRepository) *Aggregator {
	return &Aggregator{repo: repo}
}

// UpdateOrgRollup recomputes the rollup for one organization and date. When a
// row already exists and force is false the existing row is returned with
// computed=false.
func (a *Aggregator) UpdateOrgRollup(ctx context.Context, orgID string, date time.Time, force bool) (*models.OrgDailyRollup, bool, error) {
	existing, err := a.repo.GetOrgRollup(ctx, orgID, date)
	if err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectOrganization), "error").Inc()
		return nil, false, err
	}
	if existing != nil && !force {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectOrganization), "skipped").Inc()
		slog.Debug("org rollup skipped, row exists",
			"organization_id", orgID,
			"date", date.Format("2006-01-02"))
		return existing, false, nil
	}

	rollup := &models.OrgDailyRollup{OrganizationID: orgID, Date: date}
	rollup.ActiveUsers = guardInt(ctx, "active_users", orgID, func() (int, error) {
		return a.repo.OrgActiveUsers(ctx, orgID, date)
	})
	rollup.NewEnrollments = guardInt(ctx, "new_enrollments", orgID, func() (int, error) {
		return a.repo.OrgNewEnrollments(ctx, orgID, date)
	})
	rollup.SessionsHeld = guardInt(ctx, "sessions_held", orgID, func() (int, error) {
		return a.repo.OrgSessionsHeld(ctx, orgID, date)
	})
	rollup.MessagesSent = guardInt(ctx, "messages_sent", orgID, func() (int, error) {
		return a.repo.OrgMessagesSent(ctx, orgID, date)
	})
	rollup.GoalCompletionRate = guardFloat(ctx, "goal_completion_rate", orgID, func() (float64, error) {
		return a.repo.OrgGoalCompletionRate(ctx, orgID, date)
	})

	if err := a.repo.UpsertOrgRollup(ctx, rollup); err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectOrganization), "error").Inc()
		return nil, false, err
	}

	telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectOrganization), "computed").Inc()
	return rollup, true, nil
}

// UpdateStudentRollup recomputes the rollup for one student and date
func (a *Aggregator) UpdateStudentRollup(ctx context.Context, studentID string, date time.Time, force bool) (*models.StudentDailyRollup, bool, error) {
	existing, err := a.repo.GetStudentRollup(ctx, studentID, date)
	if err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectStudent), "error").Inc()
		return nil, false, err
	}
	if existing != nil && !force {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectStudent), "skipped").Inc()
		slog.Debug("student rollup skipped, row exists",
			"student_id", studentID,
			"date", date.Format("2006-01-02"))
		return existing, false, nil
	}

	rollup := &models.StudentDailyRollup{StudentID: studentID, Date: date}
	rollup.SessionsAttended = guardInt(ctx, "sessions_attended", studentID, func() (int, error) {
		return a.repo.StudentSessionsAttended(ctx, studentID, date)
	})
	rollup.MessagesSent = guardInt(ctx, "messages_sent", studentID, func() (int, error) {
		return a.repo.StudentMessagesSent(ctx, studentID, date)
	})
	rollup.GoalsCompleted = guardInt(ctx, "goals_completed", studentID, func() (int, error) {
		return a.repo.StudentGoalsCompleted(ctx, studentID, date)
	})
	rollup.GoalsOpen = guardInt(ctx, "goals_open", studentID, func() (int, error) {
		return a.repo.StudentGoalsOpen(ctx, studentID)
	})
	rollup.AvgProgress = guardFloat(ctx, "avg_progress", studentID, func() (float64, error) {
		return a.repo.StudentAvgProgress(ctx, studentID, date)
	})

	if err := a.repo.UpsertStudentRollup(ctx, rollup); err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectStudent), "error").Inc()
		return nil, false, err
	}

	telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectStudent), "computed").Inc()
	return rollup, true, nil
}

// UpdateMentorRollup recomputes the rollup for one mentor and date
func (a *Aggregator) UpdateMentorRollup(ctx context.Context, mentorID string, date time.Time, force bool) (*models.MentorDailyRollup, bool, error) {
	existing, err := a.repo.GetMentorRollup(ctx, mentorID, date)
	if err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectMentor), "error").Inc()
		return nil, false, err
	}
	if existing != nil && !force {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectMentor), "skipped").Inc()
		slog.Debug("mentor rollup skipped, row exists",
			"mentor_id", mentorID,
			"date", date.Format("2006-01-02"))
		return existing, false, nil
	}

	rollup := &models.MentorDailyRollup{MentorID: mentorID, Date: date}
	rollup.SessionsHeld = guardInt(ctx, "sessions_held", mentorID, func() (int, error) {
		return a.repo.MentorSessionsHeld(ctx, mentorID, date)
	})
	rollup.MessagesSent = guardInt(ctx, "messages_sent", mentorID, func() (int, error) {
		return a.repo.MentorMessagesSent(ctx, mentorID, date)
	})
	rollup.FeedbackGiven = guardInt(ctx, "feedback_given", mentorID, func() (int, error) {
		return a.repo.MentorFeedbackGiven(ctx, mentorID, date)
	})
	rollup.ActiveStudents = guardInt(ctx, "active_students", mentorID, func() (int, error) {
		return a.repo.MentorActiveStudents(ctx, mentorID)
	})
	rollup.AvgRating = guardFloat(ctx, "avg_rating", mentorID, func() (float64, error) {
		return a.repo.MentorAvgRating(ctx, mentorID, date)
	})

	if err := a.repo.UpsertMentorRollup(ctx, rollup); err != nil {
		telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectMentor), "error").Inc()
		return nil, false, err
	}

	telemetry.RollupRunsTotal.WithLabelValues(string(models.RollupSubjectMentor), "computed").Inc()
	return rollup, true, nil
}

// RunDaily recomputes rollups for every organization, active student, and
// active mentor for the given date. Per-subject failures are logged and the
// pass continues; the first listing failure aborts.
func (a *Aggregator) RunDaily(ctx context.Context, date time.Time, force bool) error {
	orgIDs, err := a.repo.ListOrganizationIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range orgIDs {
		if _, _, err := a.UpdateOrgRollup(ctx, id, date, force); err != nil {
			slog.Error("org rollup failed", "organization_id", id, "error", err)
		}
	}

	studentIDs, err := a.repo.ListActiveStudentIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range studentIDs {
		if _, _, err := a.UpdateStudentRollup(ctx, id, date, force); err != nil {
			slog.Error("student rollup failed", "student_id", id, "error", err)
		}
	}

	mentorIDs, err := a.repo.ListActiveMentorIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range mentorIDs {
		if _, _, err := a.UpdateMentorRollup(ctx, id, date, force); err != nil {
			slog.Error("mentor rollup failed", "mentor_id", id, "error", err)
		}
	}

	slog.Info("daily rollup pass finished",
		"date", date.Format("2006-01-02"),
		"organizations", len(orgIDs),
		"students", len(studentIDs),
		"mentors", len(mentorIDs))
	return nil
}

// guardInt runs one count metric, defaulting to 0 on failure
func guardInt(_ context.Context, metric, subjectID string, fn func() (int, error)) int {
	v, err := fn()
	if err != nil {
		slog.Warn("rollup metric failed, defaulting to 0",
			"metric", metric,
			"subject_id", subjectID,
			"error", err)
		return 0
	}
	return v
}

// guardFloat runs one rate/average metric, defaulting to 0 on failure
func guardFloat(_ context.Context, metric, subjectID string, fn func() (float64, error)) float64 {
	v, err := fn()
	if err != nil {
		slog.Warn("rollup metric failed, defaulting to 0",
			"metric", metric,
			"subject_id", subjectID,
			"error", err)
		return 0
	}
	return v
}
