package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/learnstack/lms-backend/internal/db/models"
)

var orgRollupCols = []string{
	"id", "organization_id", "date", "active_users", "new_enrollments",
	"sessions_held", "messages_sent", "goal_completion_rate", "created_at", "updated_at",
}

func newAnalyticsRepo(t *testing.T) (*AnalyticsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	return NewAnalyticsRepository(db), mock
}

var rollupDate = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Rollup reads
// ---------------------------------------------------------------------------

func TestGetOrgRollup_Found(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT.*FROM org_daily_rollups").
		WithArgs("org-1", "2026-08-30").
		WillReturnRows(sqlmock.NewRows(orgRollupCols).
			AddRow("rollup-1", "org-1", rollupDate, 12, 3, 5, 40, 0.25, time.Now(), time.Now()))

	rollup, err := repo.GetOrgRollup(context.Background(), "org-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rollup == nil {
		t.Fatal("expected rollup, got nil")
	}
	if rollup.ActiveUsers != 12 {
		t.Errorf("ActiveUsers = %d, want 12", rollup.ActiveUsers)
	}
}

func TestGetOrgRollup_NotFound(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT.*FROM org_daily_rollups").
		WillReturnRows(sqlmock.NewRows(orgRollupCols))

	rollup, err := repo.GetOrgRollup(context.Background(), "org-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rollup != nil {
		t.Error("expected nil, got non-nil")
	}
}

// ---------------------------------------------------------------------------
// Upserts
// ---------------------------------------------------------------------------

func TestUpsertOrgRollup(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("INSERT INTO org_daily_rollups").
		WillReturnRows(sqlmock.NewRows(createCols).AddRow("rollup-1", time.Now(), time.Now()))

	rollup := &models.OrgDailyRollup{
		OrganizationID: "org-1",
		Date:           rollupDate,
		ActiveUsers:    12,
		MessagesSent:   40,
	}
	if err := repo.UpsertOrgRollup(context.Background(), rollup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rollup.ID != "rollup-1" {
		t.Errorf("ID = %s, want rollup-1", rollup.ID)
	}
}

func TestUpsertStudentRollup_DBError(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("INSERT INTO student_daily_rollups").
		WillReturnError(errDB)

	rollup := &models.StudentDailyRollup{StudentID: "student-1", Date: rollupDate}
	if err := repo.UpsertStudentRollup(context.Background(), rollup); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestUpsertMentorRollup(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("INSERT INTO mentor_daily_rollups").
		WillReturnRows(sqlmock.NewRows(createCols).AddRow("rollup-2", time.Now(), time.Now()))

	rollup := &models.MentorDailyRollup{MentorID: "mentor-1", Date: rollupDate, SessionsHeld: 2}
	if err := repo.UpsertMentorRollup(context.Background(), rollup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Metric sources
// ---------------------------------------------------------------------------

func TestOrgMessagesSent(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM mentor_messages").
		WithArgs("org-1", "2026-08-30").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))

	count, err := repo.OrgMessagesSent(context.Background(), "org-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 40 {
		t.Errorf("count = %d, want 40", count)
	}
}

func TestOrgGoalCompletionRate(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT.*FROM mentorship_goals").
		WillReturnRows(sqlmock.NewRows([]string{"completed", "total"}).AddRow(3, 12))

	rate, err := repo.OrgGoalCompletionRate(context.Background(), "org-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0.25 {
		t.Errorf("rate = %f, want 0.25", rate)
	}
}

// No goals at all: the rate is 0, not a division error.
func TestOrgGoalCompletionRate_NoGoals(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT.*FROM mentorship_goals").
		WillReturnRows(sqlmock.NewRows([]string{"completed", "total"}).AddRow(0, 0))

	rate, err := repo.OrgGoalCompletionRate(context.Background(), "org-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0 {
		t.Errorf("rate = %f, want 0", rate)
	}
}

func TestStudentGoalsOpen(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM mentorship_goals").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.StudentGoalsOpen(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestMentorAvgRating(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT COALESCE.*FROM mentor_feedback").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4.5))

	avg, err := repo.MentorAvgRating(context.Background(), "mentor-1", rollupDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 4.5 {
		t.Errorf("avg = %f, want 4.5", avg)
	}
}

func TestListOrganizationIDs(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT id FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("org-1").AddRow("org-2"))

	ids, err := repo.ListOrganizationIDs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("len = %d, want 2", len(ids))
	}
}
