package mentorship

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/events"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

var assignmentCols = []string{"id", "mentor_id", "student_id", "cohort_id", "status", "created_at", "updated_at"}

func newMentorshipTest(t *testing.T) (*Handlers, sqlmock.Sqlmock, *events.Bus) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewBus()
	h := NewHandlers(&config.Config{}, sqlx.NewDb(db, "sqlmock"), bus)
	return h, mock, bus
}

// newPartyRouter registers the assignment routes with the caller's identity
// injected, standing in for the auth middleware.
func newPartyRouter(h *Handlers, userID string) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})

	router.POST("/organizations/:org_id/cohorts/:cohort_id/assignments", h.CreateAssignmentHandler())
	router.PATCH("/goals/:goal_id", h.UpdateGoalHandler())

	group := router.Group("/assignments/:assignment_id")
	group.GET("", h.GetAssignmentHandler())
	group.PATCH("/status", h.UpdateAssignmentStatusHandler())
	group.POST("/sessions", h.ScheduleSessionHandler())
	group.POST("/messages", h.SendMessageHandler())
	group.POST("/feedback", h.GiveFeedbackHandler())
	group.POST("/progress", h.RecordProgressHandler())
	return router
}

func assignmentRows(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(assignmentCols).
		AddRow("asg-1", "mentor-1", "student-1", "cohort-1", status, now, now)
}

func expectGetAssignment(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, mentor_id, student_id, cohort_id, status, created_at, updated_at\s+FROM mentorship_assignments`).
		WillReturnRows(rows)
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetAssignmentHandler_PartyAllowed(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("active"))

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodGet, "/assignments/asg-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"asg-1"`)
}

func TestGetAssignmentHandler_NonPartyForbidden(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("active"))

	w := doJSON(newPartyRouter(h, "bystander-9"), http.MethodGet, "/assignments/asg-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAssignmentHandler_NotFound(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, sqlmock.NewRows(assignmentCols))

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodGet, "/assignments/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAssignmentStatus_ValidTransition(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("active"))
	mock.ExpectExec(`UPDATE mentorship_assignments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newPartyRouter(h, "student-1"), http.MethodPatch, "/assignments/asg-1/status",
		gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestUpdateAssignmentStatus_InvalidTransition(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("completed"))

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodPatch, "/assignments/asg-1/status",
		gin.H{"status": "active"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	// No UPDATE reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessage_PublishesInsideTransaction(t *testing.T) {
	h, mock, bus := newMentorshipTest(t)

	var seen *events.MessageSent
	bus.Subscribe(events.MessageSent{}.Name(), func(_ context.Context, _ sqlx.ExtContext, ev events.Event) error {
		msg := ev.(events.MessageSent)
		seen = &msg
		return nil
	})

	expectGetAssignment(mock, assignmentRows("active"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO mentor_messages`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("msg-1", time.Now()))
	mock.ExpectCommit()

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodPost, "/assignments/asg-1/messages",
		gin.H{"body": "How is the project going?"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, seen)
	assert.Equal(t, "msg-1", seen.Message.ID)
	assert.Equal(t, "student-1", seen.Assignment.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessage_SubscriberFailureRollsBack(t *testing.T) {
	h, mock, bus := newMentorshipTest(t)

	bus.Subscribe(events.MessageSent{}.Name(), func(_ context.Context, _ sqlx.ExtContext, _ events.Event) error {
		return assert.AnError
	})

	expectGetAssignment(mock, assignmentRows("active"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO mentor_messages`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("msg-1", time.Now()))
	mock.ExpectRollback()

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodPost, "/assignments/asg-1/messages",
		gin.H{"body": "lost message"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSession_InactiveAssignment(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("cancelled"))

	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodPost, "/assignments/asg-1/sessions",
		gin.H{"scheduled_at": time.Now().Add(24 * time.Hour)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGiveFeedback_RatingOutOfRange(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("active"))

	w := doJSON(newPartyRouter(h, "student-1"), http.MethodPost, "/assignments/asg-1/feedback",
		gin.H{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

var goalCols = []string{"id", "assignment_id", "title", "description", "status", "target_date", "created_at", "updated_at"}

func goalRow(targetDate *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(goalCols).
		AddRow("goal-1", "asg-1", "Ship the capstone", "", "open", targetDate, now, now)
}

func expectGetGoal(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, assignment_id, title, description, status, target_date, created_at, updated_at\s+FROM mentorship_goals`).
		WillReturnRows(rows)
}

func TestUpdateGoal_DateMovedIntoWindowFiresReminder(t *testing.T) {
	h, mock, bus := newMentorshipTest(t)

	var seen *events.GoalDeadlineApproaching
	bus.Subscribe(events.GoalDeadlineApproaching{}.Name(), func(_ context.Context, _ sqlx.ExtContext, ev events.Event) error {
		got := ev.(events.GoalDeadlineApproaching)
		seen = &got
		return nil
	})

	farOut := time.Now().UTC().AddDate(0, 0, 30)
	expectGetGoal(mock, goalRow(&farOut))
	expectGetAssignment(mock, assignmentRows("active"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE mentorship_goals`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	nearDate := time.Now().UTC().AddDate(0, 0, 2).Format(time.RFC3339)
	w := doJSON(newPartyRouter(h, "student-1"), http.MethodPatch, "/goals/goal-1",
		gin.H{"target_date": nearDate})
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, seen)
	assert.Equal(t, "goal-1", seen.Goal.ID)
	assert.Equal(t, "asg-1", seen.Assignment.ID)
	assert.Equal(t, time.Now().UTC().Truncate(24*time.Hour), seen.Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGoal_DateOutsideWindowStaysQuiet(t *testing.T) {
	h, mock, bus := newMentorshipTest(t)

	fired := false
	bus.Subscribe(events.GoalDeadlineApproaching{}.Name(), func(_ context.Context, _ sqlx.ExtContext, _ events.Event) error {
		fired = true
		return nil
	})

	expectGetGoal(mock, goalRow(nil))
	expectGetAssignment(mock, assignmentRows("active"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE mentorship_goals`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	farDate := time.Now().UTC().AddDate(0, 0, 30).Format(time.RFC3339)
	w := doJSON(newPartyRouter(h, "mentor-1"), http.MethodPatch, "/goals/goal-1",
		gin.H{"target_date": farDate})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, fired)
}

func TestCreateAssignment_StartsPending(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM cohorts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "starts_on", "ends_on", "created_at", "updated_at"}).
			AddRow("cohort-1", "org-1", "Spring 2027", now, now.AddDate(0, 3, 0), now, now))
	for _, userID := range []string{"mentor-1", "student-1"} {
		mock.ExpectQuery(`(?s)SELECT .+ FROM cohort_members`).
			WillReturnRows(sqlmock.NewRows([]string{"cohort_id", "user_id", "role", "created_at"}).
				AddRow("cohort-1", userID, "mentor", now))
	}
	mock.ExpectQuery(`(?s)SELECT .+ FROM mentor_profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "max_students", "status", "bio", "created_at", "updated_at"}).
			AddRow("mp-1", "mentor-1", 5, "active", "", now, now))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT student_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO mentorship_assignments`).
		WithArgs("mentor-1", "student-1", "cohort-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("asg-9", now, now))
	mock.ExpectCommit()

	w := doJSON(newPartyRouter(h, "admin-1"), http.MethodPost,
		"/organizations/org-1/cohorts/cohort-1/assignments",
		gin.H{"mentor_id": "mentor-1", "student_id": "student-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordProgress_PercentOutOfRange(t *testing.T) {
	h, mock, _ := newMentorshipTest(t)
	expectGetAssignment(mock, assignmentRows("active"))

	w := doJSON(newPartyRouter(h, "student-1"), http.MethodPost, "/assignments/asg-1/progress",
		gin.H{"note": "x", "percent_complete": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
