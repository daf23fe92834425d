// sessions.go implements session scheduling on an assignment.
package mentorship

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// ScheduleSessionRequest is the payload for scheduling a mentor session
type ScheduleSessionRequest struct {
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Topic           string    `json:"topic"`
}

// ScheduleSessionHandler schedules a session on an active assignment. The
// other party receives a notification inside the same transaction.
// POST /api/v1/assignments/:assignment_id/sessions
func (h *Handlers) ScheduleSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}
		if assignment.Status != models.AssignmentActive {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Assignment is not active",
			})
			return
		}

		var req ScheduleSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if req.DurationMinutes <= 0 {
			req.DurationMinutes = 30
		}

		session := &models.MentorSession{
			AssignmentID:    assignment.ID,
			ScheduledAt:     req.ScheduledAt,
			DurationMinutes: req.DurationMinutes,
			Topic:           req.Topic,
			Status:          models.SessionScheduled,
		}

		ctx := c.Request.Context()
		err := h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateSession(ctx, session); err != nil {
				return err
			}
			return h.bus.Publish(ctx, tx, events.SessionScheduled{
				Session:    session,
				Assignment: assignment,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to schedule session",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"session": session})
	}
}

// ListSessionsHandler lists the sessions of an assignment
// GET /api/v1/assignments/:assignment_id/sessions
func (h *Handlers) ListSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		sessions, err := h.repo.ListSessions(c.Request.Context(), assignment.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list sessions",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}
