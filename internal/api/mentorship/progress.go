// progress.go implements progress notes recorded against an assignment.
package mentorship

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// RecordProgressRequest is the payload for recording a progress note
type RecordProgressRequest struct {
	Note            string `json:"note"`
	PercentComplete int    `json:"percent_complete"`
}

// RecordProgressHandler records a progress note on an active assignment. The
// mentor is notified when the student records progress and vice versa.
// POST /api/v1/assignments/:assignment_id/progress
func (h *Handlers) RecordProgressHandler() gin.HandlerFunc {
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

		var req RecordProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if req.PercentComplete < 0 || req.PercentComplete > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Percent complete must be between 0 and 100",
			})
			return
		}

		progress := &models.StudentProgress{
			AssignmentID:    assignment.ID,
			Note:            req.Note,
			PercentComplete: req.PercentComplete,
		}

		ctx := c.Request.Context()
		err := h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateProgress(ctx, progress); err != nil {
				return err
			}
			return h.bus.Publish(ctx, tx, events.ProgressRecorded{
				Progress:   progress,
				Assignment: assignment,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record progress",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"progress": progress})
	}
}

// ListProgressHandler lists the progress history of an assignment
// GET /api/v1/assignments/:assignment_id/progress
func (h *Handlers) ListProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		records, err := h.repo.ListProgress(c.Request.Context(), assignment.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list progress records",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"progress": records})
	}
}
