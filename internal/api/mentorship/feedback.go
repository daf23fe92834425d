// feedback.go implements feedback left by either party about an assignment.
package mentorship

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// GiveFeedbackRequest is the payload for leaving feedback
type GiveFeedbackRequest struct {
	Rating   int    `json:"rating" binding:"required"`
	Comments string `json:"comments"`
}

// GiveFeedbackHandler records feedback about the assignment. Feedback is
// accepted while the assignment is active or after it completed; the other
// party is notified inside the same transaction.
// POST /api/v1/assignments/:assignment_id/feedback
func (h *Handlers) GiveFeedbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}
		if assignment.Status != models.AssignmentActive && assignment.Status != models.AssignmentCompleted {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Assignment does not accept feedback in its current state",
			})
			return
		}

		var req GiveFeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if req.Rating < 1 || req.Rating > 5 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Rating must be between 1 and 5",
			})
			return
		}

		feedback := &models.MentorFeedback{
			AssignmentID: assignment.ID,
			AuthorID:     c.GetString("user_id"),
			Rating:       req.Rating,
			Comments:     req.Comments,
		}

		ctx := c.Request.Context()
		err := h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateFeedback(ctx, feedback); err != nil {
				return err
			}
			return h.bus.Publish(ctx, tx, events.FeedbackGiven{
				Feedback:   feedback,
				Assignment: assignment,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record feedback",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"feedback": feedback})
	}
}

// ListFeedbackHandler lists the feedback left on an assignment
// GET /api/v1/assignments/:assignment_id/feedback
func (h *Handlers) ListFeedbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		feedback, err := h.repo.ListFeedback(c.Request.Context(), assignment.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list feedback",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"feedback": feedback})
	}
}
