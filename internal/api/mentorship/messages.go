// messages.go implements the message thread between the two assignment parties.
package mentorship

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// SendMessageRequest is the payload for sending a message
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessageHandler sends a message to the other assignment party. The
// recipient is notified inside the same transaction.
// POST /api/v1/assignments/:assignment_id/messages
func (h *Handlers) SendMessageHandler() gin.HandlerFunc {
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

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		message := &models.MentorMessage{
			AssignmentID: assignment.ID,
			SenderID:     c.GetString("user_id"),
			Body:         req.Body,
		}

		ctx := c.Request.Context()
		err := h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateMessage(ctx, message); err != nil {
				return err
			}
			return h.bus.Publish(ctx, tx, events.MessageSent{
				Message:    message,
				Assignment: assignment,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to send message",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": message})
	}
}

// ListMessagesHandler lists the message thread of an assignment in
// chronological order
// GET /api/v1/assignments/:assignment_id/messages
func (h *Handlers) ListMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		messages, err := h.repo.ListMessages(c.Request.Context(), assignment.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list messages",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}
