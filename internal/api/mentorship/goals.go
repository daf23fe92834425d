// goals.go implements dated goals attached to an assignment. Goal status
// changes are one-way once a terminal state is reached; terminal goals also
// stop producing deadline reminders.
package mentorship

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// CreateGoalRequest is the payload for attaching a goal to an assignment
type CreateGoalRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date"`
}

// CreateGoalHandler creates a goal on an active assignment
// POST /api/v1/assignments/:assignment_id/goals
func (h *Handlers) CreateGoalHandler() gin.HandlerFunc {
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

		var req CreateGoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		goal := &models.MentorshipGoal{
			AssignmentID: assignment.ID,
			Title:        req.Title,
			Description:  req.Description,
			Status:       models.GoalOpen,
			TargetDate:   req.TargetDate,
		}

		ctx := c.Request.Context()
		err := h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateGoal(ctx, goal); err != nil {
				return err
			}
			if err := h.bus.Publish(ctx, tx, events.GoalCreated{
				Goal:       goal,
				Assignment: assignment,
			}); err != nil {
				return err
			}
			return h.publishGoalDeadline(ctx, tx, goal, assignment)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create goal",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"goal": goal})
	}
}

// UpdateGoalRequest carries the mutable goal fields; omitted fields keep
// their current values
type UpdateGoalRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *models.GoalStatus `json:"status"`
	TargetDate  *time.Time         `json:"target_date"`
}

// UpdateGoalHandler updates a goal. Goals in a terminal state reject all
// changes.
// PATCH /api/v1/goals/:goal_id
func (h *Handlers) UpdateGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		goal, err := h.repo.GetGoal(ctx, c.Param("goal_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve goal",
			})
			return
		}
		if goal == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Goal not found",
			})
			return
		}

		assignment, err := h.repo.GetAssignment(ctx, goal.AssignmentID)
		if err != nil || assignment == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve assignment",
			})
			return
		}

		userID := c.GetString("user_id")
		if userID != assignment.MentorID && userID != assignment.StudentID {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Not a party to this assignment",
			})
			return
		}

		if goal.Status.Terminal() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Goal is in a terminal state",
			})
			return
		}

		var req UpdateGoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Title != nil {
			goal.Title = *req.Title
		}
		if req.Description != nil {
			goal.Description = *req.Description
		}
		if req.Status != nil {
			switch *req.Status {
			case models.GoalOpen, models.GoalInProgress, models.GoalCompleted, models.GoalCancelled:
				goal.Status = *req.Status
			default:
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid goal status: " + string(*req.Status),
				})
				return
			}
		}
		if req.TargetDate != nil {
			goal.TargetDate = req.TargetDate
		}

		err = h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).UpdateGoal(ctx, goal); err != nil {
				return err
			}
			return h.publishGoalDeadline(ctx, tx, goal, assignment)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update goal",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"goal": goal})
	}
}

// reminderWindowDays mirrors the background scanner's window so the on-write
// check and the periodic scan agree on what "approaching" means.
func (h *Handlers) reminderWindowDays() int {
	if h.cfg.Notifications.GoalReminderWindowDays > 0 {
		return h.cfg.Notifications.GoalReminderWindowDays
	}
	return 3
}

// publishGoalDeadline emits a deadline event when the goal's target date sits
// inside the reminder window. Goal writes re-run this check so a target date
// moved into the window reminds immediately rather than waiting for the next
// scan; the fanout's dedupe key absorbs the overlap with the scanner.
func (h *Handlers) publishGoalDeadline(ctx context.Context, tx *sqlx.Tx, goal *models.MentorshipGoal, assignment *models.MentorshipAssignment) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !goal.DeadlineWithin(today, h.reminderWindowDays()) {
		return nil
	}
	return h.bus.Publish(ctx, tx, events.GoalDeadlineApproaching{
		Goal:       goal,
		Assignment: assignment,
		Day:        today,
	})
}
