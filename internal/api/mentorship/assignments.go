// assignments.go implements the assignment lifecycle handlers: pairing a
// mentor with a student inside a cohort and moving the pair through the
// status state machine.
package mentorship

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// CreateAssignmentRequest pairs a mentor with a student in a cohort
type CreateAssignmentRequest struct {
	MentorID  string `json:"mentor_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
}

// CreateAssignmentHandler creates a mentorship assignment in the pending
// state. Both parties must be enrolled in the cohort, the mentor must have an
// active profile with spare capacity, and the pair must not already have an
// open assignment.
// POST /api/v1/organizations/:org_id/cohorts/:cohort_id/assignments
func (h *Handlers) CreateAssignmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		orgID := c.Param("org_id")
		cohortID := c.Param("cohort_id")

		var req CreateAssignmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if req.MentorID == req.StudentID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Mentor and student must be different users",
			})
			return
		}

		cohort, err := h.cohortRepo.GetByID(ctx, cohortID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve cohort",
			})
			return
		}
		if cohort == nil || cohort.OrganizationID != orgID {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cohort not found",
			})
			return
		}

		for _, userID := range []string{req.MentorID, req.StudentID} {
			member, err := h.cohortRepo.GetMember(ctx, cohortID, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check cohort membership",
				})
				return
			}
			if member == nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": "Both parties must be enrolled in the cohort",
				})
				return
			}
		}

		profile, err := h.profileRepo.GetMentorProfile(ctx, req.MentorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve mentor profile",
			})
			return
		}
		if profile == nil || profile.Status != models.MentorProfileActive {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Mentor does not have an active mentor profile",
			})
			return
		}

		open, err := h.repo.CountOpenStudents(ctx, req.MentorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check mentor capacity",
			})
			return
		}
		if open >= profile.MaxStudents {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Mentor is at capacity",
			})
			return
		}

		exists, err := h.repo.HasOpenAssignment(ctx, req.MentorID, req.StudentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing assignment",
			})
			return
		}
		if exists {
			c.JSON(http.StatusConflict, gin.H{
				"error": "An open assignment already links this mentor and student",
			})
			return
		}

		// New assignments start pending; a party activates via PATCH /status.
		assignment := &models.MentorshipAssignment{
			MentorID:  req.MentorID,
			StudentID: req.StudentID,
			CohortID:  cohortID,
			Status:    models.AssignmentPending,
		}

		err = h.inTx(c, func(tx *sqlx.Tx) error {
			if err := repositories.NewMentorshipRepository(tx).CreateAssignment(ctx, assignment); err != nil {
				return err
			}
			return h.bus.Publish(ctx, tx, events.AssignmentCreated{Assignment: assignment})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create assignment",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
	}
}

// ListMyAssignmentsHandler lists the caller's assignments on both sides of the
// relationship
// GET /api/v1/me/assignments
func (h *Handlers) ListMyAssignmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetString("user_id")

		asMentor, err := h.repo.ListAssignmentsByMentor(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list assignments",
			})
			return
		}

		asStudent, err := h.repo.ListAssignmentsByStudent(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list assignments",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"as_mentor":  asMentor,
			"as_student": asStudent,
		})
	}
}

// GetAssignmentHandler retrieves an assignment visible to its two parties
// GET /api/v1/assignments/:assignment_id
func (h *Handlers) GetAssignmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{"assignment": assignment})
	}
}

// UpdateAssignmentStatusRequest moves an assignment through its state machine
type UpdateAssignmentStatusRequest struct {
	Status models.AssignmentStatus `json:"status" binding:"required"`
}

// UpdateAssignmentStatusHandler transitions an assignment's status. Only the
// transitions the state machine permits are accepted; terminal states reject
// any further change.
// PATCH /api/v1/assignments/:assignment_id/status
func (h *Handlers) UpdateAssignmentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignment, ok := h.loadAssignmentForParty(c)
		if !ok {
			return
		}

		var req UpdateAssignmentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if !assignment.Status.CanTransitionTo(req.Status) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Cannot transition from " + string(assignment.Status) + " to " + string(req.Status),
			})
			return
		}

		if err := h.repo.UpdateAssignmentStatus(c.Request.Context(), assignment.ID, req.Status); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update assignment status",
			})
			return
		}

		assignment.Status = req.Status
		c.JSON(http.StatusOK, gin.H{"assignment": assignment})
	}
}
