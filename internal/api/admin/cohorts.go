// cohorts.go implements handlers for cohort management and enrollment within
// an organization.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// CreateCohortRequest is the payload for creating a learning cohort
type CreateCohortRequest struct {
	Name     string     `json:"name" binding:"required"`
	StartsOn *time.Time `json:"starts_on"`
	EndsOn   *time.Time `json:"ends_on"`
}

// CreateCohortHandler creates a cohort inside an organization
// POST /api/v1/organizations/:org_id/cohorts
func (h *Handlers) CreateCohortHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

		var req CreateCohortRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if req.StartsOn != nil && req.EndsOn != nil && req.EndsOn.Before(*req.StartsOn) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cohort end date precedes its start date",
			})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organization",
			})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Organization not found",
			})
			return
		}

		cohort := &models.Cohort{
			OrganizationID: orgID,
			Name:           req.Name,
			StartsOn:       req.StartsOn,
			EndsOn:         req.EndsOn,
		}

		if err := h.cohortRepo.Create(c.Request.Context(), cohort); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create cohort",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"cohort": cohort})
	}
}

// ListCohortsHandler lists the cohorts of an organization
// GET /api/v1/organizations/:org_id/cohorts
func (h *Handlers) ListCohortsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

		cohorts, err := h.cohortRepo.ListByOrganization(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list cohorts",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"cohorts": cohorts})
	}
}

// GetCohortHandler retrieves a cohort and its members
// GET /api/v1/organizations/:org_id/cohorts/:cohort_id
func (h *Handlers) GetCohortHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cohortID := c.Param("cohort_id")

		cohort, err := h.cohortRepo.GetByID(c.Request.Context(), cohortID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve cohort",
			})
			return
		}
		// The cohort must belong to the organization the caller was authorized
		// against; a mismatched pair is treated as absent
		if cohort == nil || cohort.OrganizationID != c.Param("org_id") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cohort not found",
			})
			return
		}

		members, err := h.cohortRepo.ListMembers(c.Request.Context(), cohortID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve cohort members",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"cohort":  cohort,
			"members": members,
		})
	}
}

// EnrollRequest is the payload for enrolling a user into a cohort
type EnrollRequest struct {
	UserID string            `json:"user_id" binding:"required"`
	Role   models.CohortRole `json:"role" binding:"required"`
}

// EnrollHandler adds a user to a cohort with a per-cohort role. The user must
// already be a member of the owning organization.
// POST /api/v1/organizations/:org_id/cohorts/:cohort_id/members
func (h *Handlers) EnrollHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")
		cohortID := c.Param("cohort_id")

		var req EnrollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid cohort role: " + string(req.Role),
			})
			return
		}

		cohort, err := h.cohortRepo.GetByID(c.Request.Context(), cohortID)
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

		member, err := h.orgRepo.GetMember(c.Request.Context(), orgID, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check organization membership",
			})
			return
		}
		if member == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "User is not a member of the organization",
			})
			return
		}

		if err := h.cohortRepo.AddMember(c.Request.Context(), cohortID, req.UserID, req.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to enroll user",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"cohort_id": cohortID,
			"user_id":   req.UserID,
			"role":      req.Role,
		})
	}
}

// UnenrollHandler removes a user from a cohort
// DELETE /api/v1/organizations/:org_id/cohorts/:cohort_id/members/:target_id
func (h *Handlers) UnenrollHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cohortID := c.Param("cohort_id")
		userID := c.Param("target_id")

		if err := h.cohortRepo.RemoveMember(c.Request.Context(), cohortID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to unenroll user",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"removed": userID})
	}
}
