// profiles.go implements handlers for admin and mentor side-profiles. Admin
// profile provisioning is super-admin territory; mentor profiles are managed
// by organization admins.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// CreateAdminProfileRequest grants a user a platform administrative role
type CreateAdminProfileRequest struct {
	UserID string           `json:"user_id" binding:"required"`
	Role   models.AdminRole `json:"role" binding:"required"`
	// ManagedOrgIDs scopes non-super roles; ignored for super_admin
	ManagedOrgIDs []string `json:"managed_org_ids"`
}

// CreateAdminProfileHandler creates an admin profile for a user
// POST /api/v1/admin/profiles
func (h *Handlers) CreateAdminProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAdminProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid admin role: " + string(req.Role),
			})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		existing, err := h.profileRepo.GetAdminProfile(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing profile",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "User already has an admin profile",
			})
			return
		}

		profile := &models.AdminProfile{
			UserID:   req.UserID,
			Role:     req.Role,
			IsActive: true,
		}
		// Super admin reach is unscoped; a managed set would be dead weight
		if profile.Role != models.AdminRoleSuperAdmin {
			profile.ManagedOrgIDs = req.ManagedOrgIDs
		}

		if err := h.profileRepo.CreateAdminProfile(c.Request.Context(), profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create admin profile",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"profile": profile})
	}
}

// GetAdminProfileHandler retrieves a user's admin profile
// GET /api/v1/admin/profiles/:target_id
func (h *Handlers) GetAdminProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := h.profileRepo.GetAdminProfile(c.Request.Context(), c.Param("target_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve admin profile",
			})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Admin profile not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// SetAdminProfileActiveRequest toggles an admin profile without deleting it
type SetAdminProfileActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetAdminProfileActiveHandler suspends or reinstates an admin profile. A
// suspended profile grants no roles but keeps its managed-organization set.
// PATCH /api/v1/admin/profiles/:target_id
func (h *Handlers) SetAdminProfileActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetAdminProfileActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		profile, err := h.profileRepo.GetAdminProfile(c.Request.Context(), c.Param("target_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve admin profile",
			})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Admin profile not found",
			})
			return
		}

		if err := h.profileRepo.SetAdminProfileActive(c.Request.Context(), profile.ID, *req.IsActive); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update admin profile",
			})
			return
		}

		profile.IsActive = *req.IsActive
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// CreateMentorProfileRequest marks a user as available for mentoring
type CreateMentorProfileRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	MaxStudents int    `json:"max_students"`
	Bio         string `json:"bio"`
}

// CreateMentorProfileHandler creates a mentor profile
// POST /api/v1/admin/mentor-profiles
func (h *Handlers) CreateMentorProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMentorProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		existing, err := h.profileRepo.GetMentorProfile(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing profile",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "User already has a mentor profile",
			})
			return
		}

		maxStudents := req.MaxStudents
		if maxStudents <= 0 {
			maxStudents = 5
		}

		profile := &models.MentorProfile{
			UserID:      req.UserID,
			MaxStudents: maxStudents,
			Status:      models.MentorProfileActive,
			Bio:         req.Bio,
		}
		if err := h.profileRepo.CreateMentorProfile(c.Request.Context(), profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create mentor profile",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"profile": profile})
	}
}
