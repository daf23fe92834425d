// organizations.go implements handlers for organization CRUD and membership management.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnstack/lms-backend/internal/db/models"
)

// @Summary      List organizations
// @Description  Get a paginated list of all organizations. Platform admins only.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "organizations: []models.Organization"
// @Router       /api/v1/organizations [get]
// ListOrganizationsHandler lists all organizations with pagination
// GET /api/v1/organizations?page=1&per_page=20
func (h *Handlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		orgs, err := h.orgRepo.List(c.Request.Context(), perPage, (page-1)*perPage)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organizations",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organizations": orgs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}

// @Summary      Get organization
// @Description  Retrieve an organization and its member list.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "organization, members, member_count"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Router       /api/v1/organizations/{org_id} [get]
// GetOrganizationHandler retrieves a specific organization by ID
// GET /api/v1/organizations/:org_id
func (h *Handlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

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

		members, err := h.orgRepo.ListMembers(c.Request.Context(), orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organization members",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organization": org,
			"members":      members,
			"member_count": len(members),
		})
	}
}

// CreateOrganizationRequest is the payload for provisioning a new tenant
type CreateOrganizationRequest struct {
	Name           string `json:"name" binding:"required"`
	DisplayName    string `json:"display_name" binding:"required"`
	BillingTier    string `json:"billing_tier"`
	MaxUsers       int    `json:"max_users"`
	StorageQuotaMB int    `json:"storage_quota_mb"`
}

// @Summary      Create organization
// @Description  Provision a new tenant organization. Super admin only.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "organization"
// @Failure      409  {object}  map[string]interface{}  "Organization with this name already exists"
// @Router       /api/v1/organizations [post]
// CreateOrganizationHandler provisions a new organization
// POST /api/v1/organizations
func (h *Handlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		existing, err := h.orgRepo.GetByName(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check existing organization",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Organization with this name already exists",
			})
			return
		}

		org := &models.Organization{
			Name:           req.Name,
			DisplayName:    req.DisplayName,
			BillingTier:    req.BillingTier,
			MaxUsers:       req.MaxUsers,
			StorageQuotaMB: req.StorageQuotaMB,
		}
		if org.BillingTier == "" {
			org.BillingTier = "standard"
		}

		if err := h.orgRepo.Create(c.Request.Context(), org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create organization",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"organization": org})
	}
}

// UpdateOrganizationRequest carries the mutable organization settings
type UpdateOrganizationRequest struct {
	DisplayName    *string `json:"display_name"`
	BillingTier    *string `json:"billing_tier"`
	MaxUsers       *int    `json:"max_users"`
	StorageQuotaMB *int    `json:"storage_quota_mb"`
}

// UpdateOrganizationHandler updates an organization's settings. Partial: only
// fields present in the payload change.
// PUT /api/v1/organizations/:org_id/settings
func (h *Handlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
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

		if req.DisplayName != nil {
			org.DisplayName = *req.DisplayName
		}
		if req.BillingTier != nil {
			org.BillingTier = *req.BillingTier
		}
		if req.MaxUsers != nil {
			org.MaxUsers = *req.MaxUsers
		}
		if req.StorageQuotaMB != nil {
			org.StorageQuotaMB = *req.StorageQuotaMB
		}

		if err := h.orgRepo.Update(c.Request.Context(), org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update organization",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

// DeleteOrganizationHandler removes an organization and all dependent rows.
// Super admin only.
// DELETE /api/v1/organizations/:org_id
func (h *Handlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

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

		if err := h.orgRepo.Delete(c.Request.Context(), orgID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete organization",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": orgID})
	}
}

// AddMemberRequest is the payload for adding a user to an organization
type AddMemberRequest struct {
	UserID string                `json:"user_id" binding:"required"`
	Role   models.MembershipRole `json:"role" binding:"required"`
}

// AddMemberHandler adds a user to an organization. The MaxUsers cap is a soft
// limit: the insert proceeds but the response flags the overage.
// POST /api/v1/organizations/:org_id/members
func (h *Handlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid membership role: " + string(req.Role),
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

		if err := h.orgRepo.AddMember(c.Request.Context(), orgID, req.UserID, req.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to add member",
			})
			return
		}

		resp := gin.H{
			"organization_id": orgID,
			"user_id":         req.UserID,
			"role":            req.Role,
		}
		if org.MaxUsers > 0 {
			count, err := h.orgRepo.CountMembers(c.Request.Context(), orgID)
			if err == nil && count > org.MaxUsers {
				resp["over_user_limit"] = true
				resp["max_users"] = org.MaxUsers
				resp["member_count"] = count
			}
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// UpdateMemberRequest changes a member's organization role
type UpdateMemberRequest struct {
	Role models.MembershipRole `json:"role" binding:"required"`
}

// UpdateMemberHandler changes a member's role within the organization
// PUT /api/v1/organizations/:org_id/members/:target_id
func (h *Handlers) UpdateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")
		userID := c.Param("target_id")

		var req UpdateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid membership role: " + string(req.Role),
			})
			return
		}

		member, err := h.orgRepo.GetMember(c.Request.Context(), orgID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve membership",
			})
			return
		}
		if member == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Membership not found",
			})
			return
		}

		if err := h.orgRepo.UpdateMemberRole(c.Request.Context(), orgID, userID, req.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update member role",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organization_id": orgID,
			"user_id":         userID,
			"role":            req.Role,
		})
	}
}

// RemoveMemberHandler removes a user from an organization
// DELETE /api/v1/organizations/:org_id/members/:target_id
func (h *Handlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")
		userID := c.Param("target_id")

		if err := h.orgRepo.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to remove member",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"removed": userID})
	}
}
