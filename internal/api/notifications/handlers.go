// Package notifications implements the notification inbox endpoints. Rows are
// written by the fanout; these handlers only read them and flip the read bit.
// Mark-read goes through the authorization gate so a caller can touch another
// user's notification only when can_manage_notifications grants it.
package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/authz"
	"github.com/learnstack/lms-backend/internal/db/repositories"
)

// Handlers bundles the dependencies behind the notification endpoints
type Handlers struct {
	repo *repositories.NotificationRepository
	gate *authz.Gate
}

// NewHandlers creates the notification handler set
func NewHandlers(db *sqlx.DB, gate *authz.Gate) *Handlers {
	return &Handlers{
		repo: repositories.NewNotificationRepository(db),
		gate: gate,
	}
}

// ListHandler lists the caller's notifications, newest first
// GET /api/v1/me/notifications?unread_only=true&limit=20&offset=0
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		unreadOnly := c.Query("unread_only") == "true"

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if offset < 0 {
			offset = 0
		}

		items, err := h.repo.ListByRecipient(c.Request.Context(), c.GetString("user_id"), unreadOnly, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"notifications": items})
	}
}

// UnreadCountHandler returns the caller's unread notification count
// GET /api/v1/me/notifications/unread-count
func (h *Handlers) UnreadCountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := h.repo.CountUnread(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to count notifications",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"unread": count})
	}
}

// MarkReadHandler marks one notification as read. The recipient can always
// mark their own; anyone else must pass can_manage_notifications for the
// recipient.
// POST /api/v1/notifications/:notification_id/read
func (h *Handlers) MarkReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		n, err := h.repo.GetByID(ctx, c.Param("notification_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve notification",
			})
			return
		}
		if n == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}

		userID := c.GetString("user_id")
		if userID != n.RecipientID {
			allowed, err := h.gate.Authorize(ctx, authz.PredicateManageNotifications, authz.Request{
				UserID:       userID,
				TargetUserID: n.RecipientID,
			})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Authorization check failed",
				})
				return
			}
			if !allowed {
				c.JSON(http.StatusForbidden, gin.H{
					"error": "Insufficient permissions",
				})
				return
			}
		}

		if err := h.repo.MarkRead(ctx, n.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to mark notification read",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"marked_read": n.ID})
	}
}

// MarkAllReadHandler marks all of the caller's notifications as read
// POST /api/v1/me/notifications/read-all
func (h *Handlers) MarkAllReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := h.repo.MarkAllRead(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to mark notifications read",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"marked_read": count})
	}
}
