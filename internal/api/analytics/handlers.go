// Package analytics implements the rollup read endpoints and the manual
// rollup trigger. Organization rollups sit behind the can_view_analytics
// predicate at the route level; per-person rollups are readable by the person
// themselves, their active mentor, or an admin who manages them.
package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/analytics"
	"github.com/learnstack/lms-backend/internal/authz"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/safego"
)

const dateFormat = "2006-01-02"

// Handlers bundles the dependencies behind the analytics endpoints
type Handlers struct {
	repo       *repositories.AnalyticsRepository
	aggregator *analytics.Aggregator
	gate       *authz.Gate
}

// NewHandlers creates the analytics handler set
func NewHandlers(db *sqlx.DB, gate *authz.Gate) *Handlers {
	repo := repositories.NewAnalyticsRepository(db)
	return &Handlers{
		repo:       repo,
		aggregator: analytics.NewAggregator(repo),
		gate:       gate,
	}
}

// parseDate reads the ?date= query parameter, defaulting to today (UTC). On a
// malformed value it writes the response and returns ok=false.
func parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), true
	}

	date, err := time.Parse(dateFormat, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return date, true
}

// GetOrgRollupHandler retrieves an organization's rollup for one day
// GET /api/v1/organizations/:org_id/analytics/daily?date=2026-08-30
func (h *Handlers) GetOrgRollupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDate(c)
		if !ok {
			return
		}

		rollup, err := h.repo.GetOrgRollup(c.Request.Context(), c.Param("org_id"), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve rollup",
			})
			return
		}
		if rollup == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No rollup for this date",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"rollup": rollup})
	}
}

// canReadSubject decides whether the caller may read a person-level rollup.
// Self always passes; otherwise the listed predicates are tried in order.
func (h *Handlers) canReadSubject(ctx context.Context, callerID, subjectID string, predicates ...authz.Predicate) (bool, error) {
	if callerID == subjectID {
		return true, nil
	}

	for _, p := range predicates {
		allowed, err := h.gate.Authorize(ctx, p, authz.Request{
			UserID:       callerID,
			TargetUserID: subjectID,
		})
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}

	return false, nil
}

// GetStudentRollupHandler retrieves a student's rollup for one day. Readable
// by the student, their active mentor, or an admin managing them.
// GET /api/v1/students/:target_id/analytics/daily?date=2026-08-30
func (h *Handlers) GetStudentRollupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		studentID := c.Param("target_id")

		allowed, err := h.canReadSubject(ctx, c.GetString("user_id"), studentID,
			authz.PredicateMentorOfStudent, authz.PredicateManageUsers)
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

		date, ok := parseDate(c)
		if !ok {
			return
		}

		rollup, err := h.repo.GetStudentRollup(ctx, studentID, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve rollup",
			})
			return
		}
		if rollup == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No rollup for this date",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"rollup": rollup})
	}
}

// GetMentorRollupHandler retrieves a mentor's rollup for one day. Readable by
// the mentor or an admin managing them.
// GET /api/v1/mentors/:target_id/analytics/daily?date=2026-08-30
func (h *Handlers) GetMentorRollupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		mentorID := c.Param("target_id")

		allowed, err := h.canReadSubject(ctx, c.GetString("user_id"), mentorID,
			authz.PredicateManageUsers)
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

		date, ok := parseDate(c)
		if !ok {
			return
		}

		rollup, err := h.repo.GetMentorRollup(ctx, mentorID, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve rollup",
			})
			return
		}
		if rollup == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No rollup for this date",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"rollup": rollup})
	}
}

// RunRollupsRequest triggers a rollup run for one day
type RunRollupsRequest struct {
	Date  string `json:"date"`
	Force bool   `json:"force"`
}

// RunRollupsHandler kicks off a full rollup run in the background and returns
// immediately. Force recomputes rollups that already exist for the day.
// POST /api/v1/admin/rollups/run
func (h *Handlers) RunRollupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRollupsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		date := time.Now().UTC().Truncate(24 * time.Hour)
		if req.Date != "" {
			parsed, err := time.Parse(dateFormat, req.Date)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid date, expected YYYY-MM-DD",
				})
				return
			}
			date = parsed
		}

		force := req.Force
		safego.Go("manual-rollup-run", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			if err := h.aggregator.RunDaily(ctx, date, force); err != nil {
				slog.Error("manual rollup run failed",
					"date", date.Format(dateFormat),
					"error", err)
			}
		})

		c.JSON(http.StatusAccepted, gin.H{
			"status": "rollup run started",
			"date":   date.Format(dateFormat),
			"force":  force,
		})
	}
}
