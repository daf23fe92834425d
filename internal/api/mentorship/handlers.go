// Package mentorship implements the HTTP handlers for mentorship assignments
// and their nested records. Writes that emit domain events run inside a
// transaction shared with the notification fanout, so an assignment write and
// its notifications commit or roll back together.
package mentorship

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
)

// Handlers bundles the dependencies behind the mentorship endpoints
type Handlers struct {
	cfg         *config.Config
	db          *sqlx.DB
	bus         *events.Bus
	repo        *repositories.MentorshipRepository
	cohortRepo  *repositories.CohortRepository
	profileRepo *repositories.ProfileRepository
}

// NewHandlers creates the mentorship handler set
func NewHandlers(cfg *config.Config, db *sqlx.DB, bus *events.Bus) *Handlers {
	return &Handlers{
		cfg:         cfg,
		db:          db,
		bus:         bus,
		repo:        repositories.NewMentorshipRepository(db),
		cohortRepo:  repositories.NewCohortRepository(db),
		profileRepo: repositories.NewProfileRepository(db),
	}
}

// inTx runs fn inside a transaction. Event subscribers registered on the bus
// run against the same tx, so a fanout failure rolls the entity write back.
func (h *Handlers) inTx(c *gin.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := h.db.BeginTxx(c.Request.Context(), nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// loadAssignmentForParty fetches the :assignment_id assignment and verifies the
// caller is one of its two parties. On failure it writes the response and
// returns ok=false.
func (h *Handlers) loadAssignmentForParty(c *gin.Context) (*models.MentorshipAssignment, bool) {
	assignment, err := h.repo.GetAssignment(c.Request.Context(), c.Param("assignment_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve assignment",
		})
		return nil, false
	}
	if assignment == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Assignment not found",
		})
		return nil, false
	}

	userID := c.GetString("user_id")
	if userID != assignment.MentorID && userID != assignment.StudentID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not a party to this assignment",
		})
		return nil, false
	}

	return assignment, true
}
