// Package admin implements the administrative HTTP handlers: tenant
// organizations, cohorts, user accounts, and admin/mentor profiles. Every
// route in this package sits behind the authorization gate; handlers assume
// the predicate check already passed and only enforce object-level rules.
package admin

import (
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/repositories"
)

// Handlers bundles the repositories behind the admin endpoints
type Handlers struct {
	cfg         *config.Config
	db          *sqlx.DB
	orgRepo     *repositories.OrganizationRepository
	userRepo    *repositories.UserRepository
	cohortRepo  *repositories.CohortRepository
	profileRepo *repositories.ProfileRepository
}

// NewHandlers creates the admin handler set
func NewHandlers(cfg *config.Config, db *sqlx.DB) *Handlers {
	return &Handlers{
		cfg:         cfg,
		db:          db,
		orgRepo:     repositories.NewOrganizationRepository(db),
		userRepo:    repositories.NewUserRepository(db),
		cohortRepo:  repositories.NewCohortRepository(db),
		profileRepo: repositories.NewProfileRepository(db),
	}
}
