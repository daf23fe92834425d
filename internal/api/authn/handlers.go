// Package authn implements the session endpoints: password login, token
// refresh, and the current-user echo. Sessions are stateless JWTs; logout is
// client-side token disposal.
package authn

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/auth"
	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
)

// Handlers holds dependencies for the session endpoints
type Handlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
}

// NewHandlers creates session handlers backed by the given database
func NewHandlers(cfg *config.Config, db *sqlx.DB) *Handlers {
	return &Handlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
	}
}

// LoginRequest is the password login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Password login
// @Description  Exchanges email and password for a session JWT.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in, user"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a user by email and password.
// POST /api/v1/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up user",
			})
			return
		}

		// Identical response for unknown email and wrong password so the
		// endpoint cannot be used to enumerate accounts
		if user == nil || user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		h.issueToken(c, user)
	}
}

// @Summary      Refresh session token
// @Description  Issues a fresh JWT for the authenticated user.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in, user"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler re-issues a token for an already authenticated session.
// POST /api/v1/auth/refresh
func (h *Handlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		h.issueToken(c, user)
	}
}

// @Summary      Current user
// @Description  Returns the user behind the presented token.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the authenticated user.
// GET /api/v1/auth/me
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func (h *Handlers) issueToken(c *gin.Context, user *models.User) {
	lifetime := h.cfg.Auth.TokenLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, lifetime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(lifetime.Seconds()),
		"user":       user,
	})
}

// currentUser reads the user loaded by the auth middleware
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
