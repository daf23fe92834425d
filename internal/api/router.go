// Package api wires together all HTTP routes for the LMS backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are public so load balancers and probes
//     can reach them without credentials.
//   - /api/v1/auth/login is public but sits behind the stricter auth rate
//     limiter to slow down credential stuffing.
//   - Everything else requires a valid session token. Role-gated routes add a
//     RequirePredicate middleware naming the authorization predicate; routes
//     whose check depends on the fetched object (assignment parties,
//     notification recipients) enforce it in the handler instead.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/learnstack/lms-backend/internal/analytics"
	"github.com/learnstack/lms-backend/internal/api/admin"
	analyticsapi "github.com/learnstack/lms-backend/internal/api/analytics"
	"github.com/learnstack/lms-backend/internal/api/authn"
	"github.com/learnstack/lms-backend/internal/api/mentorship"
	"github.com/learnstack/lms-backend/internal/api/notifications"
	"github.com/learnstack/lms-backend/internal/audit"
	"github.com/learnstack/lms-backend/internal/authz"
	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/events"
	"github.com/learnstack/lms-backend/internal/jobs"
	"github.com/learnstack/lms-backend/internal/middleware"
	"github.com/learnstack/lms-backend/internal/notify"
	"github.com/learnstack/lms-backend/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	goalReminderJob *jobs.GoalReminderJob
	rollupScheduler *jobs.RollupScheduler
	rateLimiters    []*middleware.RateLimiter
	redisLimiter    *middleware.RedisRateLimiter
	auditShipper    *audit.MultiShipper
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.goalReminderJob != nil {
		bg.goalReminderJob.Stop()
	}
	if bg.rollupScheduler != nil {
		bg.rollupScheduler.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.redisLimiter != nil {
		bg.redisLimiter.Close()
	}
	if bg.auditShipper != nil {
		bg.auditShipper.Close()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Repositories shared by the gate and middleware
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	cohortRepo := repositories.NewCohortRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	mentorshipRepo := repositories.NewMentorshipRepository(db)

	// Authorization gate
	resolver := authz.NewResolver(profileRepo, orgRepo, cohortRepo)
	gate := authz.NewGate(resolver, orgRepo, mentorshipRepo)

	// Event bus and notification fanout. Subscribers run inside the
	// publisher's transaction, so entity writes and their notifications
	// commit together.
	bus := events.NewBus()
	var emailer notify.Emailer
	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.SMTP.Host != "" {
		emailer = notify.NewSMTPEmailer(&cfg.Notifications.Email.SMTP)
		slog.Info("notification email channel enabled", "smtp_host", cfg.Notifications.Email.SMTP.Host)
	}
	fanout := notify.NewFanout(&cfg.Notifications, db, emailer)
	fanout.Register(bus)

	// Goal deadline reminder job
	goalReminderJob := jobs.NewGoalReminderJob(db, bus, &cfg.Notifications)
	safego.Go("goal-reminder-job", func() {
		goalReminderJob.Start(context.Background())
	})

	// Daily rollup scheduler
	var rollupScheduler *jobs.RollupScheduler
	if cfg.Analytics.Enabled {
		aggregator := analytics.NewAggregator(repositories.NewAnalyticsRepository(db))
		rollupScheduler = jobs.NewRollupScheduler(aggregator, &cfg.Analytics)
		if err := rollupScheduler.Start(context.Background()); err != nil {
			slog.Error("failed to start rollup scheduler", "error", err)
			rollupScheduler = nil
		}
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Rate limiters. With a Redis address configured the general limit is
	// enforced across replicas; the auth and bulk limiters stay in-memory
	// since their windows are short enough that per-replica enforcement is
	// acceptable.
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	bulkRateLimiter := middleware.NewRateLimiter(middleware.BulkRateLimitConfig())

	var redisLimiter *middleware.RedisRateLimiter
	generalLimit := middleware.RateLimitMiddleware(generalRateLimiter)
	if cfg.Security.RateLimiting.RedisAddr != "" {
		redisLimiter = middleware.NewRedisRateLimiter(cfg.Security.RateLimiting)
		generalLimit = middleware.RedisRateLimitMiddleware(redisLimiter)
		slog.Info("rate limiting backed by redis", "addr", cfg.Security.RateLimiting.RedisAddr)
	}

	// Audit trail for authenticated mutations
	var auditShipper *audit.MultiShipper
	if cfg.Audit.Enabled {
		shipper, err := audit.NewMultiShipper(&cfg.Audit.File, &cfg.Audit.Webhook)
		if err != nil {
			slog.Error("failed to initialize audit shipper, audit trail disabled", "error", err)
		} else {
			auditShipper = shipper
			slog.Info("audit trail enabled")
		}
	}

	// Initialize handlers
	authnHandlers := authn.NewHandlers(cfg, db)
	adminHandlers := admin.NewHandlers(cfg, db)
	mentorshipHandlers := mentorship.NewHandlers(cfg, db, bus)
	notificationHandlers := notifications.NewHandlers(db, gate)
	analyticsHandlers := analyticsapi.NewHandlers(db, gate)

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/login", authnHandlers.LoginHandler())
		}

		// Authenticated-only endpoints
		authenticated := apiV1.Group("")
		authenticated.Use(middleware.AuthMiddleware(userRepo))
		authenticated.Use(generalLimit)
		if auditShipper != nil {
			authenticated.Use(middleware.AuditMiddleware(auditShipper))
		}
		{
			authenticated.GET("/auth/me", authnHandlers.MeHandler())
			authenticated.POST("/auth/refresh", authnHandlers.RefreshHandler())

			// Self-service endpoints (any authenticated user)
			authenticated.GET("/me/assignments", mentorshipHandlers.ListMyAssignmentsHandler())
			authenticated.GET("/me/notifications", notificationHandlers.ListHandler())
			authenticated.GET("/me/notifications/unread-count", notificationHandlers.UnreadCountHandler())
			authenticated.POST("/me/notifications/read-all", notificationHandlers.MarkAllReadHandler())

			// Recipient check happens in the handler: callers mark their own
			// notifications, managers pass can_manage_notifications
			authenticated.POST("/notifications/:notification_id/read", notificationHandlers.MarkReadHandler())

			// User account management
			usersGroup := authenticated.Group("/users")
			usersGroup.Use(middleware.RequirePredicate(gate, authz.PredicateManageUsers))
			{
				usersGroup.POST("", adminHandlers.CreateUserHandler())
				usersGroup.GET("", adminHandlers.ListUsersHandler())
				usersGroup.GET("/:target_id", adminHandlers.GetUserHandler())
				usersGroup.DELETE("/:target_id", adminHandlers.DeleteUserHandler())
			}

			// Organizations
			orgsGroup := authenticated.Group("/organizations")
			{
				orgsGroup.GET("",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.ListOrganizationsHandler())
				orgsGroup.POST("",
					middleware.RequireGlobalConfig(gate),
					adminHandlers.CreateOrganizationHandler())
				orgsGroup.GET("/:org_id",
					middleware.RequirePredicate(gate, authz.PredicateManageOrganization),
					adminHandlers.GetOrganizationHandler())
				orgsGroup.PUT("/:org_id/settings",
					middleware.RequirePredicate(gate, authz.PredicateManageSystemConfig),
					adminHandlers.UpdateOrganizationHandler())
				orgsGroup.DELETE("/:org_id",
					middleware.RequireGlobalConfig(gate),
					adminHandlers.DeleteOrganizationHandler())

				// Membership management
				orgsGroup.POST("/:org_id/members",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.AddMemberHandler())
				orgsGroup.PUT("/:org_id/members/:target_id",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.UpdateMemberHandler())
				orgsGroup.DELETE("/:org_id/members/:target_id",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.RemoveMemberHandler())

				// Cohorts
				orgsGroup.POST("/:org_id/cohorts",
					middleware.RequirePredicate(gate, authz.PredicateManageContent),
					adminHandlers.CreateCohortHandler())
				orgsGroup.GET("/:org_id/cohorts",
					middleware.RequirePredicate(gate, authz.PredicateManageContent),
					adminHandlers.ListCohortsHandler())
				orgsGroup.GET("/:org_id/cohorts/:cohort_id",
					middleware.RequirePredicate(gate, authz.PredicateManageContent),
					adminHandlers.GetCohortHandler())
				orgsGroup.POST("/:org_id/cohorts/:cohort_id/members",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.EnrollHandler())
				orgsGroup.DELETE("/:org_id/cohorts/:cohort_id/members/:target_id",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.UnenrollHandler())

				// Mentorship pairing
				orgsGroup.POST("/:org_id/cohorts/:cohort_id/assignments",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					mentorshipHandlers.CreateAssignmentHandler())

				// Organization analytics
				orgsGroup.GET("/:org_id/analytics/daily",
					middleware.RequirePredicate(gate, authz.PredicateViewAnalytics),
					analyticsHandlers.GetOrgRollupHandler())
			}

			// Assignment-scoped routes; party membership is checked in the
			// handlers after the assignment is loaded
			assignmentsGroup := authenticated.Group("/assignments/:assignment_id")
			{
				assignmentsGroup.GET("", mentorshipHandlers.GetAssignmentHandler())
				assignmentsGroup.PATCH("/status", mentorshipHandlers.UpdateAssignmentStatusHandler())
				assignmentsGroup.POST("/sessions", mentorshipHandlers.ScheduleSessionHandler())
				assignmentsGroup.GET("/sessions", mentorshipHandlers.ListSessionsHandler())
				assignmentsGroup.POST("/messages", mentorshipHandlers.SendMessageHandler())
				assignmentsGroup.GET("/messages", mentorshipHandlers.ListMessagesHandler())
				assignmentsGroup.POST("/feedback", mentorshipHandlers.GiveFeedbackHandler())
				assignmentsGroup.GET("/feedback", mentorshipHandlers.ListFeedbackHandler())
				assignmentsGroup.POST("/goals", mentorshipHandlers.CreateGoalHandler())
				assignmentsGroup.POST("/progress", mentorshipHandlers.RecordProgressHandler())
				assignmentsGroup.GET("/progress", mentorshipHandlers.ListProgressHandler())
			}

			authenticated.PATCH("/goals/:goal_id", mentorshipHandlers.UpdateGoalHandler())

			// Per-person analytics; self/mentor/admin checks happen in the handlers
			authenticated.GET("/students/:target_id/analytics/daily", analyticsHandlers.GetStudentRollupHandler())
			authenticated.GET("/mentors/:target_id/analytics/daily", analyticsHandlers.GetMentorRollupHandler())

			// Platform administration
			adminGroup := authenticated.Group("/admin")
			{
				adminGroup.POST("/profiles",
					middleware.RequireGlobalConfig(gate),
					adminHandlers.CreateAdminProfileHandler())
				adminGroup.GET("/profiles/:target_id",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.GetAdminProfileHandler())
				adminGroup.PATCH("/profiles/:target_id",
					middleware.RequireGlobalConfig(gate),
					adminHandlers.SetAdminProfileActiveHandler())

				adminGroup.POST("/mentor-profiles",
					middleware.RequirePredicate(gate, authz.PredicateManageUsers),
					adminHandlers.CreateMentorProfileHandler())

				adminGroup.POST("/rollups/run",
					middleware.RateLimitMiddleware(bulkRateLimiter),
					middleware.RequireGlobalConfig(gate),
					analyticsHandlers.RunRollupsHandler())
			}
		}
	}

	bg := &BackgroundServices{
		goalReminderJob: goalReminderJob,
		rollupScheduler: rollupScheduler,
		rateLimiters:    []*middleware.RateLimiter{authRateLimiter, generalRateLimiter, bulkRateLimiter},
		redisLimiter:    redisLimiter,
		auditShipper:    auditShipper,
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service
func readinessHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", requestID),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
