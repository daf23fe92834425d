// @title           LMS Backend API
// @version         1.0.0
// @description     Multi-tenant learning management backend: organizations, cohorts, mentorship, notifications, and daily analytics rollups.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
// @description                 "Session JWT: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health, readiness, and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated side-channel port (default: 9090) separate from the main API server. This keeps the scrape path off the public ingress and avoids rate-limiting middleware. Configure the port with LMS_TELEMETRY_METRICS_PROMETHEUS_PORT. The endpoint path is always GET /metrics.

// Package main is the entry point for the LMS backend server binary. It
// dispatches four subcommands — serve, migrate, rollup, and version — via a
// simple switch on os.Args so the binary's full CLI surface is readable in one
// place without requiring a cobra dependency. The serve command runs
// auto-migration on startup so freshly deployed containers never need a
// separate migration step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnstack/lms-backend/internal/analytics"
	"github.com/learnstack/lms-backend/internal/api"
	"github.com/learnstack/lms-backend/internal/auth"
	"github.com/learnstack/lms-backend/internal/config"
	"github.com/learnstack/lms-backend/internal/db"
	"github.com/learnstack/lms-backend/internal/db/models"
	"github.com/learnstack/lms-backend/internal/db/repositories"
	"github.com/learnstack/lms-backend/internal/telemetry"
)

const (
	version = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	// Parse command from args
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Execute command
	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "rollup":
		return runRollup(cfg, os.Args[2:])
	case "version":
		fmt.Printf("LMS Backend v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, rollup, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logger as early as possible so all subsequent log output
	// uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Validate JWT secret configuration (fails in production if not set)
	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}
	log.Println("JWT secret validated successfully")

	// Connect to database
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	log.Println("Connected to database successfully")

	// Begin exporting DB pool statistics to Prometheus.
	telemetry.StartDBStatsCollector(database.DB)

	// Run migrations automatically on startup
	log.Println("Running database migrations...")
	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed successfully")

	// Get migration version
	schemaVersion, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Printf("Warning: failed to get migration version: %v", err)
	} else {
		log.Printf("Database schema version: %d (dirty: %v)", schemaVersion, dirty)
	}

	// Provision the first super admin on a fresh deployment
	if err := bootstrapSuperAdmin(cfg, database); err != nil {
		log.Printf("Warning: super admin bootstrap failed: %v", err)
	}

	// Start Prometheus metrics endpoint on a dedicated port so it is not reachable
	// through the public API ingress path.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	// Create router
	router, bgServices := api.NewRouter(cfg, database)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		log.Printf("Base URL: %s", cfg.Server.BaseURL)
		log.Println("Server is ready to accept connections")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop background jobs and rate limiter goroutines
	bgServices.Shutdown()

	log.Println("Server stopped gracefully")
	return nil
}

// bootstrapSuperAdmin creates the first super admin account when the bootstrap
// email is configured and no active super admin exists yet. The password hash
// comes from config (generate with cmd/hash), so no plaintext secret touches
// the environment.
func bootstrapSuperAdmin(cfg *config.Config, database *sqlx.DB) error {
	if cfg.Bootstrap.AdminEmail == "" {
		return nil
	}

	ctx := context.Background()
	profileRepo := repositories.NewProfileRepository(database)

	exists, err := profileRepo.HasActiveSuperAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing super admin: %w", err)
	}
	if exists {
		return nil
	}

	userRepo := repositories.NewUserRepository(database)
	user, err := userRepo.GetByEmail(ctx, cfg.Bootstrap.AdminEmail)
	if err != nil {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	if user == nil {
		user = &models.User{
			Email: cfg.Bootstrap.AdminEmail,
			Name:  cfg.Bootstrap.AdminName,
		}
		if cfg.Bootstrap.AdminPasswordHash != "" {
			hash := cfg.Bootstrap.AdminPasswordHash
			user.PasswordHash = &hash
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create bootstrap admin user: %w", err)
		}
	}

	profile := &models.AdminProfile{
		UserID:   user.ID,
		Role:     models.AdminRoleSuperAdmin,
		IsActive: true,
	}
	if err := profileRepo.CreateAdminProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to create bootstrap super admin profile: %w", err)
	}

	log.Printf("Bootstrapped super admin: %s", cfg.Bootstrap.AdminEmail)
	return nil
}

// runRollup executes one rollup pass and exits. Intended for deployments that
// drive rollups from an external scheduler instead of the in-process cron.
// Usage: rollup [YYYY-MM-DD] [--force]
func runRollup(cfg *config.Config, args []string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	date := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	force := cfg.Analytics.Force
	for _, arg := range args {
		if arg == "--force" {
			force = true
			continue
		}
		parsed, err := time.Parse("2006-01-02", arg)
		if err != nil {
			return fmt.Errorf("invalid rollup date %q, expected YYYY-MM-DD", arg)
		}
		date = parsed
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	aggregator := analytics.NewAggregator(repositories.NewAnalyticsRepository(database))

	log.Printf("Running rollup pass for %s (force: %v)", date.Format("2006-01-02"), force)
	if err := aggregator.RunDaily(context.Background(), date, force); err != nil {
		return fmt.Errorf("rollup pass failed: %w", err)
	}

	log.Println("Rollup pass completed successfully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	// Connect to database
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	log.Printf("Running migrations: %s", direction)

	// Run migrations
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Get current version
	schemaVersion, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	log.Printf("Migration completed successfully. Current version: %d (dirty: %v)", schemaVersion, dirty)
	return nil
}
