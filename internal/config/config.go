// Package config loads and validates the LMS backend configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the LMS_ prefix (e.g., LMS_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/learnstack/lms-backend/internal/audit"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN builds a PostgreSQL connection string from the individual fields
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// AuthConfig holds authentication configuration for the API layer
type AuthConfig struct {
	// TokenLifetime is how long issued session JWTs remain valid (default 1h)
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
	// Issuer is the iss claim written into session tokens
	Issuer string `mapstructure:"issuer"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration.
// When RedisAddr is set the limiter state is shared across replicas via Redis;
// otherwise each replica keeps an in-memory token bucket.
type RateLimitingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// NotificationsConfig holds settings for the notification fanout and its
// optional email side channel. The fanout always writes notification rows;
// email delivery additionally requires Email.Enabled and a configured SMTP host.
type NotificationsConfig struct {
	// Email toggles and configures the best-effort email side channel
	Email EmailConfig `mapstructure:"email"`
	// GoalReminderWindowDays is how many days before a goal's target date the
	// deadline reminder fires (default 3)
	GoalReminderWindowDays int `mapstructure:"goal_reminder_window_days"`
	// GoalReminderCheckIntervalHours determines how often the reminder job scans
	// open goals (default 6)
	GoalReminderCheckIntervalHours int `mapstructure:"goal_reminder_check_interval_hours"`
}

// EmailConfig holds outbound mail settings for notification emails
type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig holds outbound mail server configuration
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g. smtp.sendgrid.net)
	Host string `mapstructure:"host"`
	// Port is the SMTP server port (587 for STARTTLS, 465 for SMTPS, 25 for plain)
	Port int `mapstructure:"port"`
	// Username for SMTP authentication
	Username string `mapstructure:"username"`
	// Password for SMTP authentication
	Password string `mapstructure:"password"`
	// From is the sender address shown in notification emails
	From string `mapstructure:"from"`
	// UseTLS enables STARTTLS (port 587) or implicit TLS (port 465); false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
}

// AnalyticsConfig holds settings for the daily rollup scheduler
type AnalyticsConfig struct {
	// Enabled toggles the in-process cron scheduler. Disable it when rollups are
	// driven externally via the `rollup` subcommand.
	Enabled bool `mapstructure:"enabled"`
	// DailySchedule is the cron expression for the daily rollup pass
	// (default "15 0 * * *" — 00:15 UTC, aggregating the previous day)
	DailySchedule string `mapstructure:"daily_schedule"`
	// Force recomputes rollups that already exist for the target date
	Force bool `mapstructure:"force"`
}

// AuditConfig holds audit trail settings. Audit events cover authenticated
// mutations (role grants, membership changes, deletions) and are shipped to a
// local file, a webhook, or both.
type AuditConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	File    audit.FileConfig    `mapstructure:"file"`
	Webhook audit.WebhookConfig `mapstructure:"webhook"`
}

// BootstrapConfig holds first-run super admin provisioning settings
type BootstrapConfig struct {
	// AdminEmail is the email of the super admin created on first startup when
	// no active super admin exists. Empty disables bootstrap.
	AdminEmail string `mapstructure:"admin_email"`
	// AdminName is the display name for the bootstrap super admin
	AdminName string `mapstructure:"admin_name"`
	// AdminPasswordHash is a bcrypt hash (generate with cmd/hash)
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// Load reads configuration from the given path (or the search paths when empty),
// applies defaults, and overlays LMS_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/lms")
	}

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment variables: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file in the search paths is fine (pure env var
		// deployments). An explicitly given path that cannot be read, or a
		// malformed file, is fatal.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that would otherwise fail at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Notifications.GoalReminderWindowDays < 0 {
		return fmt.Errorf("notifications.goal_reminder_window_days must be >= 0")
	}
	if c.Notifications.Email.Enabled && c.Notifications.Email.SMTP.Host == "" {
		return fmt.Errorf("notifications.email.enabled requires notifications.email.smtp.host")
	}
	if c.Audit.Enabled && c.Audit.File.Path == "" && c.Audit.Webhook.URL == "" {
		return fmt.Errorf("audit.enabled requires audit.file.path or audit.webhook.url")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "lms")
	v.SetDefault("database.user", "lms")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Auth
	v.SetDefault("auth.token_lifetime", "1h")
	v.SetDefault("auth.issuer", "lms-backend")

	// Security
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 200)
	v.SetDefault("security.rate_limiting.burst", 50)
	v.SetDefault("security.rate_limiting.redis_db", 0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "lms-backend")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Notifications
	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.smtp.port", 587)
	v.SetDefault("notifications.email.smtp.use_tls", true)
	v.SetDefault("notifications.goal_reminder_window_days", 3)
	v.SetDefault("notifications.goal_reminder_check_interval_hours", 6)

	// Analytics
	v.SetDefault("analytics.enabled", true)
	v.SetDefault("analytics.daily_schedule", "15 0 * * *")
	v.SetDefault("analytics.force", false)

	// Audit
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.file.max_size_mb", 100)
	v.SetDefault("audit.file.max_backups", 5)
	v.SetDefault("audit.webhook.timeout", "10s")
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs
// during Unmarshal. viper.BindEnv only errors when called with zero keys; since
// every key here is a non-empty hardcoded string, any error indicates a
// programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Auth
		"auth.token_lifetime",
		"auth.issuer",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.redis_addr",
		"security.rate_limiting.redis_password",
		"security.rate_limiting.redis_db",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Notifications
		"notifications.email.enabled",
		"notifications.email.smtp.host",
		"notifications.email.smtp.port",
		"notifications.email.smtp.username",
		"notifications.email.smtp.password",
		"notifications.email.smtp.from",
		"notifications.email.smtp.use_tls",
		"notifications.goal_reminder_window_days",
		"notifications.goal_reminder_check_interval_hours",

		// Analytics
		"analytics.enabled",
		"analytics.daily_schedule",
		"analytics.force",

		// Audit
		"audit.enabled",
		"audit.file.path",
		"audit.file.max_size_mb",
		"audit.file.max_backups",
		"audit.webhook.url",
		"audit.webhook.timeout",

		// Bootstrap
		"bootstrap.admin_email",
		"bootstrap.admin_name",
		"bootstrap.admin_password_hash",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return nil
}
