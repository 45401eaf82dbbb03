// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them per run mode.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gochang/agri-notify/internal/timeutil"
)

// ValidationMode selects which settings must be present.
type ValidationMode int

const (
	// ServerMode validates everything the long-running service needs.
	ServerMode ValidationMode = iota
	// ToolMode validates only local storage settings (import, sample, notify CLIs).
	ToolMode
)

// State backends.
const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
)

// LINE delivery modes.
const (
	LineDeliveryBroadcast = "broadcast"
	LineDeliveryFollowers = "followers"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	Timezone        string

	// Data
	DataDir      string
	SeedSamples  bool   // seed the built-in catalog when the project table is empty
	StateBackend string // "sqlite" or "redis"
	RedisURL     string

	Notify NotifyConfig
	Line   LineConfig
	FCM    FCMConfig

	// Admin API (import, manual runs). Empty hash disables the admin routes.
	AdminUsername     string
	AdminPasswordHash string

	// Metrics Authentication
	MetricsUsername string
	MetricsPassword string // empty = no auth

	CORSAllowedOrigins []string

	// Sentry (Better Stack errors)
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64

	// Better Stack logs
	BetterStackToken    string
	BetterStackEndpoint string
	BetterStackLevel    string // minimum level shipped remotely; empty follows LOG_LEVEL

	R2 R2Config
}

// NotifyConfig controls the periodic reminder evaluation.
type NotifyConfig struct {
	Interval     time.Duration
	DeadlineDays int
	RequireOptIn bool // only remind about projects the user subscribed to
	// FilterInterests limits reminders to the onboarding interest categories.
	FilterInterests bool
	DryRun          bool // log reminders instead of sending them
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelToken  string
	ChannelSecret string
	Delivery      string
}

// FCMConfig holds Firebase Cloud Messaging settings.
type FCMConfig struct {
	CredentialsFile string
	ProjectID       string
	TopicPrefix     string
}

// R2Config holds Cloudflare R2 settings for import archives and the
// cross-instance evaluation lock.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	ArchivePrefix   string
	LockKey         string
	LockTTL         time.Duration

	// SnapshotKey holds the compressed database backup; restored on start
	// when the data volume is empty.
	SnapshotKey      string
	SnapshotInterval time.Duration
}

// Load reads and validates the full server configuration.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from the environment (after loading .env
// if present) and validates it for mode.
func LoadForMode(mode ValidationMode) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "10000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", GracefulShutdown),
		Timezone:        getEnv("TIMEZONE", "Asia/Seoul"),

		DataDir:      getEnv("DATA_DIR", getDefaultDataDir()),
		SeedSamples:  getBoolEnv("SEED_SAMPLES", true),
		StateBackend: strings.ToLower(getEnv("STATE_BACKEND", StateBackendSQLite)),
		RedisURL:     getEnv("REDIS_URL", ""),

		Notify: NotifyConfig{
			Interval:        getDurationEnv("NOTIFY_INTERVAL", 15*time.Minute),
			DeadlineDays:    getIntEnv("NOTIFY_DEADLINE_DAYS", 3),
			RequireOptIn:    getBoolEnv("NOTIFY_REQUIRE_OPT_IN", false),
			FilterInterests: getBoolEnv("NOTIFY_FILTER_INTERESTS", false),
			DryRun:          getBoolEnv("NOTIFY_DRY_RUN", false),
		},
		Line: LineConfig{
			ChannelToken:  getEnv("LINE_CHANNEL_TOKEN", ""),
			ChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),
			Delivery:      strings.ToLower(getEnv("LINE_DELIVERY", LineDeliveryBroadcast)),
		},
		FCM: FCMConfig{
			CredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
			TopicPrefix:     getEnv("FCM_TOPIC_PREFIX", "gochang"),
		},

		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		SentryToken:       getEnv("SENTRY_TOKEN", ""),
		SentryHost:        getEnv("SENTRY_HOST", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
		SentryRelease:     getEnv("SENTRY_RELEASE", ""),
		SentrySampleRate:  getFloatEnv("SENTRY_SAMPLE_RATE", 1.0),

		BetterStackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterStackEndpoint: getEnv("BETTERSTACK_ENDPOINT", ""),
		BetterStackLevel:    getEnv("BETTERSTACK_LEVEL", ""),

		R2: R2Config{
			Enabled:         getBoolEnv("R2_ENABLED", false),
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			ArchivePrefix:   getEnv("R2_ARCHIVE_PREFIX", "imports/"),
			LockKey:         getEnv("R2_LOCK_KEY", "locks/notify.lock"),
			LockTTL:         getDurationEnv("R2_LOCK_TTL", 10*time.Minute),

			SnapshotKey:      getEnv("R2_SNAPSHOT_KEY", "snapshots/subsidy.db.zst"),
			SnapshotInterval: getDurationEnv("R2_SNAPSHOT_INTERVAL", 6*time.Hour),
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the full server configuration.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks the settings required by mode and joins all problems.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	switch c.StateBackend {
	case StateBackendSQLite:
	case StateBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STATE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be sqlite or redis, got %q", c.StateBackend))
	}
	if c.Notify.DeadlineDays < 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_DEADLINE_DAYS cannot be negative, got %d", c.Notify.DeadlineDays))
	}

	if mode == ToolMode {
		return errors.Join(errs...)
	}

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Notify.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("NOTIFY_INTERVAL must be at least 1m, got %v", c.Notify.Interval))
	}
	if (c.Line.ChannelToken == "") != (c.Line.ChannelSecret == "") {
		errs = append(errs, errors.New("LINE_CHANNEL_TOKEN and LINE_CHANNEL_SECRET must be set together"))
	}
	if c.Line.Delivery != LineDeliveryBroadcast && c.Line.Delivery != LineDeliveryFollowers {
		errs = append(errs, fmt.Errorf("LINE_DELIVERY must be broadcast or followers, got %q", c.Line.Delivery))
	}
	if c.FCM.CredentialsFile != "" && c.FCM.ProjectID == "" {
		errs = append(errs, errors.New("FCM_PROJECT_ID is required when FCM_CREDENTIALS_FILE is set"))
	}
	if c.AdminPasswordHash != "" && !strings.HasPrefix(c.AdminPasswordHash, "$argon2id$") {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH must be an argon2id hash (see cmd/hashpassword)"))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, errors.New("SENTRY_HOST is required when SENTRY_TOKEN is set"))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("SENTRY_SAMPLE_RATE must be within [0,1], got %v", c.SentrySampleRate))
	}
	if c.R2.Enabled {
		if c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.BucketName == "" {
			errs = append(errs, errors.New("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are required when R2_ENABLED=true"))
		}
		if c.R2.LockTTL <= 0 {
			errs = append(errs, fmt.Errorf("R2_LOCK_TTL must be positive, got %v", c.R2.LockTTL))
		}
		if c.R2.SnapshotInterval < time.Minute {
			errs = append(errs, fmt.Errorf("R2_SNAPSHOT_INTERVAL must be at least 1m, got %v", c.R2.SnapshotInterval))
		}
	}

	return errors.Join(errs...)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool spellings.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "subsidy.db")
}

// Location returns the configured timezone, falling back to Asia/Seoul.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return timeutil.Seoul()
}

// HasLine reports whether LINE credentials are configured.
func (c *Config) HasLine() bool {
	return c.Line.ChannelToken != "" && c.Line.ChannelSecret != ""
}

// HasFCM reports whether Firebase Cloud Messaging is configured.
func (c *Config) HasFCM() bool {
	return c.FCM.ProjectID != ""
}

// HasAdmin reports whether the admin API is enabled.
func (c *Config) HasAdmin() bool {
	return c.AdminUsername != "" && c.AdminPasswordHash != ""
}
