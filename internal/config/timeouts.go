// Timeout and interval constants shared by the server and the CLIs.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead covers request headers and bodies, including workbook uploads.
	HTTPRead = 30 * time.Second

	// HTTPWrite must exceed EvaluationRun so a manual run can answer synchronously.
	HTTPWrite = 6 * time.Minute

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second

	// ReadinessCheck bounds the /readyz dependency probes.
	ReadinessCheck = 5 * time.Second

	// WebhookProcessing bounds async handling of one LINE webhook batch.
	WebhookProcessing = 30 * time.Second
)

// Reminder evaluation
const (
	// EvaluationRun bounds one pass over the project catalog.
	EvaluationRun = 5 * time.Minute

	// DispatchAttempt bounds one delivery attempt to a single sink.
	DispatchAttempt = 15 * time.Second

	// DispatchMaxRetries is the retry budget for transient delivery errors.
	DispatchMaxRetries = 3

	// DispatchRetryInitial is the first backoff delay; it doubles per attempt.
	DispatchRetryInitial = time.Second
)

// Import limits
const (
	// ImportMaxUploadBytes caps workbook uploads.
	ImportMaxUploadBytes = 10 << 20

	// ImportTimeout bounds parsing plus the catalog swap.
	ImportTimeout = 2 * time.Minute
)

// Database timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background jobs
const (
	// MetricsUpdateInterval is how often catalog gauges are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// R2Request bounds a single object storage call.
	R2Request = 30 * time.Second
)

// GracefulShutdown is the default timeout for graceful server shutdown.
const GracefulShutdown = 30 * time.Second

// Webhook rate limits
const (
	// RateLimiterCleanupInterval is how often idle per-user buckets are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// UserRateBurst and UserRateRefill (tokens/second) throttle chat commands per LINE user.
	UserRateBurst  = 6
	UserRateRefill = 0.2

	// ReplyRateBurst and ReplyRateRefill throttle reply API calls process-wide.
	ReplyRateBurst  = 100
	ReplyRateRefill = 100
)
