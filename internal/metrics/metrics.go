// Package metrics exposes the Prometheus metrics of the reminder service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Reminder metrics
	RemindersSentTotal      *prometheus.CounterVec
	EvaluationFailuresTotal *prometheus.CounterVec
	EvaluationRunsTotal     *prometheus.CounterVec
	EvaluationDuration      prometheus.Histogram

	// Catalog metrics
	ImportsTotal       *prometheus.CounterVec
	ImportRows         *prometheus.GaugeVec
	ProjectsTotal      prometheus.Gauge
	ProjectsActive     prometheus.Gauge
	LineRecipientTotal prometheus.Gauge

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RemindersSentTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_reminders_sent_total",
				Help: "Reminders delivered by trigger and channel",
			},
			[]string{"trigger", "channel"}, // trigger: scheduled, opening, deadline, test
		),

		EvaluationFailuresTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_evaluation_failures_total",
				Help: "Per-project failures during an evaluation run by stage",
			},
			[]string{"stage"}, // stage: state_read, dispatch, state_write
		),

		EvaluationRunsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_evaluation_runs_total",
				Help: "Evaluation runs by outcome",
			},
			[]string{"status"}, // status: success, error, locked
		),

		EvaluationDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gochang_evaluation_duration_seconds",
				Help:    "Duration of one evaluation run",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
			},
		),

		ImportsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_imports_total",
				Help: "Catalog imports by source format and status",
			},
			[]string{"format", "status"}, // status: success, no_data, error
		),

		ImportRows: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gochang_import_last_rows",
				Help: "Rows of the last import by result",
			},
			[]string{"result"}, // result: imported, skipped
		),

		ProjectsTotal: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gochang_projects",
				Help: "Projects in the catalog",
			},
		),

		ProjectsActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gochang_projects_active",
				Help: "Active projects in the catalog",
			},
		),

		LineRecipientTotal: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gochang_line_recipients",
				Help: "Registered LINE followers",
			},
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gochang_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event_type"}, // event_type: message, follow, unfollow
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_webhook_requests_total",
				Help: "Total number of webhook requests by event type and status",
			},
			[]string{"event_type", "status"},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"},
		),

		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_singleflight_dedup_total",
				Help: "Triggers that joined an evaluation already in flight",
			},
			[]string{"job"},
		),

		RateLimiterDropsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochang_rate_limiter_drops_total",
				Help: "Requests refused by a rate limiter",
			},
			[]string{"limiter"}, // limiter: user, reply
		),
	}

	return m
}

// RecordReminderSent records one delivered reminder.
func (m *Metrics) RecordReminderSent(trigger, channel string) {
	m.RemindersSentTotal.WithLabelValues(trigger, channel).Inc()
}

// RecordEvaluationFailure records a per-project failure.
func (m *Metrics) RecordEvaluationFailure(stage string) {
	m.EvaluationFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordEvaluationRun records a finished run.
func (m *Metrics) RecordEvaluationRun(status string, duration float64) {
	m.EvaluationRunsTotal.WithLabelValues(status).Inc()
	m.EvaluationDuration.Observe(duration)
}

// RecordImport records an import and the row counts of its result.
func (m *Metrics) RecordImport(format, status string, imported, skipped int) {
	m.ImportsTotal.WithLabelValues(format, status).Inc()
	m.ImportRows.WithLabelValues("imported").Set(float64(imported))
	m.ImportRows.WithLabelValues("skipped").Set(float64(skipped))
}

// SetCatalogSize updates the catalog gauges.
func (m *Metrics) SetCatalogSize(total, active int) {
	m.ProjectsTotal.Set(float64(total))
	m.ProjectsActive.Set(float64(active))
}

// SetLineRecipients updates the follower gauge.
func (m *Metrics) SetLineRecipients(n int) {
	m.LineRecipientTotal.Set(float64(n))
}

// RecordWebhook records a webhook request
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordSingleflightDedup records a deduplicated trigger
func (m *Metrics) RecordSingleflightDedup(job string) {
	m.SingleflightDedupTotal.WithLabelValues(job).Inc()
}

// RecordRateLimiterDrop records a refused request
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropsTotal.WithLabelValues(limiter).Inc()
}
