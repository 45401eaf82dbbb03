// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gochang/agri-notify/internal/adminauth"
	"github.com/gochang/agri-notify/internal/api"
	"github.com/gochang/agri-notify/internal/buildinfo"
	"github.com/gochang/agri-notify/internal/config"
	"github.com/gochang/agri-notify/internal/ctxutil"
	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/notify"
	"github.com/gochang/agri-notify/internal/profile"
	"github.com/gochang/agri-notify/internal/ratelimit"
	"github.com/gochang/agri-notify/internal/sentry"
	"github.com/gochang/agri-notify/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	core           *Core
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	job            *notify.Job
	profiles       *profile.Service
	webhookHandler *webhook.Handler // nil without LINE credentials
	userLimiter    *ratelimit.KeyedLimiter
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// NewLogger builds the process logger from cfg and installs it as the slog
// default so package-level slog calls carry context fields too.
func NewLogger(cfg *config.Config, service string) *logger.Logger {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
		RemoteLevel:         cfg.BetterStackLevel,
	})
	log = log.WithField("service", service)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	slog.SetDefault(log.Logger)
	return log
}

// InitSentry enables error reporting when a token is configured.
func InitSentry(cfg *config.Config, log *logger.Logger) {
	release := cfg.SentryRelease
	if release == "" {
		release = buildinfo.Get().Release()
	}
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     release,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
		return
	}
	if sentry.IsEnabled() {
		log.WithField("host", cfg.SentryHost).Info("Sentry error reporting enabled")
	}
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := NewLogger(cfg, "agri-notify")
	build := buildinfo.Get()
	log.WithField("version", build.Version).WithField("commit", build.Commit).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}
	InitSentry(cfg, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	core, err := NewCore(ctx, cfg, m, log)
	if err != nil {
		return nil, err
	}

	if cfg.SeedSamples {
		if _, err := core.Catalog.Seed(ctx); err != nil {
			_ = core.Close()
			return nil, err
		}
	} else {
		core.Catalog.RefreshGauges(ctx)
	}

	app := &Application{
		cfg:      cfg,
		logger:   log,
		core:     core,
		metrics:  m,
		registry: registry,
		job:      notify.NewJob(core.Evaluator, core.Locker(), m, log),
		profiles: profile.NewService(core.State),
	}

	if cfg.HasLine() {
		if err := app.initWebhook(); err != nil {
			_ = core.Close()
			return nil, err
		}
	} else {
		log.Info("LINE credentials not configured, webhook disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func (a *Application) initWebhook() error {
	client, err := messaging_api.NewMessagingApiAPI(a.cfg.Line.ChannelToken)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	a.userLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Burst:         config.UserRateBurst,
		RefillRate:    config.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		OnDrop:        func() { a.metrics.RecordRateLimiterDrop("user") },
	})
	a.webhookHandler = webhook.NewHandler(webhook.Config{
		ChannelSecret: a.cfg.Line.ChannelSecret,
		Client:        client,
		Projects:      a.core.DB,
		Recipients:    a.core.Recipients,
		Metrics:       a.metrics,
		Logger:        a.logger,
		Location:      a.cfg.Location(),
		UserLimiter:   a.userLimiter,
		ReplyLimiter:  ratelimit.New(config.ReplyRateBurst, config.ReplyRateRefill),
	})
	return nil
}

// routes builds the HTTP router.
func (a *Application) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  a.cfg.CORSAllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
			ExposeHeaders: []string{"Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.webhookHandler != nil {
		router.POST("/callback", a.webhookHandler.Handle)
	}

	var admin gin.HandlerFunc
	if a.cfg.HasAdmin() {
		admin = adminauth.Middleware(a.cfg.AdminUsername, a.cfg.AdminPasswordHash, a.logger)
	}
	api.NewHandler(api.Config{
		Projects:      a.core.DB,
		Importer:      a.core.Catalog,
		Subscriptions: a.core.Tracker,
		Profiles:      a.profiles,
		Runner:        a.job,
		Tester:        a.core.Evaluator,
		Admin:         admin,
		Metrics:       a.metrics,
		Logger:        a.logger,
		Location:      a.cfg.Location(),
	}).Register(router.Group("/api"))

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"build":  buildinfo.Get(),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.core.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	count, err := a.core.DB.CountProjects(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count projects in readiness check")
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"projects": count,
		"features": a.features(),
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"line_webhook": a.webhookHandler != nil,
		"fcm":          a.cfg.HasFCM(),
		"admin_api":    a.cfg.HasAdmin(),
		"r2":           a.core.R2 != nil,
		"dry_run":      a.cfg.Notify.DryRun,
	}
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context to stop the scheduler and other background jobs
//  3. Wait for background jobs
//  4. Stop the HTTP server, webhook handler and limiters
//  5. Wait for a detached evaluation, bounded by SHUTDOWN_TIMEOUT
//  6. Close state and database
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.notificationScheduler(ctx)
	})
	a.wg.Go(func() {
		a.updateGaugeMetrics(ctx)
	})
	if a.core.Snapshots != nil {
		a.wg.Go(func() {
			a.snapshotUploader(ctx)
		})
	}
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown must run after the background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}
	if a.userLimiter != nil {
		a.userLimiter.Stop()
	}

	a.drainEvaluation(shutdownCtx)

	a.logger.Info("Closing resources...")
	if err := a.core.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "storage").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// drainEvaluation waits for a detached evaluation, started by a manual
// trigger whose caller already left, before the stores it writes to close.
func (a *Application) drainEvaluation(ctx context.Context) {
	if a.job == nil {
		return
	}
	a.logger.Info("Waiting for notification run to finish...")
	if err := a.job.Wait(ctx); err != nil {
		a.logger.WithError(err).Warn("Notification run still in progress at shutdown")
	}
}

// notificationScheduler evaluates once on startup and then every
// NOTIFY_INTERVAL until ctx is canceled.
func (a *Application) notificationScheduler(ctx context.Context) {
	a.logger.Debug("Notification scheduler started")
	defer a.logger.Debug("Notification scheduler stopped")

	a.runScheduledEvaluation(ctx)

	ticker := time.NewTicker(a.cfg.Notify.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runScheduledEvaluation(ctx)
		}
	}
}

func (a *Application) runScheduledEvaluation(ctx context.Context) {
	res, err := a.job.Trigger(ctx)
	switch {
	case err == nil:
		a.logger.WithField("run_id", res.RunID).
			WithField("sent", res.Sent).
			WithField("failed", res.Failed).
			Debug("Scheduled evaluation finished")
	case errors.Is(err, apperrors.ErrLockHeld):
		a.logger.Debug("Scheduled evaluation skipped, lock held elsewhere")
	case errors.Is(err, context.Canceled):
	default:
		a.logger.WithError(err).Error("Scheduled evaluation failed")
		sentry.CaptureWithTags(ctx, err, map[string]string{"job": "notify"})
	}
}

// updateGaugeMetrics periodically refreshes catalog and follower gauges.
func (a *Application) updateGaugeMetrics(ctx context.Context) {
	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.core.Catalog.RefreshGauges(ctx)
			if ids, err := a.core.Recipients.List(ctx); err == nil {
				a.metrics.SetLineRecipients(len(ids))
			}
		}
	}
}

// snapshotUploader backs the database up to R2 on a fixed interval.
func (a *Application) snapshotUploader(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.R2.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uploadCtx, cancel := context.WithTimeout(ctxutil.WithRunID(ctx, "snapshot"), config.R2Request*4)
			if _, err := a.core.Snapshots.Upload(uploadCtx, a.core.DB); err != nil {
				a.logger.WithError(err).Error("Database snapshot failed")
				sentry.CaptureWithTags(uploadCtx, err, map[string]string{"job": "snapshot"})
			}
			cancel()
		}
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID != "" {
			ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())
		if requestID != "" {
			entry = entry.WithRequestID(requestID)
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != 404:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
