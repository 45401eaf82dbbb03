// Package api serves the JSON API used by the mobile app and operators:
// the project catalog, per-project subscriptions, the onboarding profile,
// catalog import and manual reminder runs.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gochang/agri-notify/internal/catalog"
	"github.com/gochang/agri-notify/internal/dispatch"
	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/notify"
	"github.com/gochang/agri-notify/internal/profile"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/timeutil"
)

// ProjectStore reads the catalog.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
}

// Importer replaces the catalog from an uploaded file.
type Importer interface {
	Import(ctx context.Context, filename string, data []byte) (catalog.Report, error)
}

// Subscriptions stores the per-project opt-in.
type Subscriptions interface {
	OptedIn(ctx context.Context, projectID string) (bool, error)
	SetOptIn(ctx context.Context, projectID string, on bool) error
}

// Profiles stores the onboarding profile.
type Profiles interface {
	FirstLaunch(ctx context.Context) (bool, error)
	Load(ctx context.Context) (profile.Profile, error)
	Save(ctx context.Context, p profile.Profile) (profile.Profile, error)
}

// Runner triggers a reminder run.
type Runner interface {
	Trigger(ctx context.Context) (notify.Result, error)
}

// Tester sends a test reminder for one project.
type Tester interface {
	SendTest(ctx context.Context, projectID string) (dispatch.Reminder, error)
}

// Config wires a Handler. Admin guards the write endpoints; when nil they
// are not registered.
type Config struct {
	Projects      ProjectStore
	Importer      Importer
	Subscriptions Subscriptions
	Profiles      Profiles
	Runner        Runner
	Tester        Tester
	Admin         gin.HandlerFunc
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Location      *time.Location
	Clock         timeutil.Clock
}

// Handler serves the /api routes.
type Handler struct {
	cfg Config
	log *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Location == nil {
		cfg.Location = timeutil.Seoul()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock
	}
	return &Handler{cfg: cfg, log: cfg.Logger.WithModule("api")}
}

// Register attaches the API routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	projects.GET("", h.listProjects)
	projects.GET("/sample.csv", h.sampleCSV)
	projects.GET("/:id", h.getProject)
	projects.PUT("/:id/subscription", h.subscribe)
	projects.DELETE("/:id/subscription", h.unsubscribe)

	rg.GET("/profile", h.getProfile)
	rg.PUT("/profile", h.putProfile)

	if h.cfg.Admin == nil {
		h.log.Warn("Admin credentials not configured, import and manual runs disabled")
		return
	}
	projects.POST("/import", h.cfg.Admin, h.importProjects)
	notifications := rg.Group("/notifications", h.cfg.Admin)
	notifications.POST("/run", h.runNotifications)
	notifications.POST("/test/:id", h.testNotification)
}

func (h *Handler) today() time.Time {
	return timeutil.Today(h.cfg.Clock(), h.cfg.Location)
}

// writeError maps err onto a status code and a user-facing message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	errType := "internal"
	var validation *apperrors.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
		return
	case errors.Is(err, apperrors.ErrNotFound):
		status, errType = http.StatusNotFound, "not_found"
	case catalog.IsClientError(err), errors.Is(err, apperrors.ErrInvalidInput):
		status, errType = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, apperrors.ErrLockHeld):
		status, errType = http.StatusConflict, "lock_held"
	case errors.Is(err, context.DeadlineExceeded):
		status, errType = http.StatusGatewayTimeout, "timeout"
	}

	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).ErrorContext(c.Request.Context(), "API request failed")
		_ = c.Error(err)
	}
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RecordHTTPError(errType, "api")
	}
	msg, ok := apperrors.UserMessage(err)
	if !ok {
		msg = fallbackMessages[status]
	}
	c.JSON(status, gin.H{"error": msg})
}

var fallbackMessages = map[int]string{
	http.StatusBadRequest:          "요청 형식이 올바르지 않습니다.",
	http.StatusNotFound:            "요청한 항목을 찾을 수 없습니다.",
	http.StatusConflict:            "다른 서버에서 알림 확인이 진행 중입니다. 잠시 후 다시 시도해주세요.",
	http.StatusGatewayTimeout:      "요청 처리 시간이 초과되었습니다.",
	http.StatusInternalServerError: "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
}
