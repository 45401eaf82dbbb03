// Package webhook handles the LINE webhook: it keeps the follower registry in
// sync with follow/unfollow events and answers text commands with the
// projects currently accepting applications.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/gochang/agri-notify/internal/config"
	"github.com/gochang/agri-notify/internal/ctxutil"
	"github.com/gochang/agri-notify/internal/lineutil"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/ratelimit"
	"github.com/gochang/agri-notify/internal/state"
	"github.com/gochang/agri-notify/internal/timeutil"
)

// maxEventsPerBatch caps the events handled from one webhook request.
const maxEventsPerBatch = 100

// ReplyAPI is the part of the Messaging API client used for replies.
type ReplyAPI interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// ProjectLister provides the catalog.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
}

// Config holds the dependencies of a Handler.
type Config struct {
	ChannelSecret string
	Client        ReplyAPI
	Projects      ProjectLister
	Recipients    *state.Recipients
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Location      *time.Location
	Clock         timeutil.Clock

	// UserLimiter throttles commands per LINE user. Optional.
	UserLimiter *ratelimit.KeyedLimiter
	// ReplyLimiter throttles outgoing reply calls. Optional.
	ReplyLimiter *ratelimit.Limiter
}

// Handler handles LINE webhook events
type Handler struct {
	cfg Config
	log *logger.Logger
	wg  sync.WaitGroup
}

// NewHandler creates a webhook handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Location == nil {
		cfg.Location = timeutil.Seoul()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock
	}
	return &Handler{cfg: cfg, log: cfg.Logger.WithModule("webhook")}
}

// Handle is the Gin handler for the webhook endpoint. It verifies the
// signature, answers 200 right away and processes events in the background.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.cfg.ChannelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.WarnContext(c.Request.Context(), "Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.log.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerBatch {
		h.log.WithField("event_count", len(events)).Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerBatch]
	}
	events = append([]webhook.EventInterface(nil), events...)
	base := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		ctx, cancel := context.WithTimeout(base, config.WebhookProcessing)
		defer cancel()
		for _, event := range events {
			h.processEvent(ctx, event)
		}
	})
}

// processEvent handles a single event.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	eventID, userID := eventMeta(event)
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
	}
	if userID != "" {
		ctx = ctxutil.WithUserID(ctx, userID)
	}

	var (
		eventType  string
		replyToken string
		messages   []messaging_api.MessageInterface
		err        error
	)
	switch e := event.(type) {
	case webhook.FollowEvent:
		eventType, replyToken = "follow", e.ReplyToken
		messages, err = h.handleFollow(ctx, userID)
	case webhook.UnfollowEvent:
		eventType = "unfollow"
		err = h.handleUnfollow(ctx, userID)
	case webhook.MessageEvent:
		eventType, replyToken = "message", e.ReplyToken
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			h.log.WithField("message_type", e.Message.GetType()).DebugContext(ctx, "Ignoring non-text message")
			return
		}
		if h.cfg.UserLimiter != nil && !h.cfg.UserLimiter.Allow(userID) {
			h.log.DebugContext(ctx, "User rate limit exceeded")
			h.recordWebhook(eventType, "rate_limited", start)
			return
		}
		messages, err = h.replyForText(ctx, text.Text)
	default:
		h.log.WithField("event_type", fmt.Sprintf("%T", e)).DebugContext(ctx, "Unsupported event type")
		return
	}

	if err != nil {
		h.log.WithError(err).WithField("event_type", eventType).ErrorContext(ctx, "Failed to handle event")
		h.recordWebhook(eventType, "error", start)
		return
	}

	if len(messages) > 0 && replyToken != "" {
		if err := h.reply(ctx, replyToken, messages); err != nil {
			h.log.WithError(err).WithField("event_type", eventType).ErrorContext(ctx, "Failed to send reply")
			h.recordWebhook(eventType, "reply_error", start)
			return
		}
	}

	h.recordWebhook(eventType, "success", start)
	h.log.WithField("event_type", eventType).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		DebugContext(ctx, "Event processed")
}

func (h *Handler) handleFollow(ctx context.Context, userID string) ([]messaging_api.MessageInterface, error) {
	if userID != "" {
		if err := h.cfg.Recipients.Add(ctx, userID); err != nil {
			return nil, err
		}
		h.refreshRecipientGauge(ctx)
	}
	return []messaging_api.MessageInterface{welcomeMessage()}, nil
}

func (h *Handler) handleUnfollow(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := h.cfg.Recipients.Remove(ctx, userID); err != nil {
		return err
	}
	h.refreshRecipientGauge(ctx)
	return nil
}

func (h *Handler) refreshRecipientGauge(ctx context.Context) {
	if h.cfg.Metrics == nil {
		return
	}
	ids, err := h.cfg.Recipients.List(ctx)
	if err != nil {
		h.log.WithError(err).WarnContext(ctx, "Failed to count LINE followers")
		return
	}
	h.cfg.Metrics.SetLineRecipients(len(ids))
}

func (h *Handler) reply(ctx context.Context, token string, messages []messaging_api.MessageInterface) error {
	if len(messages) > lineutil.MaxMessagesPerReply {
		messages = messages[:lineutil.MaxMessagesPerReply]
	}
	if h.cfg.ReplyLimiter != nil && !h.cfg.ReplyLimiter.Allow() {
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.RecordRateLimiterDrop("reply")
		}
		if err := h.cfg.ReplyLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for reply quota: %w", err)
		}
	}
	_, err := h.cfg.Client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: token,
		Messages:   messages,
	})
	return err
}

func (h *Handler) recordWebhook(eventType, status string, start time.Time) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RecordWebhook(eventType, status, time.Since(start).Seconds())
	}
}

// eventMeta extracts the webhook event id and the LINE user id, if any.
func eventMeta(event webhook.EventInterface) (eventID, userID string) {
	var source webhook.SourceInterface
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventID, source = e.WebhookEventId, e.Source
	case webhook.FollowEvent:
		eventID, source = e.WebhookEventId, e.Source
	case webhook.UnfollowEvent:
		eventID, source = e.WebhookEventId, e.Source
	}
	if u, ok := source.(webhook.UserSource); ok {
		userID = u.UserId
	}
	return eventID, userID
}

// Shutdown waits for in-flight event processing or until ctx is done.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
