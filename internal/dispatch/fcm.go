package dispatch

import (
	"context"
	"fmt"
	"regexp"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/retry"
)

// AllTopic is the topic suffix every app install subscribes to.
const AllTopic = "all"

var invalidTopicChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.~%]`)

// FCMSender is the subset of *messaging.Client the dispatcher calls.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NewFCMClient initializes the Firebase Admin SDK from a service account file.
func NewFCMClient(ctx context.Context, credentialsFile, projectID string) (*messaging.Client, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Messaging client: %w", err)
	}
	return client, nil
}

// FCMDispatcher pushes reminders to app installs subscribed to the
// project's category topic or to the catch-all topic.
type FCMDispatcher struct {
	client      FCMSender
	topicPrefix string
	log         *logger.Logger
}

func NewFCMDispatcher(client FCMSender, topicPrefix string, log *logger.Logger) *FCMDispatcher {
	return &FCMDispatcher{client: client, topicPrefix: topicPrefix, log: log.WithModule("dispatch.fcm")}
}

func (d *FCMDispatcher) Name() string { return "fcm" }

func (d *FCMDispatcher) Dispatch(ctx context.Context, r Reminder) error {
	id, err := d.client.Send(ctx, d.Message(r))
	if err != nil {
		dispatchErr := apperrors.NewDispatchError(d.Name(), r.ProjectID, err)
		if errorutils.IsInvalidArgument(err) || errorutils.IsPermissionDenied(err) || errorutils.IsUnauthenticated(err) {
			return retry.Permanent(dispatchErr)
		}
		return dispatchErr
	}
	d.log.WithField("message_id", id).WithField("project_id", r.ProjectID).DebugContext(ctx, "FCM message sent")
	return nil
}

// Topic returns the topic name for a category suffix.
func (d *FCMDispatcher) Topic(suffix string) string {
	name := suffix
	if d.topicPrefix != "" {
		name = d.topicPrefix + "_" + suffix
	}
	return invalidTopicChars.ReplaceAllString(name, "_")
}

// Message builds the FCM message. A condition over both topics delivers
// once per device even when it subscribes to both.
func (d *FCMDispatcher) Message(r Reminder) *messaging.Message {
	category := r.Category
	if !category.Known() {
		category = project.CategoryOther
	}
	condition := fmt.Sprintf("'%s' in topics || '%s' in topics", d.Topic(string(category)), d.Topic(AllTopic))

	return &messaging.Message{
		Condition: condition,
		Notification: &messaging.Notification{
			Title: r.Title,
			Body:  r.Body,
		},
		Data: map[string]string{
			"project_id":         r.ProjectID,
			"project_name":       r.ProjectName,
			"application_period": r.Period,
			"long_body":          r.LongBody,
		},
		Android: &messaging.AndroidConfig{
			CollapseKey: r.DedupeKey,
			Priority:    "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: string(r.Channel),
				Tag:       r.DedupeKey,
			},
		},
	}
}
