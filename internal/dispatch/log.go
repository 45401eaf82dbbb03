package dispatch

import (
	"context"

	"github.com/gochang/agri-notify/internal/logger"
)

// LogDispatcher writes reminders to the log instead of sending them.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.WithModule("dispatch.log")}
}

func (d *LogDispatcher) Name() string { return "log" }

func (d *LogDispatcher) Dispatch(ctx context.Context, r Reminder) error {
	d.log.WithFields(map[string]any{
		"project_id": r.ProjectID,
		"channel":    string(r.Channel),
		"title":      r.Title,
		"body":       r.Body,
		"dedupe_key": r.DedupeKey,
	}).InfoContext(ctx, "Reminder (dry run)")
	return nil
}
