// Package dispatch delivers reminders to farmers: LINE official account
// messages, Firebase Cloud Messaging pushes to the mobile app, or the log
// for dry runs. Several sinks can be combined with Multi.
package dispatch

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/gochang/agri-notify/internal/project"
)

// Channel is the notification channel a reminder is posted to. On Android
// it is the notification channel id; elsewhere it selects styling.
type Channel string

const (
	ChannelProject Channel = "project_notifications"
	ChannelUrgent  Channel = "urgent_notifications"
)

// Reminder is one notification about one project.
type Reminder struct {
	Channel   Channel
	Title     string
	Body      string
	LongBody  string
	DedupeKey string

	ProjectID   string
	ProjectName string
	Period      string
	Category    project.Category
	// Kind names the rule that produced the reminder (scheduled, opening,
	// deadline, test). Reminders of different kinds on one day are separate
	// deliveries.
	Kind string
	// Date is the yyyy.MM.dd day the reminder belongs to. Together with
	// DedupeKey it identifies a delivery for idempotent retries.
	Date string
	// Nonce distinguishes deliveries that must not be coalesced with the
	// day's regular reminder, such as on-demand test sends.
	Nonce string
}

// Dispatcher delivers a reminder.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, r Reminder) error
}

// DedupeKey derives the stable per-project key a device uses to replace an
// earlier notification for the same project: FNV-1a of the id, in hex.
func DedupeKey(projectID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(projectID))
	return fmt.Sprintf("%08x", h.Sum32())
}
