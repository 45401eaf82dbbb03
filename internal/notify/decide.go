// Package notify decides, for each project, whether a reminder is due today
// and sends it.
//
// Rules, first match wins:
//
//  1. inactive projects are never due
//  2. projects without a notification date are never due
//  3. notification date is today and nothing was sent today: "scheduled"
//  4. application period starts today and nothing was sent today: "opening"
//  5. period ends within DeadlineDays and no deadline warning was sent for
//     this period: "deadline"
//
// Date fields are free text. A field that does not parse makes its rule
// false; evaluation itself never fails on bad data.
package notify

import (
	"time"

	"github.com/gochang/agri-notify/internal/project"
)

// DefaultDeadlineDays is how many days before the period end the deadline
// warning becomes due.
const DefaultDeadlineDays = 3

// Trigger names the rule that made a reminder due.
type Trigger string

const (
	TriggerNone      Trigger = ""
	TriggerScheduled Trigger = "scheduled"
	TriggerOpening   Trigger = "opening"
	TriggerDeadline  Trigger = "deadline"
)

// History is what was already sent for a project.
type History struct {
	// LastNotified is the yyyy.MM.dd date of the last scheduled/opening
	// reminder, "" if none.
	LastNotified string
	// DeadlineSent reports whether the deadline warning for the current
	// period end was sent.
	DeadlineSent bool
}

// Decision is the outcome for one project on one day.
type Decision struct {
	Trigger Trigger
	// DaysLeft is set for TriggerDeadline: days until the period end (0 = today).
	DaysLeft int
}

// Due reports whether a reminder should be sent.
func (d Decision) Due() bool {
	return d.Trigger != TriggerNone
}

// Decide applies the rules to p for the calendar day today.
func Decide(p project.Project, today time.Time, h History, deadlineDays int) Decision {
	if !p.IsActive {
		return Decision{}
	}
	if !p.HasNotificationDate() {
		return Decision{}
	}

	day := project.Day(today)
	sentToday := h.LastNotified == project.FormatDate(day)

	if !sentToday && sameDay(p.NotificationDate, day) {
		return Decision{Trigger: TriggerScheduled}
	}

	period, ok := p.Period()
	if !ok {
		return Decision{}
	}

	if !sentToday && sameDay(period.Start, day) {
		return Decision{Trigger: TriggerOpening}
	}

	if end, err := period.EndDate(); err == nil && !h.DeadlineSent {
		left := project.DaysBetween(day, end)
		if left >= 0 && left <= deadlineDays {
			return Decision{Trigger: TriggerDeadline, DaysLeft: left}
		}
	}

	return Decision{}
}

// PeriodEndKey returns the normalized period end used to scope the deadline
// flag, or "" when the period has no parseable end.
func PeriodEndKey(p project.Project) string {
	period, ok := p.Period()
	if !ok {
		return ""
	}
	end, err := period.EndDate()
	if err != nil {
		return ""
	}
	return project.FormatDate(end)
}

func sameDay(s string, day time.Time) bool {
	t, err := project.ParseDate(s)
	if err != nil {
		return false
	}
	return t.Equal(day)
}
