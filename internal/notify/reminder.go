package notify

import (
	"fmt"
	"time"

	"github.com/gochang/agri-notify/internal/dispatch"
	"github.com/gochang/agri-notify/internal/project"
)

// BuildReminder renders the reminder for a due decision.
func BuildReminder(p project.Project, d Decision, today time.Time) dispatch.Reminder {
	channel := dispatch.ChannelProject
	if d.Trigger == TriggerDeadline {
		channel = dispatch.ChannelUrgent
	}
	return dispatch.Reminder{
		Channel:     channel,
		Title:       fmt.Sprintf("🔔 %s %s", p.Category.Emoji(), p.Name),
		Body:        reminderBody(p, d),
		LongBody:    p.FormattedNotificationText(),
		DedupeKey:   dispatch.DedupeKey(p.ID),
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Period:      p.ApplicationPeriod,
		Category:    p.Category,
		Kind:        string(d.Trigger),
		Date:        project.FormatDate(project.Day(today)),
	}
}

func reminderBody(p project.Project, d Decision) string {
	switch d.Trigger {
	case TriggerOpening:
		return "신청 기간이 시작되었습니다!"
	case TriggerDeadline:
		if d.DaysLeft == 0 {
			return "오늘 신청이 마감됩니다!"
		}
		return fmt.Sprintf("신청 마감 %d일 전입니다!", d.DaysLeft)
	default:
		return "신청 기간: " + p.ApplicationPeriod
	}
}
