package project

import (
	"strings"
)

// Title returns the category icon followed by the project name.
func (p Project) Title() string {
	return p.Category.Emoji() + " " + p.Name
}

// SupportText joins the two support fields, skipping empty ones.
func (p Project) SupportText() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{p.Support1, p.Support2} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// FormattedNotificationText is the multi-line summary shown in the expanded
// reminder and in chat replies.
func (p Project) FormattedNotificationText() string {
	var b strings.Builder
	b.WriteString(p.Title())
	b.WriteString("\n📅 신청기간: ")
	b.WriteString(p.ApplicationPeriod)
	if support := p.SupportText(); support != "" {
		b.WriteString("\n💰 지원내용: ")
		b.WriteString(support)
	}
	if p.Target != "" {
		b.WriteString("\n👥 지원대상: ")
		b.WriteString(p.Target)
	}
	if p.Location != "" {
		b.WriteString("\n🏢 담당부서: ")
		b.WriteString(p.Location)
	}
	return b.String()
}

// DetailText extends the summary with contact details and requirements.
func (p Project) DetailText() string {
	var b strings.Builder
	b.WriteString(p.FormattedNotificationText())
	if p.Etc != "" {
		b.WriteString("\n📝 비고: ")
		b.WriteString(p.Etc)
	}
	if p.Requirements != "" {
		b.WriteString("\n📎 구비서류: ")
		b.WriteString(p.Requirements)
	}
	if p.Phone != "" {
		b.WriteString("\n☎️ 문의: ")
		b.WriteString(p.Phone)
	}
	if p.Email != "" {
		b.WriteString("\n✉️ ")
		b.WriteString(p.Email)
	}
	return b.String()
}
