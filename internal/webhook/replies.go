package webhook

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/gochang/agri-notify/internal/lineutil"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/stringutil"
	"github.com/gochang/agri-notify/internal/timeutil"
)

// Commands understood in chat.
const (
	CommandOpen   = "신청중"
	CommandHelp   = "도움말"
	CommandSearch = "검색"
)

var openAliases = []string{CommandOpen, "목록", "사업", "지원사업"}

func (h *Handler) replyForText(ctx context.Context, text string) ([]messaging_api.MessageInterface, error) {
	if keyword, ok := strings.CutPrefix(strings.TrimSpace(text), CommandSearch); ok {
		if keyword = stringutil.Compact(keyword); keyword != "" {
			return h.searchReply(ctx, keyword)
		}
	}
	cmd := stringutil.Compact(text)

	switch {
	case slices.Contains(openAliases, cmd):
		return h.openProjectsReply(ctx, "")
	case project.ParseCategory(cmd).Known():
		return h.openProjectsReply(ctx, project.ParseCategory(cmd))
	default:
		return []messaging_api.MessageInterface{helpMessage()}, nil
	}
}

// openProjectsReply lists the projects accepting applications today,
// closing soonest first, optionally restricted to one category.
func (h *Handler) openProjectsReply(ctx context.Context, c project.Category) ([]messaging_api.MessageInterface, error) {
	all, err := h.cfg.Projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	today := timeutil.Today(h.cfg.Clock(), h.cfg.Location)
	open := project.FilterOpen(project.FilterByCategory(all, c), today)

	if len(open) == 0 {
		label := "현재"
		if c != "" {
			label = "현재 " + c.Label() + " 분야에"
		}
		msg := lineutil.NewTextMessage(label + " 신청 가능한 사업이 없습니다.")
		msg.QuickReply = commandQuickReply()
		return []messaging_api.MessageInterface{msg}, nil
	}

	slices.SortStableFunc(open, func(a, b project.Project) int {
		return cmp.Compare(endUnix(a), endUnix(b))
	})

	return cardsReply(open, today, "분야(농업, 임업, 축산업, 수산업)를 입력해 좁혀 보세요."), nil
}

// searchReply lists active projects whose name contains every character of
// keyword, or whose id equals it.
func (h *Handler) searchReply(ctx context.Context, keyword string) ([]messaging_api.MessageInterface, error) {
	all, err := h.cfg.Projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var found []project.Project
	for _, p := range all {
		if !p.IsActive {
			continue
		}
		if strings.EqualFold(p.ID, keyword) || stringutil.ContainsAllRunes(stringutil.Compact(p.Name), keyword) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		msg := lineutil.NewTextMessage(fmt.Sprintf("'%s'에 해당하는 사업을 찾지 못했습니다.", keyword))
		msg.QuickReply = commandQuickReply()
		return []messaging_api.MessageInterface{msg}, nil
	}
	today := timeutil.Today(h.cfg.Clock(), h.cfg.Location)
	return cardsReply(found, today, "검색어를 더 구체적으로 입력해 보세요."), nil
}

// cardsReply renders one card per project. When they do not fit in one
// reply the last slot becomes a count of the rest followed by hint.
func cardsReply(projects []project.Project, today time.Time, hint string) []messaging_api.MessageInterface {
	limit := lineutil.MaxMessagesPerReply
	overflow := 0
	if len(projects) > limit {
		overflow = len(projects) - (limit - 1)
		projects = projects[:limit-1]
	}

	messages := make([]messaging_api.MessageInterface, 0, limit)
	for _, p := range projects {
		messages = append(messages, projectCard(p, today))
	}
	if overflow > 0 {
		messages = append(messages, lineutil.NewTextMessage(fmt.Sprintf("외 %d건이 더 있습니다. %s", overflow, hint)))
	}
	setQuickReply(messages[len(messages)-1], commandQuickReply())
	return messages
}

func endUnix(p project.Project) int64 {
	period, ok := p.Period()
	if !ok {
		return 0
	}
	end, err := period.EndDate()
	if err != nil {
		return 0
	}
	return end.Unix()
}

func projectCard(p project.Project, today time.Time) *messaging_api.FlexMessage {
	subtitle := "신청기간 " + p.ApplicationPeriod
	color := lineutil.CategoryColor(p.Category)
	if period, ok := p.Period(); ok {
		if end, err := period.EndDate(); err == nil {
			switch left := project.DaysBetween(today, end); {
			case left == 0:
				subtitle += " (오늘 마감)"
				color = lineutil.ColorUrgent
			case left > 0:
				subtitle += fmt.Sprintf(" (D-%d)", left)
			}
		}
	}

	lines := make([]string, 0, 4)
	if support := p.SupportText(); support != "" {
		lines = append(lines, "💰 "+support)
	}
	if p.Target != "" {
		lines = append(lines, "👥 "+p.Target)
	}
	if p.Location != "" {
		lines = append(lines, "🏢 "+p.Location)
	}
	if p.Phone != "" {
		lines = append(lines, "☎️ "+p.Phone)
	}

	return lineutil.NewCardMessage(p.Title(), lineutil.Card{
		Title:       p.Title(),
		Subtitle:    subtitle,
		Body:        strings.Join(lines, "\n"),
		HeaderColor: color,
	})
}

func setQuickReply(msg messaging_api.MessageInterface, qr *messaging_api.QuickReply) {
	switch m := msg.(type) {
	case *messaging_api.TextMessage:
		m.QuickReply = qr
	case *messaging_api.FlexMessage:
		m.QuickReply = qr
	}
}

func commandQuickReply() *messaging_api.QuickReply {
	items := []lineutil.QuickReplyItem{{Action: lineutil.NewMessageAction("📋 신청중인 사업", CommandOpen)}}
	for _, c := range project.Categories {
		items = append(items, lineutil.QuickReplyItem{Action: lineutil.NewMessageAction(c.Emoji()+" "+c.Label(), c.Label())})
	}
	items = append(items, lineutil.QuickReplyItem{Action: lineutil.NewMessageAction("❓ "+CommandHelp, CommandHelp)})
	return lineutil.NewQuickReply(items)
}

func helpMessage() *messaging_api.TextMessage {
	msg := lineutil.NewTextMessage(strings.Join([]string{
		"고창군 농업 지원사업 알림입니다.",
		"",
		"• " + CommandOpen + ": 지금 신청할 수 있는 사업",
		"• 농업 / 임업 / 축산업 / 수산업: 분야별 신청중인 사업",
		"• " + CommandSearch + " 키워드: 사업명으로 찾기 (예: 검색 청년농)",
		"",
		"신청 시작일과 마감 3일 전부터 알림을 보내 드립니다.",
	}, "\n"))
	msg.QuickReply = commandQuickReply()
	return msg
}

func welcomeMessage() *messaging_api.TextMessage {
	msg := lineutil.NewTextMessage("친구 추가 감사합니다! 🌾\n고창군 농업·임업·축산업·수산업 지원사업의 신청 일정을 알려 드립니다.\n아래 버튼으로 신청중인 사업을 확인해 보세요.")
	msg.QuickReply = commandQuickReply()
	return msg
}
