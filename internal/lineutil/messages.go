// Package lineutil builds LINE messages: plain text, reminder cards and
// quick replies, clipped to the Messaging API limits.
package lineutil

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// QuickReplyItem represents an item in a quick reply.
type QuickReplyItem struct {
	ImageURL string
	Action   messaging_api.ActionInterface
}

// TruncateRunes truncates text by rune count, ending with "..." when cut.
func TruncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// NewTextMessage creates a text message clipped to the 5000 rune limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewFlexMessage wraps a container. altText is shown in the chat list and
// in push notifications.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
	}
}

// NewMessageAction creates an action that sends text when tapped.
func NewMessageAction(label, text string) messaging_api.ActionInterface {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// NewQuickReply converts items, keeping at most 13.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}
	out := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		out[i] = messaging_api.QuickReplyItem{Action: item.Action, ImageUrl: item.ImageURL}
	}
	return &messaging_api.QuickReply{Items: out}
}

// Card is the content of a reminder or project card.
type Card struct {
	Title       string
	Subtitle    string
	Body        string
	HeaderColor string
}

// NewCardMessage renders a card as a Flex bubble: colored header with the
// title and subtitle, body lines below.
func NewCardMessage(altText string, card Card) *messaging_api.FlexMessage {
	header := vbox(SpacingL, flexText(card.Title, titleStyle))
	header.BackgroundColor = card.HeaderColor
	if card.Subtitle != "" {
		header.Contents = append(header.Contents, flexText(card.Subtitle, subtitleStyle))
	}
	bubble := &messaging_api.FlexBubble{Header: header}

	var lines []messaging_api.FlexComponentInterface
	for _, line := range strings.Split(card.Body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		text := flexText(line, lineStyle)
		text.LineSpacing = LineSpacingNormal
		lines = append(lines, text)
	}
	if len(lines) > 0 {
		bubble.Body = vbox(SpacingL, lines...)
		bubble.Body.Spacing = SpacingS
	}

	return NewFlexMessage(altText, bubble)
}
