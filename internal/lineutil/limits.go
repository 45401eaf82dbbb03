package lineutil

// LINE Messaging API limits (rune counts unless noted).
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000
	MaxAltTextLength       = 400
	MaxQuickReplyItemCount = 13
	MaxQuickReplyLabel     = 20
	MaxMessagesPerReply    = 5
	MaxMulticastRecipients = 500 // user IDs per multicast request
)
