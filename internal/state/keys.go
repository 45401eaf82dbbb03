package state

import "strings"

// Key namespaces.
const (
	LastNotificationPrefix = "last_notification_"
	DeadlineSentPrefix     = "deadline_sent_"
	OptInPrefix            = "notify_opt_in_"
	LineRecipientPrefix    = "line_recipient_"
)

// Profile keys.
const (
	KeyFirstLaunch   = "first_launch"
	KeyUserName      = "user_name"
	KeyUserBirthDate = "user_birth_date"
	KeyUserPhone     = "user_phone"
	KeyUserGender    = "user_gender"
	KeyUserInterests = "user_interests"
)

// LastNotificationKey holds the yyyy.MM.dd date a project was last announced.
func LastNotificationKey(projectID string) string {
	return LastNotificationPrefix + projectID
}

// DeadlineSentKey is scoped to the period end date so a project that reopens
// with a new period gets a fresh deadline warning.
func DeadlineSentKey(projectID, endDate string) string {
	return DeadlineSentPrefix + projectID + "@" + endDate
}

func OptInKey(projectID string) string {
	return OptInPrefix + projectID
}

func LineRecipientKey(userID string) string {
	return LineRecipientPrefix + userID
}

// trimPrefixes strips prefix from each key.
func trimPrefixes(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out
}
