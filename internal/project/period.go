package project

import (
	"strings"
	"time"
)

// DateLayout is the textual date format used throughout the catalog
// (yyyy.MM.dd). Parsing also accepts single-digit months and days.
const DateLayout = "2006.01.02"

const parseLayout = "2006.1.2"

// PeriodSeparator separates the start and end of an application period.
const PeriodSeparator = "~"

// Period holds the raw start and end tokens of an application period.
type Period struct {
	Start string
	End   string
}

// SplitPeriod splits s on "~". It requires exactly two tokens.
func SplitPeriod(s string) (Period, bool) {
	parts := strings.Split(s, PeriodSeparator)
	if len(parts) != 2 {
		return Period{}, false
	}
	return Period{Start: strings.TrimSpace(parts[0]), End: strings.TrimSpace(parts[1])}, true
}

// StartDate parses the start token.
func (p Period) StartDate() (time.Time, error) {
	return ParseDate(p.Start)
}

// EndDate parses the end token.
func (p Period) EndDate() (time.Time, error) {
	return ParseDate(p.End)
}

// String renders the period back in "start~end" form.
func (p Period) String() string {
	return p.Start + PeriodSeparator + p.End
}

// ParseDate parses a yyyy.MM.dd date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(parseLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate renders t's calendar date as yyyy.MM.dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its calendar date in t's own location, expressed as
// midnight UTC so day arithmetic is free of DST and zone offsets.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// OpenOn reports whether day falls inside the application period, both ends
// inclusive. Unparsable periods are never open.
func (p Period) OpenOn(day time.Time) bool {
	start, err := p.StartDate()
	if err != nil {
		return false
	}
	end, err := p.EndDate()
	if err != nil {
		return false
	}
	day = Day(day)
	return !day.Before(start) && !day.After(end)
}
