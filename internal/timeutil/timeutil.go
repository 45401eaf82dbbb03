// Package timeutil resolves the service time zone and the "today" used by
// the reminder evaluator.
package timeutil

import (
	"time"

	"github.com/gochang/agri-notify/internal/project"
)

// DefaultZone is the zone all catalog dates are written in.
const DefaultZone = "Asia/Seoul"

// seoulOffset is KST (UTC+9, no DST).
const seoulOffset = 9 * 60 * 60

var seoulTZ = LoadLocation(DefaultZone)

// LoadLocation returns the named zone. When the host has no tzdata, Asia/Seoul
// falls back to a fixed UTC+9 zone and anything else to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	if name == DefaultZone {
		return time.FixedZone(DefaultZone, seoulOffset)
	}
	return time.UTC
}

// Seoul returns the Korea Standard Time location.
func Seoul() *time.Location {
	return seoulTZ
}

// Clock supplies the current time. Tests replace it with a fixed clock.
type Clock func() time.Time

// SystemClock is the real clock.
func SystemClock() time.Time {
	return time.Now()
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Today returns the calendar date of now in loc as midnight UTC, the form
// project.ParseDate produces.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = seoulTZ
	}
	return project.Day(now.In(loc))
}

// TodayString formats Today as yyyy.MM.dd.
func TodayString(now time.Time, loc *time.Location) string {
	return project.FormatDate(Today(now, loc))
}
