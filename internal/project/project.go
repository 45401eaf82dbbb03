// Package project defines the subsidy project record and the small amount of
// domain logic attached to it: category presentation, application-period
// parsing and the reminder summary text.
package project

import (
	"strings"
	"time"
)

// Category is the program sector of a project.
type Category string

// Known categories. Any other value presents as "other".
const (
	CategoryAgriculture Category = "agriculture"
	CategoryForestry    Category = "forestry"
	CategoryLivestock   Category = "livestock"
	CategoryFishery     Category = "fishery"

	// CategoryOther groups everything outside the four sectors.
	CategoryOther Category = "other"
)

// Categories lists the known categories in display order.
var Categories = []Category{CategoryAgriculture, CategoryForestry, CategoryLivestock, CategoryFishery}

// Emoji returns the category icon, 📋 for unknown categories.
func (c Category) Emoji() string {
	switch c {
	case CategoryAgriculture:
		return "🌾"
	case CategoryForestry:
		return "🌲"
	case CategoryLivestock:
		return "🐄"
	case CategoryFishery:
		return "🐟"
	default:
		return "📋"
	}
}

// Label returns the Korean display name, 기타 for unknown categories.
func (c Category) Label() string {
	switch c {
	case CategoryAgriculture:
		return "농업"
	case CategoryForestry:
		return "임업"
	case CategoryLivestock:
		return "축산업"
	case CategoryFishery:
		return "수산업"
	default:
		return "기타"
	}
}

// Known reports whether c is one of the four sectors.
func (c Category) Known() bool {
	switch c {
	case CategoryAgriculture, CategoryForestry, CategoryLivestock, CategoryFishery:
		return true
	}
	return false
}

// ParseCategory accepts either the English key or the Korean label.
// Unknown input is returned as-is so it round-trips through import/export.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) || s == c.Label() {
			return c
		}
	}
	return Category(s)
}

// Project is one subsidy program. Records are treated as immutable values;
// per-user opt-in and reminder bookkeeping live in the state store.
type Project struct {
	ID                string   `json:"id" yaml:"id"`
	Category          Category `json:"category" yaml:"category"`
	Name              string   `json:"name" yaml:"name"`
	ApplicationPeriod string   `json:"applicationPeriod" yaml:"applicationPeriod"`
	Support1          string   `json:"support1" yaml:"support1"`
	Support2          string   `json:"support2" yaml:"support2"`
	Target            string   `json:"target" yaml:"target"`
	Location          string   `json:"location" yaml:"location"`
	Etc               string   `json:"etc" yaml:"etc"`
	NotificationDate  string   `json:"notificationDate,omitempty" yaml:"notificationDate"`
	IsActive          bool     `json:"isActive" yaml:"isActive"`
	Phone             string   `json:"phone,omitempty" yaml:"phone"`
	Email             string   `json:"email,omitempty" yaml:"email"`
	Requirements      string   `json:"requirements,omitempty" yaml:"requirements"`
}

// Valid reports whether the record can be stored: id and name are required.
func (p Project) Valid() bool {
	return strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Name) != ""
}

// HasNotificationDate reports whether an explicit reminder date is set.
func (p Project) HasNotificationDate() bool {
	return strings.TrimSpace(p.NotificationDate) != ""
}

// Period parses the application period. ok is false when the field is not
// exactly two "~"-separated tokens; individual tokens may still fail to
// parse as dates.
func (p Project) Period() (Period, bool) {
	return SplitPeriod(p.ApplicationPeriod)
}

// FilterByCategory returns projects in category c, or all when c is empty.
func FilterByCategory(projects []Project, c Category) []Project {
	if c == "" {
		return projects
	}
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// OpenOn reports whether the project is active and accepting applications
// on day.
func (p Project) OpenOn(day time.Time) bool {
	period, ok := p.Period()
	return p.IsActive && ok && period.OpenOn(day)
}

// FilterOpen returns the projects accepting applications on day.
func FilterOpen(projects []Project, day time.Time) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.OpenOn(day) {
			out = append(out, p)
		}
	}
	return out
}
