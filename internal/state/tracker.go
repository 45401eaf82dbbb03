package state

import (
	"context"
	"fmt"
)

// Tracker records what the reminder loop already sent.
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker over store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// LastNotified returns the date (yyyy.MM.dd) of the last scheduled or opening
// reminder for the project, or "" if none was sent.
func (t *Tracker) LastNotified(ctx context.Context, projectID string) (string, error) {
	return GetString(ctx, t.store, LastNotificationKey(projectID), "")
}

// MarkNotified stores day (yyyy.MM.dd) as the last reminder date.
func (t *Tracker) MarkNotified(ctx context.Context, projectID, day string) error {
	if err := t.store.Set(ctx, LastNotificationKey(projectID), day); err != nil {
		return fmt.Errorf("state: mark notified %s: %w", projectID, err)
	}
	return nil
}

// DeadlineSent reports whether the deadline warning for the period ending on
// endDate was already sent.
func (t *Tracker) DeadlineSent(ctx context.Context, projectID, endDate string) (bool, error) {
	return GetBool(ctx, t.store, DeadlineSentKey(projectID, endDate), false)
}

func (t *Tracker) MarkDeadlineSent(ctx context.Context, projectID, endDate string) error {
	return SetBool(ctx, t.store, DeadlineSentKey(projectID, endDate), true)
}

// OptedIn reports the per-project subscription flag. Unset means false.
func (t *Tracker) OptedIn(ctx context.Context, projectID string) (bool, error) {
	return GetBool(ctx, t.store, OptInKey(projectID), false)
}

// SetOptIn turns the subscription on or off. Turning it off removes the key.
func (t *Tracker) SetOptIn(ctx context.Context, projectID string, on bool) error {
	if !on {
		if err := t.store.Delete(ctx, OptInKey(projectID)); err != nil {
			return fmt.Errorf("state: clear opt-in %s: %w", projectID, err)
		}
		return nil
	}
	return SetBool(ctx, t.store, OptInKey(projectID), true)
}

// OptedInProjects lists the ids of every subscribed project.
func (t *Tracker) OptedInProjects(ctx context.Context) ([]string, error) {
	keys, err := t.store.Keys(ctx, OptInPrefix)
	if err != nil {
		return nil, fmt.Errorf("state: list opt-ins: %w", err)
	}
	return trimPrefixes(keys, OptInPrefix), nil
}

// Reset forgets every sent marker for a project. Used after the catalog is
// replaced by an import that changes a project's dates.
func (t *Tracker) Reset(ctx context.Context, projectID string) error {
	if err := t.store.Delete(ctx, LastNotificationKey(projectID)); err != nil {
		return fmt.Errorf("state: reset %s: %w", projectID, err)
	}
	keys, err := t.store.Keys(ctx, DeadlineSentPrefix+projectID+"@")
	if err != nil {
		return fmt.Errorf("state: reset %s: %w", projectID, err)
	}
	for _, k := range keys {
		if err := t.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("state: reset %s: %w", projectID, err)
		}
	}
	return nil
}
