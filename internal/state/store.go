// Package state holds the small key-value records the reminder loop needs
// between runs: when a project was last announced, which deadline warnings
// went out, per-project opt-in flags, LINE followers and the onboarding
// profile. Backends are SQLite (storage.DB), Redis and an in-memory map.
package state

import (
	"context"
	"fmt"
	"strconv"
)

// Store is a flat string key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetString returns the stored value or def when the key is absent.
func GetString(ctx context.Context, s Store, key, def string) (string, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("state: get %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// GetBool reads a boolean flag. Absent keys and unparsable values read as def.
func GetBool(ctx context.Context, s Store, key string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("state: get %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return b, nil
}

// SetBool stores a boolean flag as "true" or "false".
func SetBool(ctx context.Context, s Store, key string, value bool) error {
	if err := s.Set(ctx, key, strconv.FormatBool(value)); err != nil {
		return fmt.Errorf("state: set %s: %w", key, err)
	}
	return nil
}
