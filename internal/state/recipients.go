package state

import (
	"context"
	"fmt"
)

// Recipients is the registry of LINE users who follow the official account.
type Recipients struct {
	store Store
}

func NewRecipients(store Store) *Recipients {
	return &Recipients{store: store}
}

// Add registers a follower.
func (r *Recipients) Add(ctx context.Context, userID string) error {
	return SetBool(ctx, r.store, LineRecipientKey(userID), true)
}

// Remove unregisters a follower. Removing an unknown user is a no-op.
func (r *Recipients) Remove(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, LineRecipientKey(userID)); err != nil {
		return fmt.Errorf("state: remove recipient: %w", err)
	}
	return nil
}

// List returns all registered user ids, sorted.
func (r *Recipients) List(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, LineRecipientPrefix)
	if err != nil {
		return nil, fmt.Errorf("state: list recipients: %w", err)
	}
	return trimPrefixes(keys, LineRecipientPrefix), nil
}
