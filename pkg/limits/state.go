// Package limits ties the admission limiter to its persistence layer.
package limits

import (
	"context"
	"fmt"
	"time"

	"beacon-hq/beacon/pkg/limits/ratelimit"
	"beacon-hq/beacon/pkg/limits/storage"
)

// SaveState snapshots every client key's admission window into the
// backend. Called on shutdown.
func SaveState(ctx context.Context, limiter *ratelimit.Limiter, backend storage.Backend) error {
	now := time.Now()
	for key, admissions := range limiter.Snapshot() {
		state := &storage.KeyState{
			Key:         key,
			Admissions:  admissions,
			LastUpdated: now,
		}
		if err := backend.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save admission state for key %q: %w", key, err)
		}
	}
	return nil
}

// LoadState restores persisted admission windows into the limiter,
// dropping entries that aged out of the window. Called on startup before
// the limiter takes traffic.
func LoadState(ctx context.Context, limiter *ratelimit.Limiter, backend storage.Backend, now time.Time) error {
	states, err := backend.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admission states: %w", err)
	}

	snapshot := make(map[string][]time.Time, len(states))
	for _, state := range states {
		snapshot[state.Key] = state.Admissions
	}
	limiter.Restore(snapshot, now)

	return nil
}
