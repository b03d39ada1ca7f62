package storage

import (
	"context"
	"time"
)

// KeyState is the persisted admission window for a single client key.
type KeyState struct {
	// Key is the client identity the window belongs to.
	Key string

	// Admissions are the admission timestamps inside the window, oldest
	// first.
	Admissions []time.Time

	// LastUpdated is when this state was last saved.
	LastUpdated time.Time
}

// Backend defines the interface for admission state persistence.
// Implementations must be thread-safe.
type Backend interface {
	// Save persists the admission state for a key, replacing any existing
	// state.
	Save(ctx context.Context, state *KeyState) error

	// Load retrieves the admission state for a key. Returns nil if no
	// state exists.
	Load(ctx context.Context, key string) (*KeyState, error)

	// List returns all persisted admission states.
	List(ctx context.Context) ([]*KeyState, error)

	// Delete removes the admission state for a key. No-op if absent.
	Delete(ctx context.Context, key string) error

	// Cleanup removes states last updated before olderThan and returns
	// the number removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}
