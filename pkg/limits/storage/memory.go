package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage. All state is
// lost when the process exits; it exists for tests and for deployments
// that do not care about admission windows surviving a restart.
type MemoryBackend struct {
	states map[string]*KeyState
	mu     sync.RWMutex
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		states: make(map[string]*KeyState),
	}
}

// Save persists the admission state for a key.
func (m *MemoryBackend) Save(ctx context.Context, state *KeyState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stateCopy := *state
	stateCopy.Admissions = append([]time.Time(nil), state.Admissions...)
	if stateCopy.LastUpdated.IsZero() {
		stateCopy.LastUpdated = time.Now()
	}
	m.states[state.Key] = &stateCopy

	return nil
}

// Load retrieves the admission state for a key.
func (m *MemoryBackend) Load(ctx context.Context, key string) (*KeyState, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[key]
	if !ok {
		return nil, nil
	}

	stateCopy := *state
	stateCopy.Admissions = append([]time.Time(nil), state.Admissions...)
	return &stateCopy, nil
}

// List returns all persisted admission states.
func (m *MemoryBackend) List(ctx context.Context) ([]*KeyState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*KeyState, 0, len(m.states))
	for _, state := range m.states {
		stateCopy := *state
		stateCopy.Admissions = append([]time.Time(nil), state.Admissions...)
		states = append(states, &stateCopy)
	}
	return states, nil
}

// Delete removes the admission state for a key.
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
	return nil
}

// Cleanup removes states last updated before olderThan.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, state := range m.states {
		if state.LastUpdated.Before(olderThan) {
			delete(m.states, key)
			removed++
		}
	}
	return removed, nil
}

// Close releases resources held by the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]*KeyState)
	return nil
}
