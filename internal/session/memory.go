// Package session stores picker states between updates.
package session

import (
	"context"
	"sync"
	"time"

	"astrobot/internal/picker"
)

type entry struct {
	state   *picker.State
	expires time.Time
}

// MemoryStore keeps picker states in process memory. States older than the
// TTL are treated as absent.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[picker.Key]entry
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a store; ttl <= 0 keeps states forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[picker.Key]entry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns a copy of the stored state, or nil.
func (m *MemoryStore) Load(ctx context.Context, key picker.Key) (*picker.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.states[key]
	if !ok || m.expired(e) {
		return nil, nil
	}
	return e.state.Clone(), nil
}

// Save stores a copy of st.
func (m *MemoryStore) Save(ctx context.Context, key picker.Key, st *picker.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{state: st.Clone()}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.states[key] = e
	return nil
}

// Delete removes the state under key.
func (m *MemoryStore) Delete(ctx context.Context, key picker.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
	return nil
}

// Sweep drops expired states and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.states {
		if m.expired(e) {
			delete(m.states, k)
			removed++
		}
	}
	return removed
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) expired(e entry) bool {
	return !e.expires.IsZero() && m.now().After(e.expires)
}
