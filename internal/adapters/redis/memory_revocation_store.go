package redis

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRevocationStore is an in-process revocation list used when Redis is not configured.
// It is only correct for a single portal instance.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty in-memory revocation store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	if until.After(m.now()) {
		m.entries[id] = until
	}
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRevocationStore) sweepLocked() {
	now := m.now()
	for id, until := range m.entries {
		if !now.Before(until) {
			delete(m.entries, id)
		}
	}
}
