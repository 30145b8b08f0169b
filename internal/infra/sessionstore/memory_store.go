package sessionstore

import (
	"context"
	"sync"

	"github.com/yanqian/drive-value/internal/domain/session"
)

// MemoryStore keeps session entries in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]string)}
}

// For scopes the store to one session.
func (s *MemoryStore) For(sessionID string) session.Storage {
	return memoryScope{store: s, id: sessionID}
}

type memoryScope struct {
	store *MemoryStore
	id    string
}

func (m memoryScope) Get(_ context.Context, key string) (string, bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	value, ok := m.store.sessions[m.id][key]
	return value, ok, nil
}

func (m memoryScope) Set(_ context.Context, key, value string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	entries, ok := m.store.sessions[m.id]
	if !ok {
		entries = make(map[string]string)
		m.store.sessions[m.id] = entries
	}
	entries[key] = value
	return nil
}

func (m memoryScope) Remove(_ context.Context, keys ...string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	entries := m.store.sessions[m.id]
	for _, key := range keys {
		delete(entries, key)
	}
	if len(entries) == 0 {
		delete(m.store.sessions, m.id)
	}
	return nil
}
