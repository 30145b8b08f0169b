package historyrepo

import (
	"context"
	"sync"

	"github.com/yanqian/drive-value/internal/domain/valuation"
)

// MemoryRepository is an in-memory valuation.HistoryStore.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]valuation.HistoryEntry
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string][]valuation.HistoryEntry)}
}

func (r *MemoryRepository) Append(_ context.Context, owner string, entry valuation.HistoryEntry, opts valuation.AppendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[owner] = valuation.Prepend(r.entries[owner], entry, opts)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, owner string, limit int) ([]valuation.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.entries[owner]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]valuation.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *MemoryRepository) Clear(_ context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, owner)
	return nil
}

var _ valuation.HistoryStore = (*MemoryRepository)(nil)
