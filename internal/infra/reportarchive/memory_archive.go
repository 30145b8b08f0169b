package reportarchive

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/drive-value/internal/domain/valuation"
)

// MemoryArchive keeps archived reports in process. Used when no bucket is
// configured and in tests.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

func (a *MemoryArchive) Save(_ context.Context, key string, raw []byte) error {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	a.mu.Lock()
	a.objects[key] = buf
	a.mu.Unlock()
	return nil
}

// Get returns a stored report.
func (a *MemoryArchive) Get(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	raw, ok := a.objects[key]
	return raw, ok
}

// Keys lists stored keys in lexical order.
func (a *MemoryArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Discard drops every report.
type Discard struct{}

func (Discard) Save(context.Context, string, []byte) error { return nil }

var (
	_ valuation.Archive = (*MemoryArchive)(nil)
	_ valuation.Archive = Discard{}
)
