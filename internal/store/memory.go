package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMemoryCapacity bounds a MemoryStore built by NewMemoryStore.
const DefaultMemoryCapacity = 10000

// MemoryStore keeps the most recent selections in process memory, evicting
// the oldest once capacity is reached. It is meant for development and
// tests; use PostgresStore for a durable audit log.
type MemoryStore struct {
	mu         sync.RWMutex
	selections []*Selection // ring buffer, oldest at start
	start      int
	byID       map[uuid.UUID]*Selection
	capacity   int
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryStoreWithCapacity keeps at most capacity selections. A
// non-positive capacity falls back to DefaultMemoryCapacity.
func NewMemoryStoreWithCapacity(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{byID: make(map[uuid.UUID]*Selection), capacity: capacity}
}

func (m *MemoryStore) CreateSelection(_ context.Context, s *Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	cp := *s
	if len(m.selections) < m.capacity {
		m.selections = append(m.selections, &cp)
	} else {
		delete(m.byID, m.selections[m.start].ID)
		m.selections[m.start] = &cp
		m.start = (m.start + 1) % m.capacity
	}
	m.byID[cp.ID] = &cp
	return nil
}

// at returns the i-th retained selection, oldest first.
func (m *MemoryStore) at(i int) *Selection {
	return m.selections[(m.start+i)%len(m.selections)]
}

func (m *MemoryStore) GetSelection(_ context.Context, id uuid.UUID) (*Selection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// ListSelections returns matching selections newest first.
func (m *MemoryStore) ListSelections(_ context.Context, filter SelectionFilter) ([]*Selection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Selection
	skipped := 0
	for i := len(m.selections) - 1; i >= 0; i-- {
		s := m.at(i)
		if filter.Source != "" && s.Source != filter.Source {
			continue
		}
		if filter.Selected != nil && s.Selected != *filter.Selected {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		cp := *s
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*SelectionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &SelectionStats{Total: len(m.selections)}
	var welfare float64
	for _, s := range m.selections {
		if !s.Selected {
			stats.Empty++
			continue
		}
		stats.Selected++
		if s.Penalized {
			stats.Penalized++
		}
		if s.Welfare != nil {
			welfare += *s.Welfare
		}
	}
	if stats.Selected > 0 {
		stats.AvgWelfare = welfare / float64(stats.Selected)
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
