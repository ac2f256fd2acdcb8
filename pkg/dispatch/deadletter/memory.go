package deadletter

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory dead-letter store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	maxSize int
	closed  bool
}

// NewMemoryStore creates a store holding at most maxSize entries.
// maxSize <= 0 means unlimited.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{maxSize: maxSize}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		return ErrStoreFull
	}

	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.New().String()
		entry.ID = stored.ID
	}
	m.entries = append(m.entries, &stored)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Entry, error) {
	return m.filter(limit, func(*Entry) bool { return true })
}

// ListByHandler implements Store.
func (m *MemoryStore) ListByHandler(_ context.Context, handler string, limit int) ([]*Entry, error) {
	return m.filter(limit, func(e *Entry) bool { return e.Handler == handler })
}

func (m *MemoryStore) filter(limit int, keep func(*Entry) bool) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]*Entry, 0)
	for _, e := range m.entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.entries), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}
