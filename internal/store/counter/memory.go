package counter

import (
	"context"
	"sync"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// MemoryStore is a map-backed counter store for tests and the -memory
// server mode.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]domain.Counters
	err      error
}

// NewMemoryStore returns an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]domain.Counters)}
}

// WithError makes every subsequent call fail with a tagged store error.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) Upsert(_ context.Context, userID string, c domain.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Counter, "upsert", m.err)
	}
	if c.Session == "" {
		c.Session = domain.SessionOffline
	}
	m.counters[userID] = c
	return nil
}

func (m *MemoryStore) FetchOne(_ context.Context, userID string) (domain.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Counters{}, store.NewError(store.Counter, "fetch", m.err)
	}
	c, ok := m.counters[userID]
	if !ok {
		return domain.Counters{Session: domain.SessionOffline}, nil
	}
	return c, nil
}

func (m *MemoryStore) FetchAll(_ context.Context) (map[string]domain.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Counter, "fetch all", m.err)
	}
	out := make(map[string]domain.Counters, len(m.counters))
	for id, c := range m.counters {
		out[id] = c
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Counter, "delete", m.err)
	}
	delete(m.counters, userID)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, store.NewError(store.Counter, "exists", m.err)
	}
	_, ok := m.counters[userID]
	return ok, nil
}

func (m *MemoryStore) IncrementLogin(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, store.NewError(store.Counter, "increment login", m.err)
	}
	c := m.counters[userID]
	if c.Session == "" {
		c.Session = domain.SessionOffline
	}
	c.LoginCount++
	m.counters[userID] = c
	return c.LoginCount, nil
}

func (m *MemoryStore) LoginCount(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, store.NewError(store.Counter, "fetch login count", m.err)
	}
	return m.counters[userID].LoginCount, nil
}

func (m *MemoryStore) SetSession(_ context.Context, userID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Counter, "set session", m.err)
	}
	c := m.counters[userID]
	c.Session = state
	m.counters[userID] = c
	return nil
}

func (m *MemoryStore) TouchLastLogin(_ context.Context, userID, timestamp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Counter, "touch last login", m.err)
	}
	c := m.counters[userID]
	if c.Session == "" {
		c.Session = domain.SessionOffline
	}
	c.LastLogin = timestamp
	m.counters[userID] = c
	return nil
}
