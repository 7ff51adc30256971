package profile

import (
	"context"
	"sort"
	"sync"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// MemoryStore is a map-backed profile store for tests and the -memory
// server mode.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	err      error
}

// NewMemoryStore returns an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]domain.Profile)}
}

// WithError makes every subsequent call fail with a tagged store error.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) Upsert(_ context.Context, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Profile, "upsert", m.err)
	}
	m.profiles[p.UserID] = p
	return nil
}

func (m *MemoryStore) FetchOne(_ context.Context, userID string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Profile{}, store.NewError(store.Profile, "fetch", m.err)
	}
	p, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) FetchAll(_ context.Context) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Profile, "fetch all", m.err)
	}
	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles := make([]domain.Profile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, m.profiles[id])
	}
	return profiles, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Profile, "delete", m.err)
	}
	delete(m.profiles, userID)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, store.NewError(store.Profile, "exists", m.err)
	}
	_, ok := m.profiles[userID]
	return ok, nil
}
