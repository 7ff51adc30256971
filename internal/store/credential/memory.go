package credential

import (
	"context"
	"sort"
	"sync"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// MemoryStore is a map-backed credential store for tests and the -memory
// server mode.
type MemoryStore struct {
	mu         sync.Mutex
	identities map[string]domain.Identity
	err        error
}

// NewMemoryStore returns an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{identities: make(map[string]domain.Identity)}
}

// WithError makes every subsequent call fail with a tagged store error.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) Upsert(_ context.Context, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Credential, "upsert", m.err)
	}
	m.identities[identity.UserID] = identity
	return nil
}

func (m *MemoryStore) FetchOne(_ context.Context, userID string) (domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Identity{}, store.NewError(store.Credential, "fetch", m.err)
	}
	identity, ok := m.identities[userID]
	if !ok {
		return domain.Identity{}, domain.ErrNotFound
	}
	return identity, nil
}

func (m *MemoryStore) FetchByEmail(_ context.Context, email string) (domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Identity{}, store.NewError(store.Credential, "fetch by email", m.err)
	}
	for _, identity := range m.identities {
		if identity.Email == email {
			return identity, nil
		}
	}
	return domain.Identity{}, domain.ErrNotFound
}

func (m *MemoryStore) FetchAll(_ context.Context) ([]domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Credential, "fetch all", m.err)
	}
	ids := make([]string, 0, len(m.identities))
	for id := range m.identities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	identities := make([]domain.Identity, 0, len(ids))
	for _, id := range ids {
		identities = append(identities, m.identities[id])
	}
	return identities, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Credential, "delete", m.err)
	}
	delete(m.identities, userID)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, store.NewError(store.Credential, "exists", m.err)
	}
	_, ok := m.identities[userID]
	return ok, nil
}
