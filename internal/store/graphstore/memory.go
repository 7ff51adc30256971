package graphstore

import (
	"context"
	"sort"
	"sync"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// MemoryStore keeps the follows graph as adjacency sets guarded by a mutex.
// It backs unit tests and the -memory server mode.
type MemoryStore struct {
	mu        sync.Mutex
	following map[string]map[string]struct{}
	err       error
}

// NewMemoryStore returns an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{following: make(map[string]map[string]struct{})}
}

// WithError makes every subsequent call fail with a tagged store error.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) EnsureNode(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Graph, "ensure node", m.err)
	}
	if _, ok := m.following[userID]; !ok {
		m.following[userID] = make(map[string]struct{})
	}
	return nil
}

func (m *MemoryStore) Node(_ context.Context, userID string) (domain.GraphNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.GraphNode{}, store.NewError(store.Graph, "fetch node", m.err)
	}
	out, ok := m.following[userID]
	if !ok {
		return domain.GraphNode{}, domain.ErrNotFound
	}
	return domain.GraphNode{UserID: userID, Following: sortedKeys(out)}, nil
}

func (m *MemoryStore) Nodes(_ context.Context) ([]domain.GraphNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Graph, "fetch all nodes", m.err)
	}
	ids := sortedKeys2(m.following)
	nodes := make([]domain.GraphNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, domain.GraphNode{UserID: id, Following: sortedKeys(m.following[id])})
	}
	return nodes, nil
}

func (m *MemoryStore) DeleteNode(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Graph, "delete node", m.err)
	}
	delete(m.following, userID)
	for _, out := range m.following {
		delete(out, userID)
	}
	return nil
}

func (m *MemoryStore) NodeExists(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, store.NewError(store.Graph, "node exists", m.err)
	}
	_, ok := m.following[userID]
	return ok, nil
}

func (m *MemoryStore) CreateFollow(_ context.Context, followerID, followedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Graph, "follow", m.err)
	}
	out, ok := m.following[followerID]
	if !ok {
		return store.NewError(store.Graph, "follow", domain.ErrNotFound)
	}
	if _, ok := m.following[followedID]; !ok {
		return store.NewError(store.Graph, "follow", domain.ErrNotFound)
	}
	out[followedID] = struct{}{}
	return nil
}

func (m *MemoryStore) DeleteFollow(_ context.Context, followerID, followedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.NewError(store.Graph, "unfollow", m.err)
	}
	if out, ok := m.following[followerID]; ok {
		delete(out, followedID)
	}
	return nil
}

func (m *MemoryStore) Followers(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Graph, "followers", m.err)
	}
	followers := make([]string, 0)
	for id, out := range m.following {
		if _, ok := out[userID]; ok {
			followers = append(followers, id)
		}
	}
	sort.Strings(followers)
	return followers, nil
}

func (m *MemoryStore) Following(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Graph, "following", m.err)
	}
	return sortedKeys(m.following[userID]), nil
}

func (m *MemoryStore) Mutuals(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, store.NewError(store.Graph, "mutuals", m.err)
	}
	mutuals := make([]string, 0)
	for followed := range m.following[userID] {
		if followed == userID {
			continue
		}
		if _, ok := m.following[followed][userID]; ok {
			mutuals = append(mutuals, followed)
		}
	}
	sort.Strings(mutuals)
	return mutuals, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys2(m map[string]map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
