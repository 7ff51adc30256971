// Package network owns follow/unfollow semantics and the derived queries
// over the follows graph. It expands at most one hop when serializing, so a
// node whose neighbors reference it back can never recurse.
package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
)

// Manager coordinates edge mutations and derived queries on the graph
// store. Edge mutations are idempotent set operations, so concurrent calls
// on the same edge converge without locking.
type Manager struct {
	graph graphstore.Store
}

// NewManager constructs a Manager over the supplied graph store.
func NewManager(graph graphstore.Store) *Manager {
	return &Manager{graph: graph}
}

// Follow creates the directed edge follower -> followed. Both endpoints
// must exist as graph nodes; otherwise ErrEndpointNotFound is returned and
// nothing is mutated. Re-following is a no-op success, and self-follows are
// legal.
func (m *Manager) Follow(ctx context.Context, followerID, followedID string) error {
	followerID, followedID, err := m.checkEndpoints(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	return m.graph.CreateFollow(ctx, followerID, followedID)
}

// Unfollow removes the directed edge follower -> followed. Removing an
// absent edge is a no-op success; missing endpoints are reported the same
// way as for Follow.
func (m *Manager) Unfollow(ctx context.Context, followerID, followedID string) error {
	followerID, followedID, err := m.checkEndpoints(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	return m.graph.DeleteFollow(ctx, followerID, followedID)
}

// Followers lists every userId holding an edge toward id.
func (m *Manager) Followers(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return m.graph.Followers(ctx, userID)
}

// Following lists every userId that id holds an edge toward.
func (m *Manager) Following(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return m.graph.Following(ctx, userID)
}

// Mutuals lists reciprocal follows: ids that id follows and that follow id
// back. The id itself is excluded even when it follows itself.
func (m *Manager) Mutuals(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return m.graph.Mutuals(ctx, userID)
}

// Network returns the one-hop view of a node: its id and direct neighbor
// ids in both directions. Neighbors are never expanded recursively, so a
// mutual follow serializes to exactly one edge per direction.
func (m *Manager) Network(ctx context.Context, userID string) (domain.NetworkView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.NetworkView{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}

	exists, err := m.graph.NodeExists(ctx, userID)
	if err != nil {
		return domain.NetworkView{}, err
	}
	if !exists {
		return domain.NetworkView{}, fmt.Errorf("%w: %s", domain.ErrNotFound, userID)
	}

	followers, err := m.graph.Followers(ctx, userID)
	if err != nil {
		return domain.NetworkView{}, err
	}
	following, err := m.graph.Following(ctx, userID)
	if err != nil {
		return domain.NetworkView{}, err
	}

	return domain.NetworkView{
		UserID:         userID,
		Followers:      followers,
		Following:      following,
		FollowersCount: len(followers),
		FollowingCount: len(following),
	}, nil
}

// Snapshot flattens the graph to node ids and (from, to) edge pairs for
// visualization payloads. A limit of zero or less returns every node.
func (m *Manager) Snapshot(ctx context.Context, limit int) (domain.NetworkSnapshot, error) {
	nodes, err := m.graph.Nodes(ctx)
	if err != nil {
		return domain.NetworkSnapshot{}, err
	}
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	snapshot := domain.NetworkSnapshot{
		Nodes: make([]string, 0, len(nodes)),
	}
	included := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		snapshot.Nodes = append(snapshot.Nodes, node.UserID)
		included[node.UserID] = struct{}{}
	}
	// Only edges between included nodes, so a truncated snapshot stays
	// self-contained.
	for _, node := range nodes {
		for _, followed := range node.Following {
			if _, ok := included[followed]; !ok {
				continue
			}
			snapshot.Edges = append(snapshot.Edges, domain.NetworkEdge{
				FollowerID: node.UserID,
				FollowedID: followed,
			})
		}
	}
	return snapshot, nil
}

// EnsureNode creates the graph node for a user if it does not exist yet.
func (m *Manager) EnsureNode(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return m.graph.EnsureNode(ctx, userID)
}

func (m *Manager) checkEndpoints(ctx context.Context, followerID, followedID string) (string, string, error) {
	followerID = strings.TrimSpace(followerID)
	followedID = strings.TrimSpace(followedID)
	if followerID == "" || followedID == "" {
		return "", "", fmt.Errorf("%w: follower and followed ids are required", domain.ErrInvalidArgument)
	}

	for _, id := range []string{followerID, followedID} {
		exists, err := m.graph.NodeExists(ctx, id)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return "", "", fmt.Errorf("%w: %s", domain.ErrEndpointNotFound, id)
		}
	}
	return followerID, followedID, nil
}
