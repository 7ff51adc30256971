package network

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
)

func newManagerWithUsers(t *testing.T, ids ...string) *Manager {
	t.Helper()
	store := graphstore.NewMemoryStore()
	for _, id := range ids {
		if err := store.EnsureNode(context.Background(), id); err != nil {
			t.Fatalf("ensure node %s: %v", id, err)
		}
	}
	return NewManager(store)
}

func TestManager_FollowIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b")

	if err := m.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := m.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("repeat follow: %v", err)
	}

	following, err := m.Following(ctx, "a")
	if err != nil {
		t.Fatalf("following: %v", err)
	}
	if len(following) != 1 || following[0] != "b" {
		t.Errorf("expected following [b], got %v", following)
	}
}

func TestManager_FollowMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a")

	err := m.Follow(ctx, "a", "ghost")
	if !errors.Is(err, domain.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("expected missing id in error, got %q", err.Error())
	}

	err = m.Follow(ctx, "ghost", "a")
	if !errors.Is(err, domain.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound for follower side, got %v", err)
	}
}

func TestManager_FollowBlankIDs(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a")

	if err := m.Follow(ctx, "  ", "a"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestManager_UnfollowAbsentEdge(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b")

	// Removing an edge that never existed succeeds.
	if err := m.Unfollow(ctx, "a", "b"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
}

func TestManager_UnfollowMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a")

	if err := m.Unfollow(ctx, "a", "ghost"); !errors.Is(err, domain.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestManager_SelfFollow(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a")

	if err := m.Follow(ctx, "a", "a"); err != nil {
		t.Fatalf("self follow: %v", err)
	}

	// A self-edge is reciprocal by definition but never listed as a mutual.
	mutuals, err := m.Mutuals(ctx, "a")
	if err != nil {
		t.Fatalf("mutuals: %v", err)
	}
	if len(mutuals) != 0 {
		t.Errorf("expected no mutuals, got %v", mutuals)
	}
}

func TestManager_Mutuals(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b", "c")

	mustFollow := func(from, to string) {
		t.Helper()
		if err := m.Follow(ctx, from, to); err != nil {
			t.Fatalf("follow %s -> %s: %v", from, to, err)
		}
	}
	mustFollow("a", "b")
	mustFollow("b", "a")
	mustFollow("a", "c")

	mutuals, err := m.Mutuals(ctx, "a")
	if err != nil {
		t.Fatalf("mutuals: %v", err)
	}
	if len(mutuals) != 1 || mutuals[0] != "b" {
		t.Errorf("expected mutuals [b], got %v", mutuals)
	}
}

func TestManager_NetworkOneHop(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b")

	// A reciprocal pair would recurse forever if neighbors were expanded;
	// the view must stay one hop deep.
	if err := m.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := m.Follow(ctx, "b", "a"); err != nil {
		t.Fatalf("follow back: %v", err)
	}

	view, err := m.Network(ctx, "a")
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	if view.UserID != "a" {
		t.Errorf("expected userId a, got %s", view.UserID)
	}
	if view.FollowersCount != 1 || view.Followers[0] != "b" {
		t.Errorf("unexpected followers: %v", view.Followers)
	}
	if view.FollowingCount != 1 || view.Following[0] != "b" {
		t.Errorf("unexpected following: %v", view.Following)
	}
}

func TestManager_NetworkUnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t)

	_, err := m.Network(ctx, "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_Snapshot(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b", "c")

	if err := m.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := m.Follow(ctx, "b", "c"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	snapshot, err := m.Snapshot(ctx, 0)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %v", snapshot.Nodes)
	}
	if len(snapshot.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %v", snapshot.Edges)
	}
}

func TestManager_SnapshotLimitKeepsEdgesSelfContained(t *testing.T) {
	ctx := context.Background()
	m := newManagerWithUsers(t, "a", "b", "c")

	if err := m.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := m.Follow(ctx, "a", "c"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	snapshot, err := m.Snapshot(ctx, 2)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %v", snapshot.Nodes)
	}
	for _, edge := range snapshot.Edges {
		if edge.FollowedID == "c" || edge.FollowerID == "c" {
			t.Errorf("edge references excluded node: %+v", edge)
		}
	}
}
