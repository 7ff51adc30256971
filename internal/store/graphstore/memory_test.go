package graphstore

import (
	"context"
	"errors"
	"testing"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

func TestMemoryStore_FollowLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	for _, id := range []string{"a", "b"} {
		if err := m.EnsureNode(ctx, id); err != nil {
			t.Fatalf("ensure node %s: %v", id, err)
		}
	}

	if err := m.CreateFollow(ctx, "a", "b"); err != nil {
		t.Fatalf("create follow: %v", err)
	}
	// Repeating the same edge is a no-op, not an error.
	if err := m.CreateFollow(ctx, "a", "b"); err != nil {
		t.Fatalf("repeat follow: %v", err)
	}

	node, err := m.Node(ctx, "a")
	if err != nil {
		t.Fatalf("fetch node: %v", err)
	}
	if len(node.Following) != 1 || node.Following[0] != "b" {
		t.Errorf("unexpected following: %v", node.Following)
	}

	followers, err := m.Followers(ctx, "b")
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if len(followers) != 1 || followers[0] != "a" {
		t.Errorf("unexpected followers: %v", followers)
	}

	if err := m.DeleteFollow(ctx, "a", "b"); err != nil {
		t.Fatalf("delete follow: %v", err)
	}
	node, err = m.Node(ctx, "a")
	if err != nil {
		t.Fatalf("fetch node after unfollow: %v", err)
	}
	if len(node.Following) != 0 {
		t.Errorf("expected no following after unfollow, got %v", node.Following)
	}
}

func TestMemoryStore_FollowMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.EnsureNode(ctx, "a"); err != nil {
		t.Fatalf("ensure node: %v", err)
	}

	err := m.CreateFollow(ctx, "a", "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DeleteNodeRemovesInboundEdges(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, id := range []string{"a", "b"} {
		if err := m.EnsureNode(ctx, id); err != nil {
			t.Fatalf("ensure node %s: %v", id, err)
		}
	}
	if err := m.CreateFollow(ctx, "a", "b"); err != nil {
		t.Fatalf("create follow: %v", err)
	}

	if err := m.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("delete node: %v", err)
	}

	node, err := m.Node(ctx, "a")
	if err != nil {
		t.Fatalf("fetch node: %v", err)
	}
	if len(node.Following) != 0 {
		t.Errorf("expected dangling edge to be removed, got %v", node.Following)
	}

	if _, err := m.Node(ctx, "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted node to be absent, got %v", err)
	}
}

func TestMemoryStore_Mutuals(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := m.EnsureNode(ctx, id); err != nil {
			t.Fatalf("ensure node %s: %v", id, err)
		}
	}
	mustFollow := func(from, to string) {
		t.Helper()
		if err := m.CreateFollow(ctx, from, to); err != nil {
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
