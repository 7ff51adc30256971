// Package graphstore adapts the follows graph to the uniform store
// contract. It owns node lifecycle and raw edge mutation; follow semantics
// (endpoint checks, derived queries) live in the network manager.
package graphstore

import (
	"context"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

// Store is the graph adapter contract. Edge mutations are idempotent set
// operations: re-creating a present edge and deleting an absent edge both
// succeed. DeleteNode detaches all incident edges and is a no-op for an
// absent node.
type Store interface {
	EnsureNode(ctx context.Context, userID string) error
	Node(ctx context.Context, userID string) (domain.GraphNode, error)
	Nodes(ctx context.Context) ([]domain.GraphNode, error)
	DeleteNode(ctx context.Context, userID string) error
	NodeExists(ctx context.Context, userID string) (bool, error)

	CreateFollow(ctx context.Context, followerID, followedID string) error
	DeleteFollow(ctx context.Context, followerID, followedID string) error

	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
	Mutuals(ctx context.Context, userID string) ([]string, error)
}
