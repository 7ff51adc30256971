package graphstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/graph"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// Neo4jStore persists the follows graph through a graph.Client.
type Neo4jStore struct {
	client graph.Client
}

// NewNeo4jStore instantiates a Neo4jStore backed by the supplied client.
func NewNeo4jStore(client graph.Client) *Neo4jStore {
	return &Neo4jStore{client: client}
}

func (s *Neo4jStore) EnsureNode(ctx context.Context, userID string) error {
	if userID == "" {
		return store.NewError(store.Graph, "ensure node", errors.New("user id is required"))
	}
	_, err := s.client.ExecuteWrite(ctx, ensureNodeCypher, map[string]any{"userId": userID})
	return store.NewError(store.Graph, fmt.Sprintf("ensure node %s", userID), err)
}

func (s *Neo4jStore) Node(ctx context.Context, userID string) (domain.GraphNode, error) {
	res, err := s.client.ExecuteRead(ctx, fetchNodeCypher, map[string]any{"userId": userID})
	if err != nil {
		return domain.GraphNode{}, store.NewError(store.Graph, fmt.Sprintf("fetch node %s", userID), err)
	}
	if len(res.Records) == 0 {
		return domain.GraphNode{}, domain.ErrNotFound
	}

	node := domain.GraphNode{UserID: userID}
	node.Following = toStringSlice(res.Records[0]["following"])
	return node, nil
}

func (s *Neo4jStore) Nodes(ctx context.Context) ([]domain.GraphNode, error) {
	res, err := s.client.ExecuteRead(ctx, fetchAllNodesCypher, nil)
	if err != nil {
		return nil, store.NewError(store.Graph, "fetch all nodes", err)
	}

	nodes := make([]domain.GraphNode, 0, len(res.Records))
	for _, record := range res.Records {
		nodes = append(nodes, domain.GraphNode{
			UserID:    toString(record["userId"]),
			Following: toStringSlice(record["following"]),
		})
	}
	return nodes, nil
}

func (s *Neo4jStore) DeleteNode(ctx context.Context, userID string) error {
	_, err := s.client.ExecuteWrite(ctx, deleteNodeCypher, map[string]any{"userId": userID})
	return store.NewError(store.Graph, fmt.Sprintf("delete node %s", userID), err)
}

func (s *Neo4jStore) NodeExists(ctx context.Context, userID string) (bool, error) {
	res, err := s.client.ExecuteRead(ctx, nodeExistsCypher, map[string]any{"userId": userID})
	if err != nil {
		return false, store.NewError(store.Graph, fmt.Sprintf("node exists %s", userID), err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	return toBool(res.Records[0]["exists"]), nil
}

func (s *Neo4jStore) CreateFollow(ctx context.Context, followerID, followedID string) error {
	_, err := s.client.ExecuteWrite(ctx, createFollowCypher, map[string]any{
		"followerId": followerID,
		"followedId": followedID,
	})
	return store.NewError(store.Graph, fmt.Sprintf("follow %s -> %s", followerID, followedID), err)
}

func (s *Neo4jStore) DeleteFollow(ctx context.Context, followerID, followedID string) error {
	_, err := s.client.ExecuteWrite(ctx, deleteFollowCypher, map[string]any{
		"followerId": followerID,
		"followedId": followedID,
	})
	return store.NewError(store.Graph, fmt.Sprintf("unfollow %s -> %s", followerID, followedID), err)
}

func (s *Neo4jStore) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.neighborIDs(ctx, followersCypher, userID, "followerId")
}

func (s *Neo4jStore) Following(ctx context.Context, userID string) ([]string, error) {
	return s.neighborIDs(ctx, followingCypher, userID, "followedId")
}

func (s *Neo4jStore) Mutuals(ctx context.Context, userID string) ([]string, error) {
	return s.neighborIDs(ctx, mutualsCypher, userID, "mutualId")
}

func (s *Neo4jStore) neighborIDs(ctx context.Context, cypher, userID, key string) ([]string, error) {
	res, err := s.client.ExecuteRead(ctx, cypher, map[string]any{"userId": userID})
	if err != nil {
		return nil, store.NewError(store.Graph, fmt.Sprintf("traverse %s", userID), err)
	}

	ids := make([]string, 0, len(res.Records))
	for _, record := range res.Records {
		if id := toString(record[key]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toStringSlice(val any) []string {
	raw, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toBool(val any) bool {
	b, ok := val.(bool)
	return ok && b
}

const ensureNodeCypher = `
MERGE (u:User {userId: $userId})
RETURN u.userId AS userId
`

const fetchNodeCypher = `
MATCH (u:User {userId: $userId})
RETURN u.userId AS userId,
       [(u)-[:FOLLOWS]->(f:User) | f.userId] AS following
`

const fetchAllNodesCypher = `
MATCH (u:User)
RETURN u.userId AS userId,
       [(u)-[:FOLLOWS]->(f:User) | f.userId] AS following
ORDER BY u.userId
`

const deleteNodeCypher = `
MATCH (u:User {userId: $userId})
DETACH DELETE u
`

const nodeExistsCypher = `
OPTIONAL MATCH (u:User {userId: $userId})
RETURN u IS NOT NULL AS exists
`

const createFollowCypher = `
MATCH (follower:User {userId: $followerId})
MATCH (followed:User {userId: $followedId})
MERGE (follower)-[:FOLLOWS]->(followed)
`

const deleteFollowCypher = `
MATCH (follower:User {userId: $followerId})-[r:FOLLOWS]->(followed:User {userId: $followedId})
DELETE r
`

const followersCypher = `
MATCH (follower:User)-[:FOLLOWS]->(u:User {userId: $userId})
RETURN follower.userId AS followerId
ORDER BY follower.userId
`

const followingCypher = `
MATCH (u:User {userId: $userId})-[:FOLLOWS]->(followed:User)
RETURN followed.userId AS followedId
ORDER BY followed.userId
`

const mutualsCypher = `
MATCH (u:User {userId: $userId})-[:FOLLOWS]->(other:User)-[:FOLLOWS]->(u)
WHERE other.userId <> $userId
RETURN other.userId AS mutualId
ORDER BY other.userId
`
