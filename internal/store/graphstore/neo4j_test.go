package graphstore

import (
	"context"
	"errors"
	"testing"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/graph"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

func TestNeo4jStore_EnsureNode(t *testing.T) {
	mem := graph.NewMemoryClient()
	s := NewNeo4jStore(mem)

	if err := s.EnsureNode(context.Background(), "USR-001"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write query, got %d", len(calls))
	}
	if calls[0].Query != ensureNodeCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", ensureNodeCypher, calls[0].Query)
	}
	if calls[0].Params["userId"] != "USR-001" {
		t.Errorf("expected userId USR-001, got %v", calls[0].Params["userId"])
	}
}

func TestNeo4jStore_EnsureNodeEmptyID(t *testing.T) {
	s := NewNeo4jStore(graph.NewMemoryClient())

	err := s.EnsureNode(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty user id")
	}
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %T", err)
	}
	if se.Store != store.Graph {
		t.Errorf("expected graph store tag, got %s", se.Store)
	}
}

func TestNeo4jStore_Node(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"userId": "USR-001", "following": []any{"USR-002", "USR-003"}},
	}})
	s := NewNeo4jStore(mem)

	node, err := s.Node(context.Background(), "USR-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if node.UserID != "USR-001" {
		t.Errorf("expected userId USR-001, got %s", node.UserID)
	}
	if len(node.Following) != 2 || node.Following[0] != "USR-002" {
		t.Errorf("unexpected following list: %v", node.Following)
	}

	calls := mem.ReadCalls()
	if len(calls) != 1 || calls[0].Query != fetchNodeCypher {
		t.Fatalf("expected fetch node query, got %+v", calls)
	}
}

func TestNeo4jStore_NodeMissing(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{})
	s := NewNeo4jStore(mem)

	_, err := s.Node(context.Background(), "USR-404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNeo4jStore_NodeExists(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{{"exists": true}}})
	mem.PushReadResult(graph.Result{Records: []graph.Record{{"exists": false}}})
	s := NewNeo4jStore(mem)

	exists, err := s.NodeExists(context.Background(), "USR-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !exists {
		t.Error("expected node to exist")
	}

	exists, err = s.NodeExists(context.Background(), "USR-404")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if exists {
		t.Error("expected node to be absent")
	}

	calls := mem.ReadCalls()
	if len(calls) != 2 || calls[0].Query != nodeExistsCypher {
		t.Fatalf("expected node exists queries, got %+v", calls)
	}
}

func TestNeo4jStore_CreateFollowParams(t *testing.T) {
	mem := graph.NewMemoryClient()
	s := NewNeo4jStore(mem)

	if err := s.CreateFollow(context.Background(), "USR-001", "USR-002"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write query, got %d", len(calls))
	}
	if calls[0].Query != createFollowCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", createFollowCypher, calls[0].Query)
	}
	if calls[0].Params["followerId"] != "USR-001" || calls[0].Params["followedId"] != "USR-002" {
		t.Errorf("unexpected params: %v", calls[0].Params)
	}
}

func TestNeo4jStore_Followers(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"followerId": "USR-002"},
		{"followerId": "USR-003"},
	}})
	s := NewNeo4jStore(mem)

	ids, err := s.Followers(context.Background(), "USR-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ids) != 2 || ids[0] != "USR-002" || ids[1] != "USR-003" {
		t.Errorf("unexpected followers: %v", ids)
	}

	calls := mem.ReadCalls()
	if len(calls) != 1 || calls[0].Query != followersCypher {
		t.Fatalf("expected followers query, got %+v", calls)
	}
}

func TestNeo4jStore_Mutuals(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"mutualId": "USR-002"},
	}})
	s := NewNeo4jStore(mem)

	ids, err := s.Mutuals(context.Background(), "USR-001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ids) != 1 || ids[0] != "USR-002" {
		t.Errorf("unexpected mutuals: %v", ids)
	}

	calls := mem.ReadCalls()
	if calls[0].Query != mutualsCypher {
		t.Fatalf("expected mutuals query, got %s", calls[0].Query)
	}
}

func TestNeo4jStore_WriteFailureTagged(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.WithError(errors.New("connection reset"))
	s := NewNeo4jStore(mem)

	err := s.DeleteNode(context.Background(), "USR-001")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %T", err)
	}
	if se.Store != store.Graph {
		t.Errorf("expected graph store tag, got %s", se.Store)
	}
}
