package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/network"
	"github.com/rafaelcs/userhub/backend/internal/store/counter"
	"github.com/rafaelcs/userhub/backend/internal/store/credential"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
	"github.com/rafaelcs/userhub/backend/internal/store/profile"
)

type loaderFixture struct {
	credentials *credential.MemoryStore
	profiles    *profile.MemoryStore
	graph       *graphstore.MemoryStore
	counters    *counter.MemoryStore
	loader      *Loader
	coordinator *coordinator.Coordinator
}

func newLoaderFixture(workers int) *loaderFixture {
	f := &loaderFixture{
		credentials: credential.NewMemoryStore(),
		profiles:    profile.NewMemoryStore(),
		graph:       graphstore.NewMemoryStore(),
		counters:    counter.NewMemoryStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.coordinator = coordinator.New(logger, f.credentials, f.profiles, f.graph, f.counters)
	net := network.NewManager(f.graph)
	f.loader = NewLoader(logger, f.coordinator, net, workers)
	return f
}

func userRecord(id string) UserRecord {
	a := 30
	return UserRecord{
		Credentials: &CredentialRecord{UserID: id, Email: id + "@example.com", PasswordHash: "hash"},
		Profile:     &ProfileRecord{UserID: id, Age: &a, Country: "Brazil"},
		LoginCount:  2,
	}
}

func TestSeedUsersAndRelationships(t *testing.T) {
	ctx := context.Background()
	f := newLoaderFixture(3)

	var summary Summary
	f.loader.SeedUsers(ctx, []UserRecord{userRecord("u-1"), userRecord("u-2"), userRecord("u-3")}, &summary)

	if summary.UsersCreated != 3 {
		t.Fatalf("expected 3 users created, got %d", summary.UsersCreated)
	}
	if summary.UserFailures != 0 || summary.PartialWrites != 0 {
		t.Fatalf("unexpected failures in summary: %+v", summary)
	}

	f.loader.SeedRelationships(ctx, []RelationshipRecord{
		{FollowerID: "u-1", FollowedID: "u-2"},
		{FollowerID: "u-2", FollowedID: "u-1"},
		{FollowerID: "u-1", FollowedID: "ghost"},
	}, &summary)

	if summary.FollowsCreated != 2 {
		t.Fatalf("expected 2 follows created, got %d", summary.FollowsCreated)
	}
	if summary.FollowFailures != 1 {
		t.Fatalf("expected 1 follow failure, got %d", summary.FollowFailures)
	}

	agg, err := f.coordinator.Get(ctx, "u-1")
	if err != nil {
		t.Fatalf("fetch seeded user: %v", err)
	}
	if agg.Counters.LoginCount != 2 {
		t.Errorf("expected seeded login count 2, got %d", agg.Counters.LoginCount)
	}
	if agg.Relations == nil || len(agg.Relations.Following) != 1 {
		t.Errorf("expected seeded follow edge, got %+v", agg.Relations)
	}
}

func TestSeedUsersCountsPartialWrites(t *testing.T) {
	ctx := context.Background()
	f := newLoaderFixture(1)
	f.graph.WithError(errors.New("neo4j unavailable"))

	var summary Summary
	f.loader.SeedUsers(ctx, []UserRecord{userRecord("u-1")}, &summary)

	if summary.UsersCreated != 1 {
		t.Fatalf("expected user counted as created, got %+v", summary)
	}
	if summary.PartialWrites != 1 {
		t.Fatalf("expected 1 partial write, got %d", summary.PartialWrites)
	}
}

func TestSeedUsersCountsTotalFailures(t *testing.T) {
	ctx := context.Background()
	f := newLoaderFixture(1)
	down := errors.New("all stores down")
	f.credentials.WithError(down)
	f.profiles.WithError(down)
	f.graph.WithError(down)
	f.counters.WithError(down)

	var summary Summary
	f.loader.SeedUsers(ctx, []UserRecord{userRecord("u-1"), userRecord("u-2")}, &summary)

	if summary.UsersCreated != 0 {
		t.Fatalf("expected no users created, got %d", summary.UsersCreated)
	}
	if summary.UserFailures != 2 {
		t.Fatalf("expected 2 user failures, got %d", summary.UserFailures)
	}
}

func TestSeedUserMintsMissingID(t *testing.T) {
	ctx := context.Background()
	f := newLoaderFixture(1)

	var summary Summary
	f.loader.SeedUsers(ctx, []UserRecord{{
		Profile: &ProfileRecord{Country: "Brazil"},
	}}, &summary)

	if summary.UsersCreated != 1 {
		t.Fatalf("expected user created, got %+v", summary)
	}
	profiles, err := f.profiles.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].UserID == "" {
		t.Fatalf("expected minted user id, got %+v", profiles)
	}
}
