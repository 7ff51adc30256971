package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/network"
	"github.com/rafaelcs/userhub/backend/internal/store/counter"
	"github.com/rafaelcs/userhub/backend/internal/store/credential"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
	"github.com/rafaelcs/userhub/backend/internal/store/profile"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// The network manager shares the coordinator's graph store so follow
	// operations see created users.
	graph := graphstore.NewMemoryStore()
	coord := coordinator.New(logger,
		credential.NewMemoryStore(),
		profile.NewMemoryStore(),
		graph,
		counter.NewMemoryStore(),
	)
	return NewRouter(logger, RouterDependencies{
		API: NewAPIHandlers(logger, coord, network.NewManager(graph)),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTestUser(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"userId":   id,
		"email":    id + "@example.com",
		"password": "s3cret",
		"country":  "Brazil",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user %s: expected 201, got %d (%s)", id, rec.Code, rec.Body.String())
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"userId":   "u-1",
		"email":    "alice@example.com",
		"password": "s3cret",
		"age":      30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var payload createUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != "u-1" {
		t.Errorf("expected userId u-1, got %s", payload.UserID)
	}
	if len(payload.SavedIn) != 4 {
		t.Errorf("expected 4 stores in savedIn, got %v", payload.SavedIn)
	}
}

func TestCreateUserMintsID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"email":    "anon@example.com",
		"password": "s3cret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var payload createUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID == "" {
		t.Error("expected minted userId")
	}
}

func TestCreateUserMissingEmail(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users", map[string]any{"userId": "u-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetAggregatedUser(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodGet, "/users/u-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var payload aggregatedUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Identity == nil || payload.Identity.Email != "u-1@example.com" {
		t.Errorf("unexpected identity: %+v", payload.Identity)
	}
	if len(payload.PresentIn) != 4 {
		t.Errorf("expected presence in 4 stores, got %v", payload.PresentIn)
	}
}

func TestGetUserNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/users/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetUserFromSource(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodGet, "/users/u-1?source=counter", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var payload countersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Session != "OFFLINE" {
		t.Errorf("expected OFFLINE session, got %s", payload.Session)
	}
}

func TestGetUserUnknownSource(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/users/u-1?source=oracle", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFollowAndMutuals(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")
	createTestUser(t, router, "u-2")

	rec := doJSON(t, router, http.MethodPost, "/users/u-1/follow", map[string]string{"targetId": "u-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("follow: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/users/u-2/follow", map[string]string{"targetId": "u-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("follow back: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/u-1/mutuals", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mutuals: expected 200, got %d", rec.Code)
	}

	var payload neighborsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 1 || payload.UserIDs[0] != "u-2" {
		t.Errorf("unexpected mutuals: %+v", payload)
	}
}

func TestFollowUnknownTarget(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodPost, "/users/u-1/follow", map[string]string{"targetId": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUnfollowEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")
	createTestUser(t, router, "u-2")

	doJSON(t, router, http.MethodPost, "/users/u-1/follow", map[string]string{"targetId": "u-2"})
	rec := doJSON(t, router, http.MethodPost, "/users/u-1/unfollow", map[string]string{"targetId": "u-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unfollow: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/u-1/following", nil)
	var payload neighborsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 0 {
		t.Errorf("expected no following after unfollow, got %+v", payload)
	}
}

func TestNetworkEndpoints(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")
	createTestUser(t, router, "u-2")
	doJSON(t, router, http.MethodPost, "/users/u-1/follow", map[string]string{"targetId": "u-2"})

	rec := doJSON(t, router, http.MethodGet, "/network/u-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("network view: expected 200, got %d", rec.Code)
	}
	var view networkViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.FollowingCount != 1 || view.Following[0] != "u-2" {
		t.Errorf("unexpected view: %+v", view)
	}

	rec = doJSON(t, router, http.MethodGet, "/network?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: expected 200, got %d", rec.Code)
	}
	var snapshot networkSnapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Nodes) != 2 || len(snapshot.Edges) != 1 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestNetworkViewNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/network/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLoginEndpoints(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "u-1@example.com",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != "u-1" || payload.LoginCount != 1 || payload.Session != "ACTIVE" {
		t.Errorf("unexpected login payload: %+v", payload)
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "u-1@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", map[string]string{"userId": "u-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
}

func TestUpdateUserEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodPatch, "/users/u-1", map[string]any{"country": "Chile"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var payload updateUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.UpdatedIn) != 1 || payload.UpdatedIn[0] != "profile" {
		t.Errorf("expected update in profile store, got %v", payload.UpdatedIn)
	}
}

func TestDeleteUserEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestUser(t, router, "u-1")

	rec := doJSON(t, router, http.MethodDelete, "/users/u-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/users/u-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/users", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow == "" {
		t.Error("expected Allow header")
	}
}

func TestHealthzReportsStores(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{
		Health: StoreHealth{},
	})

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
