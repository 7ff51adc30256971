package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/network"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger      *slog.Logger
	coordinator *coordinator.Coordinator
	network     *network.Manager
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, coord *coordinator.Coordinator, net *network.Manager) *APIHandlers {
	return &APIHandlers{
		logger:      logger,
		coordinator: coord,
		network:     net,
	}
}

func (h *APIHandlers) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	case http.MethodGet:
		h.listUsers(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleUserByID dispatches /users/{id} and the /users/{id}/<action>
// relationship subroutes.
func (h *APIHandlers) handleUserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	userID, action, _ := strings.Cut(rest, "/")
	if action == "" {
		switch r.Method {
		case http.MethodGet:
			h.getUser(w, r, userID)
		case http.MethodPatch, http.MethodPut:
			h.updateUser(w, r, userID)
		case http.MethodDelete:
			h.deleteUser(w, r, userID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
		return
	}

	switch action {
	case "follow":
		h.follow(w, r, userID, true)
	case "unfollow":
		h.follow(w, r, userID, false)
	case "followers":
		h.neighbors(w, r, userID, h.network.Followers)
	case "following":
		h.neighbors(w, r, userID, h.network.Following)
	case "mutuals":
		h.neighbors(w, r, userID, h.network.Mutuals)
	default:
		writeError(w, http.StatusNotFound, "unknown action "+action)
	}
}

func (h *APIHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var payload userRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}

	hash := payload.PasswordHash
	if hash == "" && payload.Password != "" {
		var err error
		hash, err = coordinator.HashPassword(payload.Password)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process password")
			return
		}
	}

	input := coordinator.CreateInput{
		UserID:       userID,
		Email:        payload.Email,
		PasswordHash: hash,
		Profile:      payload.toProfile(userID),
	}

	var (
		result coordinator.CreateResult
		err    error
	)
	if parseBool(r.URL.Query().Get("atomic")) {
		result, err = h.coordinator.CreateRolledBack(r.Context(), input)
	} else {
		result, err = h.coordinator.Create(r.Context(), input)
	}
	if err != nil {
		h.logger.Error("failed to create user", "error", err, "userId", userID)
		writeError(w, statusForError(err), "failed to persist user")
		return
	}

	respondJSON(w, http.StatusCreated, createUserResponse{
		UserID:  result.UserID,
		SavedIn: storeNameStrings(result.SavedIn),
		Errors:  storeErrorStrings(result.Failures),
	})
}

func (h *APIHandlers) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	if source := r.URL.Query().Get("source"); source != "" {
		h.getUserFromSource(w, r, userID, source)
		return
	}

	agg, err := h.coordinator.Get(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("failed to fetch user", "error", err, "userId", userID)
		}
		writeError(w, statusForError(err), "failed to fetch user")
		return
	}
	respondJSON(w, http.StatusOK, toAggregatedResponse(agg))
}

func (h *APIHandlers) getUserFromSource(w http.ResponseWriter, r *http.Request, userID, source string) {
	name, ok := store.ParseName(source)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown source "+source)
		return
	}

	var (
		body any
		err  error
	)
	switch name {
	case store.Credential:
		var ident domain.Identity
		ident, err = h.coordinator.Identity(r.Context(), userID)
		body = toIdentityResponse(ident)
	case store.Profile:
		var prof domain.Profile
		prof, err = h.coordinator.Profile(r.Context(), userID)
		body = toProfileResponse(prof)
	case store.Graph:
		var view domain.NetworkView
		view, err = h.network.Network(r.Context(), userID)
		body = toNetworkResponse(view)
	case store.Counter:
		var counters domain.Counters
		counters, err = h.coordinator.Counters(r.Context(), userID)
		body = toCountersResponse(userID, counters)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("failed to fetch user from source", "error", err, "userId", userID, "source", source)
		}
		writeError(w, statusForError(err), "failed to fetch user")
		return
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *APIHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		users, err := h.coordinator.ListAggregated(r.Context())
		if err != nil {
			h.logger.Error("failed to list users", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		items := make([]aggregatedUserResponse, 0, len(users))
		for _, u := range users {
			items = append(items, toAggregatedResponse(u))
		}
		respondJSON(w, http.StatusOK, listResponse[aggregatedUserResponse]{Items: items, Count: len(items)})
		return
	}

	name, ok := store.ParseName(source)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown source "+source)
		return
	}

	var (
		body any
		err  error
	)
	switch name {
	case store.Credential:
		var identities []domain.Identity
		identities, err = h.coordinator.ListIdentities(r.Context())
		items := make([]identityResponse, 0, len(identities))
		for _, ident := range identities {
			items = append(items, toIdentityResponse(ident))
		}
		body = listResponse[identityResponse]{Items: items, Count: len(items)}
	case store.Profile:
		var profiles []domain.Profile
		profiles, err = h.coordinator.ListProfiles(r.Context())
		items := make([]profileResponse, 0, len(profiles))
		for _, p := range profiles {
			items = append(items, toProfileResponse(p))
		}
		body = listResponse[profileResponse]{Items: items, Count: len(items)}
	case store.Graph:
		var nodes []domain.GraphNode
		nodes, err = h.coordinator.ListNodes(r.Context())
		items := make([]graphNodeResponse, 0, len(nodes))
		for _, n := range nodes {
			items = append(items, graphNodeResponse{UserID: n.UserID, Following: emptyIfNil(n.Following)})
		}
		body = listResponse[graphNodeResponse]{Items: items, Count: len(items)}
	case store.Counter:
		var counters map[string]domain.Counters
		counters, err = h.coordinator.ListCounters(r.Context())
		items := make([]countersResponse, 0, len(counters))
		for userID, c := range counters {
			items = append(items, toCountersResponse(userID, c))
		}
		body = listResponse[countersResponse]{Items: items, Count: len(items)}
	}
	if err != nil {
		h.logger.Error("failed to list users from source", "error", err, "source", source)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *APIHandlers) updateUser(w http.ResponseWriter, r *http.Request, userID string) {
	var payload updateUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := coordinator.UpdateInput{
		Email:            payload.Email,
		Age:              payload.Age,
		Country:          payload.Country,
		SubscriptionType: payload.SubscriptionType,
		Device:           payload.Device,
		Genres:           payload.Genres,
		Gender:           payload.Gender,
		MonthlyRevenue:   payload.MonthlyRevenue,
		Session:          payload.Session,
	}
	if payload.Password != nil && *payload.Password != "" {
		hash, err := coordinator.HashPassword(*payload.Password)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process password")
			return
		}
		input.PasswordHash = &hash
	}

	result, err := h.coordinator.Update(r.Context(), userID, input)
	if err != nil {
		h.logger.Error("failed to update user", "error", err, "userId", userID)
		writeError(w, statusForError(err), "failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, updateUserResponse{
		UserID:    result.UserID,
		UpdatedIn: storeNameStrings(result.UpdatedIn),
		Errors:    storeErrorStrings(result.Failures),
	})
}

func (h *APIHandlers) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.coordinator.Delete(r.Context(), userID); err != nil {
		h.logger.Error("failed to delete user", "error", err, "userId", userID)
		writeError(w, statusForError(err), "failed to delete user")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: userID})
}

func (h *APIHandlers) follow(w http.ResponseWriter, r *http.Request, userID string, create bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload followRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.TargetID == "" {
		writeError(w, http.StatusBadRequest, "targetId is required")
		return
	}

	var err error
	if create {
		err = h.network.Follow(r.Context(), userID, payload.TargetID)
	} else {
		err = h.network.Unfollow(r.Context(), userID, payload.TargetID)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEndpointNotFound) && !errors.Is(err, domain.ErrInvalidArgument) {
			h.logger.Error("failed to change follow edge", "error", err, "userId", userID, "targetId", payload.TargetID)
		}
		writeError(w, statusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: userID})
}

func (h *APIHandlers) neighbors(w http.ResponseWriter, r *http.Request, userID string, fetch func(ctx context.Context, userID string) ([]string, error)) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ids, err := fetch(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("failed to fetch neighbors", "error", err, "userId", userID)
		}
		writeError(w, statusForError(err), "failed to fetch relationships")
		return
	}
	respondJSON(w, http.StatusOK, neighborsResponse{UserID: userID, UserIDs: emptyIfNil(ids), Count: len(ids)})
}

func (h *APIHandlers) handleUserNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/network/"), "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	view, err := h.network.Network(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("failed to fetch network view", "error", err, "userId", userID)
		}
		writeError(w, statusForError(err), "failed to fetch network view")
		return
	}
	respondJSON(w, http.StatusOK, toNetworkResponse(view))
}

func (h *APIHandlers) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 0)
	snapshot, err := h.network.Snapshot(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to fetch network snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch network snapshot")
		return
	}

	resp := networkSnapshotResponse{
		Nodes: emptyIfNil(snapshot.Nodes),
		Edges: make([]networkEdgeResponse, 0, len(snapshot.Edges)),
	}
	for _, e := range snapshot.Edges {
		resp.Edges = append(resp.Edges, networkEdgeResponse{FollowerID: e.FollowerID, FollowedID: e.FollowedID})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.coordinator.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		UserID:     result.UserID,
		Email:      result.Email,
		LoginCount: result.LoginCount,
		Session:    result.Session,
		LastLogin:  result.LastLogin,
	})
}

func (h *APIHandlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload logoutRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.coordinator.Logout(r.Context(), payload.UserID); err != nil {
		h.logger.Error("logout failed", "error", err, "userId", payload.UserID)
		writeError(w, statusForError(err), "logout failed")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: payload.UserID})
}

// --- Request & Response DTOs ---

type userRequest struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordHash string `json:"passwordHash"`

	Age              *int     `json:"age"`
	Country          string   `json:"country"`
	SubscriptionType string   `json:"subscriptionType"`
	Device           string   `json:"device"`
	Genres           []string `json:"genres"`
	Gender           string   `json:"gender"`
	MonthlyRevenue   *float64 `json:"monthlyRevenue"`
}

func (req userRequest) toProfile(userID string) *domain.Profile {
	return &domain.Profile{
		UserID:           userID,
		Age:              req.Age,
		Country:          req.Country,
		SubscriptionType: req.SubscriptionType,
		Device:           req.Device,
		Genres:           req.Genres,
		Gender:           req.Gender,
		MonthlyRevenue:   req.MonthlyRevenue,
	}
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`

	Age              *int     `json:"age"`
	Country          *string  `json:"country"`
	SubscriptionType *string  `json:"subscriptionType"`
	Device           *string  `json:"device"`
	Genres           []string `json:"genres"`
	Gender           *string  `json:"gender"`
	MonthlyRevenue   *float64 `json:"monthlyRevenue"`

	Session *string `json:"session"`
}

type followRequest struct {
	TargetID string `json:"targetId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	UserID string `json:"userId"`
}

type createUserResponse struct {
	UserID  string   `json:"userId"`
	SavedIn []string `json:"savedIn"`
	Errors  []string `json:"errors,omitempty"`
}

type updateUserResponse struct {
	UserID    string   `json:"userId"`
	UpdatedIn []string `json:"updatedIn"`
	Errors    []string `json:"errors,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

type identityResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type profileResponse struct {
	UserID           string   `json:"userId"`
	Age              *int     `json:"age,omitempty"`
	Country          string   `json:"country,omitempty"`
	SubscriptionType string   `json:"subscriptionType,omitempty"`
	Device           string   `json:"device,omitempty"`
	Genres           []string `json:"genres"`
	Gender           string   `json:"gender,omitempty"`
	MonthlyRevenue   *float64 `json:"monthlyRevenue,omitempty"`
}

type graphNodeResponse struct {
	UserID    string   `json:"userId"`
	Following []string `json:"following"`
}

type countersResponse struct {
	UserID     string `json:"userId"`
	LoginCount int64  `json:"loginCount"`
	Session    string `json:"session"`
	LastLogin  string `json:"lastLogin,omitempty"`
}

type relationsResponse struct {
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

type aggregatedUserResponse struct {
	UserID    string             `json:"userId"`
	Identity  *identityResponse  `json:"identity,omitempty"`
	Profile   *profileResponse   `json:"profile,omitempty"`
	Relations *relationsResponse `json:"relations,omitempty"`
	Counters  *countersResponse  `json:"counters,omitempty"`
	PresentIn []string           `json:"presentIn"`
}

type neighborsResponse struct {
	UserID  string   `json:"userId"`
	UserIDs []string `json:"userIds"`
	Count   int      `json:"count"`
}

type networkViewResponse struct {
	UserID         string   `json:"userId"`
	Followers      []string `json:"followers"`
	Following      []string `json:"following"`
	FollowersCount int      `json:"followersCount"`
	FollowingCount int      `json:"followingCount"`
}

type networkSnapshotResponse struct {
	Nodes []string              `json:"nodes"`
	Edges []networkEdgeResponse `json:"edges"`
}

type networkEdgeResponse struct {
	FollowerID string `json:"followerId"`
	FollowedID string `json:"followedId"`
}

type loginResponse struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	LoginCount int64  `json:"loginCount"`
	Session    string `json:"session"`
	LastLogin  string `json:"lastLogin,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// --- Helpers ---

func toIdentityResponse(ident domain.Identity) identityResponse {
	return identityResponse{UserID: ident.UserID, Email: ident.Email}
}

func toProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{
		UserID:           p.UserID,
		Age:              p.Age,
		Country:          p.Country,
		SubscriptionType: p.SubscriptionType,
		Device:           p.Device,
		Genres:           emptyIfNil(p.Genres),
		Gender:           p.Gender,
		MonthlyRevenue:   p.MonthlyRevenue,
	}
}

func toCountersResponse(userID string, c domain.Counters) countersResponse {
	return countersResponse{
		UserID:     userID,
		LoginCount: c.LoginCount,
		Session:    c.Session,
		LastLogin:  c.LastLogin,
	}
}

func toNetworkResponse(view domain.NetworkView) networkViewResponse {
	return networkViewResponse{
		UserID:         view.UserID,
		Followers:      emptyIfNil(view.Followers),
		Following:      emptyIfNil(view.Following),
		FollowersCount: view.FollowersCount,
		FollowingCount: view.FollowingCount,
	}
}

func toAggregatedResponse(agg domain.AggregatedUser) aggregatedUserResponse {
	resp := aggregatedUserResponse{
		UserID:    agg.UserID,
		PresentIn: emptyIfNil(agg.PresentIn),
	}
	if agg.Identity != nil {
		ident := toIdentityResponse(*agg.Identity)
		resp.Identity = &ident
	}
	if agg.Profile != nil {
		prof := toProfileResponse(*agg.Profile)
		resp.Profile = &prof
	}
	if agg.Relations != nil {
		resp.Relations = &relationsResponse{
			Followers: emptyIfNil(agg.Relations.Followers),
			Following: emptyIfNil(agg.Relations.Following),
		}
	}
	for _, name := range agg.PresentIn {
		if name == string(store.Counter) {
			counters := toCountersResponse(agg.UserID, agg.Counters)
			resp.Counters = &counters
			break
		}
	}
	return resp
}

// statusForError maps domain sentinel errors onto HTTP status codes.
func statusForError(err error) int {
	var total *coordinator.TotalWriteFailure
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEndpointNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &total):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func storeNameStrings(names []store.Name) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}

func storeErrorStrings(errs []*store.Error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func parseBool(value string) bool {
	v, err := strconv.ParseBool(value)
	return err == nil && v
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
