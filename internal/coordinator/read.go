package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// Get fans out to all four stores concurrently and merges whatever each
// one returns. Every store is consulted before any decision is made: a
// store failing or missing the user shrinks the view, it does not abort
// the read. ErrNotFound only when no store knows the user at all.
func (c *Coordinator) Get(ctx context.Context, userID string) (domain.AggregatedUser, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.AggregatedUser{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}

	var (
		identity    *domain.Identity
		identityErr error

		prof    *domain.Profile
		profErr error

		relations *domain.Relations
		graphErr  error

		counters   domain.Counters
		hasCounter bool
		counterErr error
	)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		cctx, cancel := c.callContext(ctx)
		defer cancel()
		ident, err := c.credentials.FetchOne(cctx, userID)
		if err != nil {
			identityErr = err
			return
		}
		identity = &ident
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := c.callContext(ctx)
		defer cancel()
		p, err := c.profiles.FetchOne(cctx, userID)
		if err != nil {
			profErr = err
			return
		}
		prof = &p
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := c.callContext(ctx)
		defer cancel()
		node, err := c.graph.Node(cctx, userID)
		if err != nil {
			graphErr = err
			return
		}
		followers, err := c.graph.Followers(cctx, userID)
		if err != nil {
			graphErr = err
			return
		}
		relations = &domain.Relations{
			Following: node.Following,
			Followers: followers,
		}
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := c.callContext(ctx)
		defer cancel()
		exists, err := c.counters.Exists(cctx, userID)
		if err != nil {
			counterErr = err
			return
		}
		if !exists {
			counterErr = fmt.Errorf("counters for %s: %w", userID, domain.ErrNotFound)
			return
		}
		cnt, err := c.counters.FetchOne(cctx, userID)
		if err != nil {
			counterErr = err
			return
		}
		counters = cnt
		hasCounter = true
	}()

	wg.Wait()

	agg := domain.AggregatedUser{UserID: userID}
	if identity != nil {
		agg.Identity = identity
		agg.PresentIn = append(agg.PresentIn, string(store.Credential))
	}
	if prof != nil {
		agg.Profile = prof
		agg.PresentIn = append(agg.PresentIn, string(store.Profile))
	}
	if relations != nil {
		agg.Relations = relations
		agg.PresentIn = append(agg.PresentIn, string(store.Graph))
	}
	if hasCounter {
		agg.Counters = counters
		agg.PresentIn = append(agg.PresentIn, string(store.Counter))
	}

	for _, probe := range []struct {
		name store.Name
		err  error
	}{
		{store.Credential, identityErr},
		{store.Profile, profErr},
		{store.Graph, graphErr},
		{store.Counter, counterErr},
	} {
		if probe.err != nil && !errors.Is(probe.err, domain.ErrNotFound) {
			c.logger.Warn("store read failed", "store", string(probe.name), "userId", userID, "error", probe.err)
		}
	}

	if len(agg.PresentIn) == 0 {
		return domain.AggregatedUser{}, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return agg, nil
}

// Identity returns the credential-store view alone.
func (c *Coordinator) Identity(ctx context.Context, userID string) (domain.Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Identity{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.credentials.FetchOne(cctx, userID)
}

// Profile returns the profile-store view alone.
func (c *Coordinator) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.profiles.FetchOne(cctx, userID)
}

// Counters returns the counter-store view alone.
func (c *Coordinator) Counters(ctx context.Context, userID string) (domain.Counters, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Counters{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	exists, err := c.counters.Exists(cctx, userID)
	if err != nil {
		return domain.Counters{}, err
	}
	if !exists {
		return domain.Counters{}, fmt.Errorf("counters for %s: %w", userID, domain.ErrNotFound)
	}
	return c.counters.FetchOne(cctx, userID)
}

// ListIdentities enumerates the credential store.
func (c *Coordinator) ListIdentities(ctx context.Context) ([]domain.Identity, error) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.credentials.FetchAll(cctx)
}

// ListProfiles enumerates the profile store.
func (c *Coordinator) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.profiles.FetchAll(cctx)
}

// ListNodes enumerates the graph store.
func (c *Coordinator) ListNodes(ctx context.Context) ([]domain.GraphNode, error) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.graph.Nodes(cctx)
}

// ListCounters enumerates the counter store.
func (c *Coordinator) ListCounters(ctx context.Context) (map[string]domain.Counters, error) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.counters.FetchAll(cctx)
}

// ListAggregated enumerates users with the credential store as the
// enumeration root and assembles each user's aggregated view. Individual
// assembly failures degrade to the partial view Get produces; users whose
// read fails entirely are skipped and logged rather than failing the list.
func (c *Coordinator) ListAggregated(ctx context.Context) ([]domain.AggregatedUser, error) {
	identities, err := c.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	out := make([]domain.AggregatedUser, 0, len(identities))
	for _, ident := range identities {
		agg, err := c.Get(ctx, ident.UserID)
		if err != nil {
			c.logger.Warn("skipping user in aggregate list", "userId", ident.UserID, "error", err)
			continue
		}
		out = append(out, agg)
	}
	return out, nil
}
