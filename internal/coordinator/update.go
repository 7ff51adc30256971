package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// UpdateInput is a partial update. Nil pointer fields are left untouched
// in their store; Genres replaces the whole list when non-nil.
type UpdateInput struct {
	Email        *string
	PasswordHash *string

	Age              *int
	Country          *string
	SubscriptionType *string
	Device           *string
	Genres           []string
	Gender           *string
	MonthlyRevenue   *float64

	Session *string
}

// UpdateResult reports which stores actually applied a change.
type UpdateResult struct {
	UserID    string
	UpdatedIn []store.Name
	Failures  []*store.Error
}

func (in UpdateInput) touchesCredential() bool {
	return in.Email != nil || in.PasswordHash != nil
}

func (in UpdateInput) touchesProfile() bool {
	return in.Age != nil || in.Country != nil || in.SubscriptionType != nil ||
		in.Device != nil || in.Genres != nil || in.Gender != nil || in.MonthlyRevenue != nil
}

// Update applies a field-level patch to each store the patch touches.
// Update never creates: a store where the user is absent is skipped, not
// initialized. Stores the patch does not touch are never contacted.
func (c *Coordinator) Update(ctx context.Context, userID string, in UpdateInput) (UpdateResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UpdateResult{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	if in.Session != nil {
		s := strings.ToUpper(strings.TrimSpace(*in.Session))
		if s != domain.SessionActive && s != domain.SessionOffline {
			return UpdateResult{}, fmt.Errorf("%w: session must be %s or %s", domain.ErrInvalidArgument, domain.SessionActive, domain.SessionOffline)
		}
		in.Session = &s
	}

	res := UpdateResult{UserID: userID}

	if in.touchesCredential() {
		c.updateCredential(ctx, userID, in, &res)
	}
	if in.touchesProfile() {
		c.updateProfile(ctx, userID, in, &res)
	}
	if in.Session != nil {
		c.updateSession(ctx, userID, *in.Session, &res)
	}

	if len(res.UpdatedIn) > 0 && len(res.Failures) > 0 {
		c.logger.Warn("partial user update",
			"userId", userID,
			"updatedIn", storeNames(res.UpdatedIn),
			"failed", len(res.Failures),
		)
	}
	return res, nil
}

func (c *Coordinator) updateCredential(ctx context.Context, userID string, in UpdateInput, res *UpdateResult) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()

	ident, err := c.credentials.FetchOne(cctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		res.Failures = append(res.Failures, tagged(store.Credential, "update", err))
		return
	}
	if in.Email != nil {
		ident.Email = strings.TrimSpace(strings.ToLower(*in.Email))
	}
	if in.PasswordHash != nil {
		ident.PasswordHash = *in.PasswordHash
	}
	if err := c.credentials.Upsert(cctx, ident); err != nil {
		res.Failures = append(res.Failures, tagged(store.Credential, "update", err))
		return
	}
	res.UpdatedIn = append(res.UpdatedIn, store.Credential)
}

func (c *Coordinator) updateProfile(ctx context.Context, userID string, in UpdateInput, res *UpdateResult) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()

	prof, err := c.profiles.FetchOne(cctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		res.Failures = append(res.Failures, tagged(store.Profile, "update", err))
		return
	}
	if in.Age != nil {
		prof.Age = in.Age
	}
	if in.Country != nil {
		prof.Country = *in.Country
	}
	if in.SubscriptionType != nil {
		prof.SubscriptionType = *in.SubscriptionType
	}
	if in.Device != nil {
		prof.Device = *in.Device
	}
	if in.Genres != nil {
		prof.Genres = in.Genres
	}
	if in.Gender != nil {
		prof.Gender = *in.Gender
	}
	if in.MonthlyRevenue != nil {
		prof.MonthlyRevenue = in.MonthlyRevenue
	}
	if err := c.profiles.Upsert(cctx, prof); err != nil {
		res.Failures = append(res.Failures, tagged(store.Profile, "update", err))
		return
	}
	res.UpdatedIn = append(res.UpdatedIn, store.Profile)
}

func (c *Coordinator) updateSession(ctx context.Context, userID, session string, res *UpdateResult) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()

	exists, err := c.counters.Exists(cctx, userID)
	if err != nil {
		res.Failures = append(res.Failures, tagged(store.Counter, "update", err))
		return
	}
	if !exists {
		return
	}
	if err := c.counters.SetSession(cctx, userID, session); err != nil {
		res.Failures = append(res.Failures, tagged(store.Counter, "update", err))
		return
	}
	res.UpdatedIn = append(res.UpdatedIn, store.Counter)
}

// Delete removes the user from every store. All four stores are attempted
// regardless of individual failures; deleting an absent user is a no-op
// per store. The joined error carries every store that refused.
func (c *Coordinator) Delete(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}

	var errs []error
	for _, target := range []struct {
		name store.Name
		fn   func(context.Context) error
	}{
		{store.Credential, func(cctx context.Context) error { return c.credentials.Delete(cctx, userID) }},
		{store.Profile, func(cctx context.Context) error { return c.profiles.Delete(cctx, userID) }},
		{store.Graph, func(cctx context.Context) error { return c.graph.DeleteNode(cctx, userID) }},
		{store.Counter, func(cctx context.Context) error { return c.counters.Delete(cctx, userID) }},
	} {
		cctx, cancel := c.callContext(ctx)
		err := target.fn(cctx)
		cancel()
		if err != nil {
			c.logger.Warn("store delete failed", "store", string(target.name), "userId", userID, "error", err)
			errs = append(errs, tagged(target.name, "delete", err))
		}
	}
	return errors.Join(errs...)
}
