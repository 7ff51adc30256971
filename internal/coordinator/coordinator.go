// Package coordinator decomposes logical user operations into per-store
// calls across the four adapters. There is no cross-store transaction and
// none is attempted: every write tracks exactly which stores succeeded, and
// reads merge whatever partial views the stores return.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
	"github.com/rafaelcs/userhub/backend/internal/store/counter"
	"github.com/rafaelcs/userhub/backend/internal/store/credential"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
	"github.com/rafaelcs/userhub/backend/internal/store/profile"
)

const defaultCallTimeout = 5 * time.Second

// Coordinator orchestrates create/read/update/delete across the four
// stores. Each adapter call runs under its own timeout so one unreachable
// store cannot stall the rest of the operation.
type Coordinator struct {
	credentials credential.Store
	profiles    profile.Store
	graph       graphstore.Store
	counters    counter.Store
	logger      *slog.Logger
	callTimeout time.Duration
	nowFn       func() time.Time
}

// New constructs a Coordinator over the four store adapters.
func New(logger *slog.Logger, credentials credential.Store, profiles profile.Store, graph graphstore.Store, counters counter.Store) *Coordinator {
	return &Coordinator{
		credentials: credentials,
		profiles:    profiles,
		graph:       graph,
		counters:    counters,
		logger:      logger,
		callTimeout: defaultCallTimeout,
		nowFn:       time.Now,
	}
}

// WithCallTimeout overrides the per-adapter-call timeout.
func (c *Coordinator) WithCallTimeout(d time.Duration) {
	if d > 0 {
		c.callTimeout = d
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (c *Coordinator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		c.nowFn = nowFn
	}
}

// CreateInput is the logical create request. PasswordHash is stored as
// given; plaintext passwords are hashed by the caller (see HashPassword).
type CreateInput struct {
	UserID       string
	Email        string
	PasswordHash string
	Profile      *domain.Profile

	// LoginCount seeds the counter store; zero for fresh users.
	LoginCount int64
}

// CreateResult reports which stores hold the new user. A non-empty
// Failures list alongside a non-empty SavedIn means a degraded write the
// caller must be able to detect.
type CreateResult struct {
	UserID   string
	SavedIn  []store.Name
	Failures []*store.Error
}

// TotalWriteFailure means every store rejected the write; nothing was
// persisted anywhere.
type TotalWriteFailure struct {
	Failures []*store.Error
}

func (e *TotalWriteFailure) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return "all stores failed: " + strings.Join(msgs, "; ")
}

// Create writes the user to all four stores in the fixed order Credential,
// Profile, Graph, Counter. Attempts are independent: one store failing does
// not prevent the next from being tried. The operation fails only when
// every store fails; otherwise it succeeds with the explicit SavedIn set.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return CreateResult{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}

	res := CreateResult{UserID: userID}
	c.runCreateAttempts(ctx, &res, in)

	if len(res.SavedIn) == 0 {
		return res, &TotalWriteFailure{Failures: res.Failures}
	}
	if len(res.Failures) > 0 {
		c.logger.Warn("partial user create",
			"userId", userID,
			"savedIn", storeNames(res.SavedIn),
			"failed", len(res.Failures),
		)
	}
	return res, nil
}

// CreateRolledBack is the strict create variant: on any store failure it
// issues best-effort compensating deletes against every store that
// succeeded, so no half-created identity survives. Rollback failures are
// logged, never escalated.
func (c *Coordinator) CreateRolledBack(ctx context.Context, in CreateInput) (CreateResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return CreateResult{}, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}

	res := CreateResult{UserID: userID}
	c.runCreateAttempts(ctx, &res, in)

	if len(res.Failures) == 0 {
		return res, nil
	}

	c.rollback(ctx, userID, res.SavedIn)
	res.SavedIn = nil
	return res, fmt.Errorf("create %s rolled back: %w", userID, res.Failures[0])
}

func (c *Coordinator) runCreateAttempts(ctx context.Context, res *CreateResult, in CreateInput) {
	userID := res.UserID

	prof := domain.Profile{UserID: userID}
	if in.Profile != nil {
		prof = *in.Profile
		prof.UserID = userID
	}

	attempts := []struct {
		name store.Name
		fn   func(context.Context) error
	}{
		{store.Credential, func(cctx context.Context) error {
			return c.credentials.Upsert(cctx, domain.Identity{
				UserID:       userID,
				Email:        strings.TrimSpace(strings.ToLower(in.Email)),
				PasswordHash: in.PasswordHash,
			})
		}},
		{store.Profile, func(cctx context.Context) error {
			return c.profiles.Upsert(cctx, prof)
		}},
		{store.Graph, func(cctx context.Context) error {
			return c.graph.EnsureNode(cctx, userID)
		}},
		{store.Counter, func(cctx context.Context) error {
			return c.counters.Upsert(cctx, userID, domain.Counters{
				LoginCount: in.LoginCount,
				Session:    domain.SessionOffline,
			})
		}},
	}

	for _, attempt := range attempts {
		// Caller cancellation stops further calls but never undoes
		// already-committed writes.
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, tagged(attempt.name, "create", err))
			continue
		}

		cctx, cancel := c.callContext(ctx)
		err := attempt.fn(cctx)
		cancel()
		if err != nil {
			c.logger.Warn("store write failed", "store", string(attempt.name), "userId", userID, "error", err)
			res.Failures = append(res.Failures, tagged(attempt.name, "create", err))
			continue
		}
		res.SavedIn = append(res.SavedIn, attempt.name)
	}
}

func (c *Coordinator) rollback(ctx context.Context, userID string, savedIn []store.Name) {
	for _, name := range savedIn {
		cctx, cancel := c.callContext(ctx)
		var err error
		switch name {
		case store.Credential:
			err = c.credentials.Delete(cctx, userID)
		case store.Profile:
			err = c.profiles.Delete(cctx, userID)
		case store.Graph:
			err = c.graph.DeleteNode(cctx, userID)
		case store.Counter:
			err = c.counters.Delete(cctx, userID)
		}
		cancel()
		if err != nil {
			c.logger.Error("rollback delete failed", "store", string(name), "userId", userID, "error", err)
		}
	}
	c.logger.Info("compensating rollback executed", "userId", userID, "stores", storeNames(savedIn))
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func tagged(name store.Name, op string, err error) *store.Error {
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}
	return &store.Error{Store: name, Op: op, Err: err}
}

func storeNames(names []store.Name) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}

// HashPassword produces a bcrypt hash for storage in the credential store.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
