// Package counter adapts the ephemeral key-value store holding per-user
// login counts, session state, and last-login timestamps. The data carries
// no durability contract: losing it must never block identity, profile, or
// graph operations.
package counter

import (
	"context"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

// Key prefixes, one independent keyed value per concern.
const (
	loginCountPrefix = "login_count:"
	sessionPrefix    = "session:"
	lastLoginPrefix  = "last_login:"
)

// Store is the counter adapter contract. Reads of absent keys return zero
// values, not errors; Delete of an absent key is success. Upsert
// initializes all three keys for a user.
type Store interface {
	Upsert(ctx context.Context, userID string, c domain.Counters) error
	FetchOne(ctx context.Context, userID string) (domain.Counters, error)
	FetchAll(ctx context.Context) (map[string]domain.Counters, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)

	IncrementLogin(ctx context.Context, userID string) (int64, error)
	LoginCount(ctx context.Context, userID string) (int64, error)
	SetSession(ctx context.Context, userID, state string) error
	TouchLastLogin(ctx context.Context, userID, timestamp string) error
}
