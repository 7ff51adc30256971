// Package credential adapts the relational identity store. It is the only
// store with uniqueness constraints and is authoritative for existence:
// enumeration of all users starts here.
package credential

import (
	"context"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

// Store is the credential adapter contract. FetchOne and FetchByEmail
// return domain.ErrNotFound for absent records; Delete of an absent key is
// success.
type Store interface {
	Upsert(ctx context.Context, identity domain.Identity) error
	FetchOne(ctx context.Context, userID string) (domain.Identity, error)
	FetchByEmail(ctx context.Context, email string) (domain.Identity, error)
	FetchAll(ctx context.Context) ([]domain.Identity, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}
