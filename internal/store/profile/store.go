// Package profile adapts the schemaless demographic document store. A
// missing profile is legal for any userId and must never fault reads.
package profile

import (
	"context"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

// Store is the profile adapter contract. FetchOne returns
// domain.ErrNotFound for absent documents; Delete of an absent key is
// success.
type Store interface {
	Upsert(ctx context.Context, p domain.Profile) error
	FetchOne(ctx context.Context, userID string) (domain.Profile, error)
	FetchAll(ctx context.Context) ([]domain.Profile, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}
